package sensor

import (
	"context"
	"time"
)

// Fake is an in-memory Client for tests. It replays a scripted snapshot
// and optionally fails the first N calls to exercise retry paths.
type Fake struct {
	Snapshot Snapshot
	Live Current

	// Err, when set, is returned by every call until FailCount reaches
	// zero (or always, if FailCount is negative).
	Err       error
	FailCount int

	HistoryCalls int
	CurrentCalls int
}

// NewFake builds a Fake whose snapshot holds count well-formed entries
// sampled every interval, newest at fetchedAt, with the given counter.
func NewFake(counter int64, count int, interval time.Duration, fetchedAt time.Time) *Fake {
	entries := make([]HistoryEntry, count)
	for i := range entries {
		// Oldest first: entry i is (count-1-i) intervals old.
		entries[i] = HistoryEntry{AgeOffset: time.Duration(count-1-i) * interval}
	}
	return &Fake{
		Snapshot: Snapshot{
			TotalReadings: counter,
			Interval:      interval,
			FetchedAt:     fetchedAt,
			History:       entries,
		},
		Live: Current{TotalReadings: counter, Interval: interval},
	}
}

func (f *Fake) fail() error {
	if f.Err == nil {
		return nil
	}
	if f.FailCount < 0 {
		return f.Err
	}
	if f.FailCount > 0 {
		f.FailCount--
		return f.Err
	}
	return nil
}

// ReadCurrent implements Client.
func (f *Fake) ReadCurrent(ctx context.Context, address string) (Current, error) {
	f.CurrentCalls++
	if err := f.fail(); err != nil {
		return Current{}, err
	}
	return f.Live, nil
}

// ReadHistory implements Client.
func (f *Fake) ReadHistory(ctx context.Context, address string) (Snapshot, error) {
	f.HistoryCalls++
	if err := f.fail(); err != nil {
		return Snapshot{}, err
	}
	return f.Snapshot, nil
}
