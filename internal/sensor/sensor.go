// Package sensor defines the client interface to an Aranet4-style device
// and the snapshot types the reconciler consumes. The real BLE transport
// lives in the aranet subpackage; tests use the Fake client.
package sensor

import (
	"context"
	"time"

	"github.com/sensorlog/aranet-archive/internal/reading"
)

// HistoryEntry is one slot of the device's on-device history ring buffer.
//
// AgeOffset is how far in the past the sample was taken, relative to the
// moment the snapshot was captured. The device reports ages, never
// absolute times or sequence numbers; both are derived later.
//
// Malformed marks a slot whose payload failed to decode. Malformed slots
// still occupy a position in the ring buffer, so they must be kept in the
// sequence so backward counting stays aligned; the reconciler drops and
// counts them.
type HistoryEntry struct {
	AgeOffset time.Duration
	Channels  reading.Channels
	Malformed bool
}

// Snapshot is everything read from the device in one visit.
//
// History is ordered oldest to newest. The newest retained sample is
// always present; the device evicts the oldest slots on its own as the
// ring buffer wraps, independent of whether they were ever archived.
type Snapshot struct {
	// TotalReadings is the device's cumulative sample counter since
	// power-on or factory reset. The newest entry in History corresponds
	// to this counter value.
	TotalReadings int64

	// Interval is the device's configured sampling period.
	Interval time.Duration

	// FetchedAt is the wall-clock time the snapshot was captured; sample
	// timestamps are FetchedAt minus each entry's AgeOffset.
	FetchedAt time.Time

	History []HistoryEntry
}

// Current is the device's live measurement, read without touching the
// history buffer. Used by fetch --check and the devices command.
type Current struct {
	Channels           reading.Channels
	TotalReadings      int64
	Interval           time.Duration
	SecondsSinceUpdate time.Duration
}

// Client reads from a single device identified by its address.
// Implementations own their transport timeouts; the context cancels the
// whole visit.
type Client interface {
	ReadCurrent(ctx context.Context, address string) (Current, error)
	ReadHistory(ctx context.Context, address string) (Snapshot, error)
}
