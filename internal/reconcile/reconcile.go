package reconcile

import (
	"sort"

	"github.com/sensorlog/aranet-archive/internal/reading"
	"github.com/sensorlog/aranet-archive/internal/sensor"
)

// Stats summarizes one reconciliation pass.
type Stats struct {
	// Fetched counts every history slot the device returned, including
	// malformed ones.
	Fetched int `json:"fetched"`

	// New counts readings selected for insertion.
	New int `json:"new"`

	// Duplicate counts well-formed readings already present in the
	// archive (derived sequence <= last archived sequence).
	Duplicate int `json:"duplicate"`

	// Gap counts sequence numbers that can never be archived: the device
	// evicted them from its ring buffer before any fetch observed them.
	Gap int `json:"gap"`

	// Malformed counts history slots whose payload failed to decode.
	// They are skipped, not archived, and not treated as gaps.
	Malformed int `json:"malformed"`
}

// Reconcile derives sequence numbers for the snapshot's history, filters
// out readings the archive already holds, and returns the remainder in
// ascending sequence order, ready for a batch insert.
//
// Sequence derivation counts backward from the device's total-readings
// counter: the newest slot is the counter itself and each older slot is
// one less. Malformed slots keep their position during derivation so the
// numbering of their neighbors stays correct, then are dropped.
//
// lastSeq is the archive's last recorded sequence for the device's
// current epoch, 0 when the archive is empty (or after an epoch bump on
// device reset, which makes the whole snapshot new by construction).
//
// The returned readings carry Seq, Timestamp and Channels; the caller
// stamps Device and Epoch before insertion.
func Reconcile(lastSeq int64, snap sensor.Snapshot) ([]reading.Reading, Stats) {
	stats := Stats{Fetched: len(snap.History)}

	// Normalize to oldest-first before assigning sequences. Transports
	// differ on direction; age offsets are authoritative.
	history := make([]sensor.HistoryEntry, len(snap.History))
	copy(history, snap.History)
	sort.SliceStable(history, func(i, j int) bool {
		return history[i].AgeOffset > history[j].AgeOffset
	})

	n := int64(len(history))
	var out []reading.Reading
	var firstHeld int64 // smallest derived seq > lastSeq still on the device
	for i, entry := range history {
		// Newest slot (i == n-1) is the counter; older slots count down.
		seq := snap.TotalReadings - (n - 1 - int64(i))
		if seq > lastSeq && firstHeld == 0 {
			firstHeld = seq
		}
		if entry.Malformed {
			stats.Malformed++
			continue
		}
		if seq <= lastSeq {
			stats.Duplicate++
			continue
		}
		out = append(out, reading.Reading{
			Seq:       seq,
			Timestamp: snap.FetchedAt.Add(-entry.AgeOffset),
			Channels:  entry.Channels,
		})
	}
	stats.New = len(out)
	stats.Gap = gap(lastSeq, snap.TotalReadings, firstHeld)
	return out, stats
}

// gap counts the sequences lost to ring-buffer eviction between polls.
// A gap exists only when something was archived before (lastSeq > 0):
// a fresh archive legitimately starts mid-stream. Malformed slots still
// hold their sequence on the device, so they never count as gaps.
func gap(lastSeq, counter, firstHeld int64) int {
	if lastSeq == 0 {
		return 0
	}
	if firstHeld == 0 {
		// Nothing past lastSeq is retrievable, but the counter says
		// samples were taken since the last archived one. All of them
		// were evicted unseen.
		if counter > lastSeq {
			return int(counter - lastSeq)
		}
		return 0
	}
	if firstHeld > lastSeq+1 {
		return int(firstHeld - lastSeq - 1)
	}
	return 0
}

// RegressionSuspected reports whether the device's counter moved backward
// relative to the last counter the caller persisted, which indicates a
// power loss or factory reset. The reconciler is stateless per call; the
// caller supplies the prior counter and decides the policy (this archiver
// bumps the device epoch and re-archives from scratch).
func RegressionSuspected(prevCounter, counter int64) bool {
	return prevCounter > 0 && counter < prevCounter
}
