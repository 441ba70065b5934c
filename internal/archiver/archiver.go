// Package archiver drives one fetch cycle: read the device, reconcile
// against the archive, insert the new batch, persist reset-detection
// state and append an audit record. It is not a loop; periodic runs come
// from cron or a systemd timer invoking the fetch command.
package archiver

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sensorlog/aranet-archive/internal/reconcile"
	"github.com/sensorlog/aranet-archive/internal/sensor"
	"github.com/sensorlog/aranet-archive/internal/store"
)

// Summary is the per-cycle report handed to the CLI.
type Summary struct {
	CycleID string `json:"cycle_id"`
	Device  string `json:"device"`
	Epoch   int64  `json:"epoch"`
	reconcile.Stats
	// ResetSuspected is set when the device counter regressed and the
	// epoch was bumped. Advisory: the cycle still succeeds.
	ResetSuspected bool `json:"reset_suspected,omitempty"`
}

// Archiver wires the sensor client to the archive store for one device.
type Archiver struct {
	Store  *store.Store
	Client sensor.Client
	Log    zerolog.Logger

	// Device is the configured device name (archive key); Address is its
	// BLE MAC.
	Device  string
	Address string

	// Retries is the number of immediate re-attempts after a sensor
	// failure within this invocation. Default 3, matching the original
	// polling job.
	Retries int

	// Now stamps cycle start times; tests inject a fixed clock.
	Now func() time.Time
}

func (a *Archiver) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now().UTC()
}

func (a *Archiver) retries() int {
	if a.Retries <= 0 {
		return 3
	}
	return a.Retries
}

// Run executes one fetch cycle. On success the summary reports what was
// fetched, inserted, skipped and lost. On failure the returned error is a
// *CycleError and the archive's readings are untouched; a cycle record
// with the failure outcome is still appended when the store is reachable.
func (a *Archiver) Run(ctx context.Context) (Summary, error) {
	started := a.now()
	cycleID := newCycleID()
	summary := Summary{CycleID: cycleID, Device: a.Device}

	log := a.Log.With().Str("cycle", cycleID).Str("device", a.Device).Logger()
	log.Info().Str("address", a.Address).Msg("fetch cycle start")

	snap, err := a.readSnapshot(ctx, log)
	if err != nil {
		a.logCycle(ctx, cycleID, started, reconcile.Stats{}, "fetch_failed")
		return summary, &CycleError{Code: ErrCodeDeviceUnreachable, Device: a.Device, Err: err}
	}

	state, err := a.Store.GetDeviceState(ctx, a.Device)
	if err != nil {
		return summary, &CycleError{Code: ErrCodeStoreWriteFailed, Device: a.Device, Err: err}
	}

	epoch := state.Epoch
	if reconcile.RegressionSuspected(state.LastCounter, snap.TotalReadings) {
		// Device reset: the counter restarted, so old sequence numbers
		// would collide with a different lifetime. Namespace by epoch
		// and archive the whole snapshot under the new one.
		epoch++
		summary.ResetSuspected = true
		log.Warn().
			Int64("last_counter", state.LastCounter).
			Int64("counter", snap.TotalReadings).
			Int64("epoch", epoch).
			Msg("device reset suspected, starting new epoch")
	}
	summary.Epoch = epoch

	lastSeq, err := a.Store.LastSequence(ctx, a.Device, epoch)
	if err != nil {
		return summary, &CycleError{Code: ErrCodeStoreWriteFailed, Device: a.Device, Err: err}
	}

	batch, stats := reconcile.Reconcile(lastSeq, snap)
	summary.Stats = stats
	for i := range batch {
		batch[i].Device = a.Device
		batch[i].Epoch = epoch
	}

	if len(batch) > 0 {
		inserted, err := a.Store.InsertBatch(ctx, a.Device, epoch, batch)
		if err != nil {
			a.logCycle(ctx, cycleID, started, stats, "store_failed")
			return summary, &CycleError{Code: ErrCodeStoreWriteFailed, Device: a.Device, Err: err}
		}
		if int(inserted) != len(batch) {
			// Another invocation archived part of the batch between our
			// LastSequence read and the insert. Harmless under the
			// conflict policy, worth a trace.
			log.Debug().Int64("inserted", inserted).Int("proposed", len(batch)).
				Msg("batch partially pre-archived")
		}
	}

	if stats.Gap > 0 {
		log.Warn().Int("gap", stats.Gap).
			Msg("device evicted unarchived readings between polls")
	}

	err = a.Store.PutDeviceState(ctx, store.DeviceState{
		Device:      a.Device,
		Address:     a.Address,
		Epoch:       epoch,
		LastCounter: snap.TotalReadings,
		UpdatedAt:   started,
	})
	if err != nil {
		return summary, &CycleError{Code: ErrCodeStoreWriteFailed, Device: a.Device, Err: err}
	}

	a.logCycle(ctx, cycleID, started, stats, "ok")

	log.Info().
		Int("fetched", stats.Fetched).
		Int("new", stats.New).
		Int("duplicate", stats.Duplicate).
		Int("gap", stats.Gap).
		Int("malformed", stats.Malformed).
		Msg("fetch cycle done")

	return summary, nil
}

// readSnapshot visits the device, re-attempting immediately on failure up
// to Retries times. Every attempt is a fresh full visit.
func (a *Archiver) readSnapshot(ctx context.Context, log zerolog.Logger) (sensor.Snapshot, error) {
	var lastErr error
	for attempt := 1; attempt <= a.retries(); attempt++ {
		snap, err := a.Client.ReadHistory(ctx, a.Address)
		if err == nil {
			return snap, nil
		}
		lastErr = err
		log.Warn().Err(err).Int("attempt", attempt).Msg("failed attempt, retrying")
		if ctx.Err() != nil {
			return sensor.Snapshot{}, ctx.Err()
		}
	}
	return sensor.Snapshot{}, fmt.Errorf("after %d attempts: %w", a.retries(), lastErr)
}

// logCycle appends the audit record. Failure to log is reported but never
// masks the cycle outcome.
func (a *Archiver) logCycle(ctx context.Context, id string, started time.Time, stats reconcile.Stats, outcome string) {
	err := a.Store.LogCycle(ctx, store.CycleRecord{
		ID:        id,
		Device:    a.Device,
		StartedAt: started,
		Fetched:   stats.Fetched,
		New:       stats.New,
		Duplicate: stats.Duplicate,
		Gap:       stats.Gap,
		Malformed: stats.Malformed,
		Outcome:   outcome,
	})
	if err != nil {
		a.Log.Warn().Err(err).Msg("failed to append cycle record")
	}
}

// newCycleID returns a UUIDv7 so cycle ids sort by time.
func newCycleID() string {
	id, err := uuid.NewV7()
	if err != nil {
		// v7 only fails when the entropy source does; fall back to v4.
		return uuid.NewString()
	}
	return id.String()
}
