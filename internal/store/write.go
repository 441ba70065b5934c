package store

import (
	"context"
	"fmt"
	"time"

	"github.com/sensorlog/aranet-archive/internal/reading"
)

// InsertBatch writes a batch of readings for one device epoch in a single
// transaction. Uses ON CONFLICT DO NOTHING for idempotency: a reading
// whose (device, epoch, seq) already exists is silently skipped, since a
// re-fetched reading with the same sequence is assumed identical.
//
// Returns the number of rows actually inserted. Either the whole batch
// commits or none of it does, so LastSequence always reflects a complete
// prefix of fetched data.
func (s *Store) InsertBatch(ctx context.Context, device string, epoch int64, batch []reading.Reading) (int64, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("insert batch: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO readings
		(device, epoch, seq, timestamp, co2, temperature, humidity, pressure, battery)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(device, epoch, seq) DO NOTHING
	`)
	if err != nil {
		return 0, fmt.Errorf("insert batch: prepare: %w", err)
	}
	defer stmt.Close()

	var inserted int64
	for _, r := range batch {
		res, err := stmt.ExecContext(ctx,
			device,
			epoch,
			r.Seq,
			r.Timestamp.Unix(),
			r.CO2PPM,
			r.Temperature,
			r.Humidity,
			r.PressureHPa,
			r.BatteryPct,
		)
		if err != nil {
			return 0, fmt.Errorf("insert batch: seq %d: %w", r.Seq, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("insert batch: rows affected: %w", err)
		}
		inserted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("insert batch: commit: %w", err)
	}

	return inserted, nil
}

// DeviceState is the persisted per-device reset-detection state.
// LastCounter survives process restarts so a counter regression is
// detected even when the archiver only runs from cron.
type DeviceState struct {
	Device      string    `json:"device"`
	Address     string    `json:"address"`
	Epoch       int64     `json:"epoch"`
	LastCounter int64     `json:"last_counter"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PutDeviceState upserts the device row.
func (s *Store) PutDeviceState(ctx context.Context, st DeviceState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO devices (id, address, epoch, last_counter, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			address = excluded.address,
			epoch = excluded.epoch,
			last_counter = excluded.last_counter,
			updated_at = excluded.updated_at
	`, st.Device, st.Address, st.Epoch, st.LastCounter, st.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("put device state: %w", err)
	}
	return nil
}

// CycleRecord is one row of the fetch audit log.
type CycleRecord struct {
	ID        string    `json:"id"` // UUIDv7, assigned by the archiver
	Device    string    `json:"device"`
	StartedAt time.Time `json:"started_at"`
	Fetched   int       `json:"fetched"`
	New       int       `json:"new"`
	Duplicate int       `json:"duplicate"`
	Gap       int       `json:"gap"`
	Malformed int       `json:"malformed"`
	Outcome   string    `json:"outcome"` // "ok", "fetch_failed", "store_failed"
}

// LogCycle appends one fetch-cycle record.
// Uses ON CONFLICT(id) DO NOTHING so a retried write is harmless.
func (s *Store) LogCycle(ctx context.Context, c CycleRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fetch_cycles
		(id, device, started_at, fetched, new, duplicate, gap, malformed, outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		c.ID,
		c.Device,
		c.StartedAt.Unix(),
		c.Fetched,
		c.New,
		c.Duplicate,
		c.Gap,
		c.Malformed,
		c.Outcome,
	)
	if err != nil {
		return fmt.Errorf("log cycle: %w", err)
	}
	return nil
}
