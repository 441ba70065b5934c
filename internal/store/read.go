package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sensorlog/aranet-archive/internal/reading"
)

// LastSequence returns the highest archived sequence for the device in
// the given epoch, or 0 when nothing is archived yet.
func (s *Store) LastSequence(ctx context.Context, device string, epoch int64) (int64, error) {
	var seq sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(seq) FROM readings WHERE device = ? AND epoch = ?
	`, device, epoch).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("last sequence: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return seq.Int64, nil
}

// Order selects the direction of a range query.
type Order int

const (
	OldestFirst Order = iota
	NewestFirst
)

// RangeOptions bounds a QueryRange call. Zero times mean unbounded;
// Limit <= 0 means no limit.
type RangeOptions struct {
	From  time.Time
	To    time.Time
	Limit int
	Order Order
}

// QueryRange returns archived readings for a device, ordered by timestamp
// (ties broken by epoch then seq so the order is total). Pure read.
func (s *Store) QueryRange(ctx context.Context, device string, opts RangeOptions) ([]reading.Reading, error) {
	query := `
		SELECT device, epoch, seq, timestamp, co2, temperature, humidity, pressure, battery
		FROM readings
		WHERE device = ?`
	args := []any{device}

	if !opts.From.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, opts.From.Unix())
	}
	if !opts.To.IsZero() {
		query += " AND timestamp < ?"
		args = append(args, opts.To.Unix())
	}

	dir := "ASC"
	if opts.Order == NewestFirst {
		dir = "DESC"
	}
	query += fmt.Sprintf(" ORDER BY timestamp %s, epoch %s, seq %s", dir, dir, dir)

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	var out []reading.Reading
	for rows.Next() {
		r, err := scanReading(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate readings: %w", err)
	}

	// Return empty slice instead of nil
	if out == nil {
		out = []reading.Reading{}
	}
	return out, nil
}

// CountReadings returns the number of archived readings for a device.
func (s *Store) CountReadings(ctx context.Context, device string) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM readings WHERE device = ?`, device).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count readings: %w", err)
	}
	return n, nil
}

// GetDeviceState reads the persisted device row. A device never seen
// before returns a zero-valued state (epoch 0, counter 0), not an error.
func (s *Store) GetDeviceState(ctx context.Context, device string) (DeviceState, error) {
	var st DeviceState
	var updated int64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, address, epoch, last_counter, updated_at
		FROM devices WHERE id = ?
	`, device).Scan(&st.Device, &st.Address, &st.Epoch, &st.LastCounter, &updated)
	if err == sql.ErrNoRows {
		return DeviceState{Device: device}, nil
	}
	if err != nil {
		return DeviceState{}, fmt.Errorf("get device state: %w", err)
	}
	st.UpdatedAt = time.Unix(updated, 0).UTC()
	return st, nil
}

// ListDeviceStates returns every known device row, ordered by id.
func (s *Store) ListDeviceStates(ctx context.Context) ([]DeviceState, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, address, epoch, last_counter, updated_at
		FROM devices ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list device states: %w", err)
	}
	defer rows.Close()

	var out []DeviceState
	for rows.Next() {
		var st DeviceState
		var updated int64
		if err := rows.Scan(&st.Device, &st.Address, &st.Epoch, &st.LastCounter, &updated); err != nil {
			return nil, fmt.Errorf("scan device state: %w", err)
		}
		st.UpdatedAt = time.Unix(updated, 0).UTC()
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate device states: %w", err)
	}
	if out == nil {
		out = []DeviceState{}
	}
	return out, nil
}

// Cycles returns the most recent fetch-cycle records for a device,
// newest first.
func (s *Store) Cycles(ctx context.Context, device string, limit int) ([]CycleRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device, started_at, fetched, new, duplicate, gap, malformed, outcome
		FROM fetch_cycles
		WHERE device = ?
		ORDER BY started_at DESC, id DESC
		LIMIT ?
	`, device, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []CycleRecord
	for rows.Next() {
		var c CycleRecord
		var started int64
		err := rows.Scan(&c.ID, &c.Device, &started,
			&c.Fetched, &c.New, &c.Duplicate, &c.Gap, &c.Malformed, &c.Outcome)
		if err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		c.StartedAt = time.Unix(started, 0).UTC()
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate cycles: %w", err)
	}
	if out == nil {
		out = []CycleRecord{}
	}
	return out, nil
}

// scanReading reads one row from a readings query. Nullable channel
// columns map to nil pointers.
func scanReading(rows *sql.Rows) (reading.Reading, error) {
	var r reading.Reading
	var ts int64
	var co2, battery sql.NullInt64
	var temp, hum, press sql.NullFloat64

	err := rows.Scan(&r.Device, &r.Epoch, &r.Seq, &ts, &co2, &temp, &hum, &press, &battery)
	if err != nil {
		return reading.Reading{}, fmt.Errorf("scan reading: %w", err)
	}

	r.Timestamp = time.Unix(ts, 0).UTC()
	if co2.Valid {
		r.CO2PPM = &co2.Int64
	}
	if temp.Valid {
		r.Temperature = &temp.Float64
	}
	if hum.Valid {
		r.Humidity = &hum.Float64
	}
	if press.Valid {
		r.PressureHPa = &press.Float64
	}
	if battery.Valid {
		r.BatteryPct = &battery.Int64
	}
	return r, nil
}
