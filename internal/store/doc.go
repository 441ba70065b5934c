// Package store persists archived readings in a local SQLite database.
//
// The store exclusively owns persisted readings: the reconciler only sees
// the last archived sequence and proposes batches, the archiver only calls
// InsertBatch. Readings are append-only; nothing here updates or deletes a
// reading once written.
//
// Key invariants:
//   - (device, epoch, seq) is unique; duplicate inserts are silent no-ops
//   - InsertBatch is a single transaction: all rows become visible
//     together or not at all
//   - reads may run concurrently with a fetch under SQLite's WAL mode
package store
