// Package reconcile computes which of a device's currently retrievable
// history samples are new relative to the archive, and in what order they
// must be inserted.
//
// The device transmits no sequence numbers: only a running total-readings
// counter and a per-sample age offset. Sequences are derived here by
// counting backward from the counter, newest slot first. Everything in
// this package is a pure function over its inputs; the caller owns all
// persistence and all cross-invocation state (previous counter, epoch).
package reconcile
