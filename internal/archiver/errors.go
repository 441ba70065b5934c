package archiver

import (
	"errors"
	"fmt"
)

// CycleError classifies a fetch-cycle failure. Every error that crosses
// the archiver boundary is one of these; the CLI maps the code to an
// exit status and a message.
type CycleError struct {
	// Code identifies the failure category.
	Code ErrorCode

	// Device is the configured device name.
	Device string

	// Err is the underlying transport or storage error.
	Err error
}

// ErrorCode categorizes fetch-cycle failures.
type ErrorCode string

const (
	// ErrCodeDeviceUnreachable covers every sensor-side failure: connect
	// timeout, read failure, missing GATT service. The cycle aborts with
	// the archive untouched; retry belongs to the external scheduler.
	ErrCodeDeviceUnreachable ErrorCode = "DEVICE_UNREACHABLE"

	// ErrCodeStoreWriteFailed indicates the batch transaction did not
	// commit. The whole batch is discarded; the next cycle re-fetches
	// and reconciliation skips whatever did land.
	ErrCodeStoreWriteFailed ErrorCode = "STORE_WRITE_FAILED"
)

// Error implements the error interface.
func (e *CycleError) Error() string {
	if e.Device != "" {
		return fmt.Sprintf("%s: device %s: %v", e.Code, e.Device, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap exposes the underlying error to errors.Is/As.
func (e *CycleError) Unwrap() error { return e.Err }

// IsFetchFailed reports whether err is a sensor-side failure.
func IsFetchFailed(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce) && ce.Code == ErrCodeDeviceUnreachable
}

// IsStoreWriteFailed reports whether err is a storage-side failure.
func IsStoreWriteFailed(err error) bool {
	var ce *CycleError
	return errors.As(err, &ce) && ce.Code == ErrCodeStoreWriteFailed
}
