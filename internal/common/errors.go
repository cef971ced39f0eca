// Package common defines shared constants and sentinel errors used across
// the data-layer components. Callers should use errors.Is/errors.As to
// match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrNetwork indicates a request could not complete at the transport
	// level. Always recovered locally by falling back to the offline path.
	ErrNetwork = errors.New("network unavailable")

	// ErrServerRejected indicates the request completed but the remote
	// authority answered with a non-success status. Treated identically to
	// ErrNetwork for fallback purposes.
	ErrServerRejected = errors.New("server rejected request")

	// ErrNotFound indicates a cache or store lookup missed.
	ErrNotFound = errors.New("not found")
)

// StorageError wraps a failed local store transaction. It is always
// surfaced to the immediate caller and never retried automatically.
type StorageError struct {
	// Op names the failing store operation.
	Op string

	// Quota is true when the failure was caused by exhausted storage
	// space. There is no special-cased recovery: offline saves simply
	// stop working until space is freed.
	Quota bool

	Err error
}

func (e *StorageError) Error() string {
	if e.Quota {
		return fmt.Sprintf("storage %s: quota exceeded: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
