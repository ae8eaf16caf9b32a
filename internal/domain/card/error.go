package card

import (
	"errors"
	"fmt"
)

// Store errors. Every error returned by Store wraps exactly one of these.
var (
	ErrInvalidArgument      = errors.New("invalid argument")
	ErrAlreadyExists        = errors.New("card already exists")
	ErrNotFound             = errors.New("card not found")
	ErrFull                 = errors.New("card database is full")
	ErrInsufficientCapacity = errors.New("output buffer too small")
	ErrUnsupported          = errors.New("operation not supported")
	ErrCorruptState         = errors.New("card database is corrupt")
	ErrStorageUnavailable   = errors.New("storage unavailable")
	ErrLockFailure          = errors.New("failed to acquire card database lock")
)

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

func corruptf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrCorruptState, fmt.Sprintf(format, args...))
}

var codes = []struct {
	err  error
	code string
}{
	{ErrInvalidArgument, "invalid_argument"},
	{ErrAlreadyExists, "already_exists"},
	{ErrNotFound, "not_found"},
	{ErrFull, "full"},
	{ErrInsufficientCapacity, "insufficient_capacity"},
	{ErrUnsupported, "unsupported"},
	{ErrCorruptState, "corrupt_state"},
	{ErrStorageUnavailable, "storage_unavailable"},
	{ErrLockFailure, "lock_failure"},
}

// Code returns a stable snake_case name for the store error wrapped by err, "ok" for nil
// and "internal" for anything else.
func Code(err error) string {
	if err == nil {
		return "ok"
	}
	for _, c := range codes {
		if errors.Is(err, c.err) {
			return c.code
		}
	}
	return "internal"
}
