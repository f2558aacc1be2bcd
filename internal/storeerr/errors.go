// Package storeerr holds the error taxonomy shared by every storage tier.
//
// Tiers never invent their own error shapes: they wrap one of the sentinels
// below with fmt.Errorf("...: %w", ...) so callers can branch with errors.Is.
package storeerr

import (
	"errors"
	"fmt"
	"io/fs"
)

var (
	// ErrCapabilityUnavailable means the platform has no directory capability
	// at all. Informational; the embedded store is used permanently.
	ErrCapabilityUnavailable = errors.New("directory capability unavailable")

	// ErrPermissionDenied means the directory permission was declined or
	// revoked. Recoverable only through a user-initiated re-request.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrNotFound is the control-flow signal of a tiered lookup.
	ErrNotFound = errors.New("not found")

	// ErrCorruptData means a stored value failed to inflate or parse.
	ErrCorruptData = errors.New("corrupt data")

	// ErrQuotaExceeded means the mirror or the fallback store is full.
	ErrQuotaExceeded = errors.New("quota exceeded")

	// ErrGestureRequired means a prompting operation was attempted outside
	// of a live user action.
	ErrGestureRequired = errors.New("user gesture required")

	// ErrIO is the generic tier failure.
	ErrIO = errors.New("i/o failure")
)

// Classify maps a raw filesystem error onto the taxonomy. Errors that already
// carry a sentinel are returned unchanged.
func Classify(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, ErrCorruptData),
		errors.Is(err, ErrQuotaExceeded),
		errors.Is(err, ErrCapabilityUnavailable),
		errors.Is(err, ErrGestureRequired),
		errors.Is(err, ErrIO):
		return err
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return fmt.Errorf("%w: %v", ErrIO, err)
	}
}

// IsNotFound reports whether err is (or classifies as) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(Classify(err), ErrNotFound)
}
