package netwatchtypes

import "errors"

// Sentinel error kinds, per spec.md §7. Wrap these with fmt.Errorf("...: %w")
// for context; callers compare with errors.Is against these values.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrOutOfMemory       = errors.New("out of memory")
	ErrCapacityExhausted = errors.New("capacity exhausted")
	ErrNotFound          = errors.New("not found")
	ErrCompileError      = errors.New("pattern compile error")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrFilterInvalid     = errors.New("invalid filter")
	ErrNotRunning        = errors.New("not running")
	ErrFirmwareUnsigned  = errors.New("firmware signature absent")
)
