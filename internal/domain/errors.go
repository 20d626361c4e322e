package domain

import "errors"

// Domain errors represent error conditions in the relay lifecycle.
// These errors are returned by the public API and can be checked with errors.Is.
var (
	// ErrAlreadyRunning is returned when Start() is called on a running instance.
	ErrAlreadyRunning = errors.New("tpmsrelay: already running")

	// ErrNotRunning is returned when Stop() is called on a stopped instance.
	ErrNotRunning = errors.New("tpmsrelay: not running")

	// ErrShutdownTimeout is returned when graceful shutdown times out.
	ErrShutdownTimeout = errors.New("tpmsrelay: shutdown timeout")

	// ErrInvalidConfig is returned when configuration validation fails.
	ErrInvalidConfig = errors.New("tpmsrelay: invalid configuration")

	// ErrCaptureClosed is returned by a capture source that has no more frames.
	ErrCaptureClosed = errors.New("tpmsrelay: capture source closed")
)
