package tools

import "errors"

// Tool registry errors.
var (
	// ErrToolNotFound is returned when a tool is not registered.
	ErrToolNotFound = errors.New("tool not found")

	// ErrToolDisabled is returned when a registered tool is disabled.
	ErrToolDisabled = errors.New("tool is disabled")

	// ErrToolNameEmpty is returned when a tool has no name.
	ErrToolNameEmpty = errors.New("tool name cannot be empty")

	// ErrToolAlreadyRegistered is returned when registering a duplicate.
	ErrToolAlreadyRegistered = errors.New("tool already registered")

	// ErrInvalidInput is returned when input fails schema validation.
	ErrInvalidInput = errors.New("invalid tool input")
)

// Freshness errors used by the optimistic-concurrency discipline.
var (
	// ErrFileNotRead is returned when a write is attempted on a path that
	// was never read through the current context.
	ErrFileNotRead = errors.New("file has not been read yet")

	// ErrStaleRead is returned when the file changed on disk after it was
	// last read through the current context.
	ErrStaleRead = errors.New("file has changed since it was last read")
)
