// Package tools defines the contract every executable capability implements
// and the registry that resolves tools by name.
//
// A tool is pure metadata plus three operations: a side-effect-free input
// validation, a permission predicate, and a streaming call that emits zero or
// more progress events followed by exactly one terminal result or error.
// Execution itself is driven by internal/runner; tools never talk to the
// model or the transcript directly.
package tools

import (
	"context"
)

// Category classifies tools for filtering and permission defaults.
type Category string

const (
	// CategoryFile covers file read/write/edit operations.
	CategoryFile Category = "file"

	// CategorySearch covers glob and content search.
	CategorySearch Category = "search"

	// CategoryShell covers shell command execution.
	CategoryShell Category = "shell"

	// CategoryGeneral is for tools that fit no other category.
	CategoryGeneral Category = "general"
)

// Tool is the contract every capability satisfies. Implementations are
// registered once at process start and are immutable thereafter.
type Tool interface {
	// Name is the protocol identifier the model uses to invoke the tool.
	Name() string

	// UserFacingName is the display name, which may depend on the input
	// (e.g. "Create" vs "Update" for a file write).
	UserFacingName(input map[string]any) string

	// Description explains what the tool does, for the model's consumption.
	Description() string

	// Category classifies the tool.
	Category() Category

	// InputSchema describes and validates the structured input.
	InputSchema() *Schema

	// IsReadOnly reports whether the tool performs no side effects.
	IsReadOnly() bool

	// IsEnabled reports whether the tool is available at all.
	IsEnabled() bool

	// NeedsPermission reports whether this specific invocation requires a
	// gated decision. Read-only tools typically never do.
	NeedsPermission(input map[string]any) bool

	// ValidateInput is a pure precondition check. A failing result
	// short-circuits execution and is surfaced to the model as an
	// explanatory message, never as a fault.
	ValidateInput(input map[string]any, use *UseContext) ValidationResult

	// Call executes the tool. The returned channel yields zero or more
	// progress events, then exactly one terminal result or error event,
	// then closes. Implementations must observe ctx at every yield point
	// and stop promptly once it is cancelled.
	Call(ctx context.Context, input map[string]any, use *UseContext) <-chan Event

	// RenderResultForAssistant is the deterministic projection of a
	// result's raw data into model-consumable text. The raw data is
	// retained separately for presentation.
	RenderResultForAssistant(data any) string
}

// PermissionScoper is optionally implemented by tools whose "always allow"
// grants should be scoped narrower than the tool name, e.g. write access
// rooted at a directory.
type PermissionScoper interface {
	PermissionScope(input map[string]any) string
}

// EventKind tags the variants of a tool call's event stream.
type EventKind int

const (
	// EventProgress is an intermediate status update.
	EventProgress EventKind = iota

	// EventResult is the single successful terminal event.
	EventResult

	// EventError is the single failed terminal event.
	EventError
)

// Event is one element of a tool call's stream.
type Event struct {
	Kind EventKind

	// Progress carries status text for EventProgress.
	Progress string

	// Data is the raw structured output for EventResult.
	Data any

	// ForAssistant is the rendered projection of Data for EventResult.
	ForAssistant string

	// Err is set for EventError.
	Err error
}

// ProgressEvent builds a progress event.
func ProgressEvent(text string) Event {
	return Event{Kind: EventProgress, Progress: text}
}

// ResultEvent builds the terminal success event.
func ResultEvent(data any, forAssistant string) Event {
	return Event{Kind: EventResult, Data: data, ForAssistant: forAssistant}
}

// ErrorEvent builds the terminal failure event.
func ErrorEvent(err error) Event {
	return Event{Kind: EventError, Err: err}
}

// ValidationResult is the outcome of a precondition check.
type ValidationResult struct {
	// OK is true when execution may proceed.
	OK bool

	// Reason explains a failing check, phrased for the model.
	Reason string

	// Meta carries optional structured detail about the failure.
	Meta map[string]any
}

// Valid returns a passing validation result.
func Valid() ValidationResult {
	return ValidationResult{OK: true}
}

// Invalid returns a failing validation result with the given reason.
func Invalid(reason string) ValidationResult {
	return ValidationResult{OK: false, Reason: reason}
}
