// Package message defines the immutable message model shared by the
// conversation loop, tool execution, and transcript normalization.
//
// Messages are never mutated after creation. Updates are expressed by
// appending new messages and re-deriving status from the full list.
package message

import (
	"github.com/google/uuid"
)

// Message is the sealed set of transcript entries.
type Message interface {
	message()

	// ID returns the unique identifier assigned at creation.
	ID() string
}

// UserMessage is input from the user, or a tool result fed back to the model.
type UserMessage struct {
	// UUID uniquely identifies the message.
	UUID string

	// Content holds the ordered content blocks.
	Content []ContentBlock

	// ToolUseResult carries the raw structured output of a tool execution,
	// retained for presentation. Nil for ordinary user input.
	ToolUseResult any
}

func (UserMessage) message() {}

// ID returns the message id.
func (m UserMessage) ID() string { return m.UUID }

// AssistantMessage is output produced by the model.
type AssistantMessage struct {
	// UUID uniquely identifies the message.
	UUID string

	// Content holds the ordered content blocks (text and tool-use requests).
	Content []ContentBlock

	// CostUSD is the API cost attributed to this message.
	CostUSD float64

	// DurationMS is how long the API call took.
	DurationMS int64

	// IsAPIErrorMessage marks a synthetic assistant message created locally
	// to report an error, rather than returned by the model.
	IsAPIErrorMessage bool
}

func (AssistantMessage) message() {}

// ID returns the message id.
func (m AssistantMessage) ID() string { return m.UUID }

// ProgressMessage reports on an in-flight tool use. It exists only for live
// presentation and is filtered out before any model round-trip.
type ProgressMessage struct {
	// UUID uniquely identifies the message.
	UUID string

	// ToolUseID is the id of the tool use this progress reports on.
	ToolUseID string

	// SiblingToolUseIDs are the other tool uses requested in the same
	// assistant turn.
	SiblingToolUseIDs []string

	// Content is the in-flight assistant content block.
	Content ContentBlock

	// Transcript is the normalized transcript snapshot at emission time.
	Transcript []Message
}

func (ProgressMessage) message() {}

// ID returns the message id.
func (m ProgressMessage) ID() string { return m.UUID }

// NewUserMessage creates a user message with a fresh id.
func NewUserMessage(blocks ...ContentBlock) UserMessage {
	return UserMessage{UUID: uuid.NewString(), Content: blocks}
}

// NewUserText creates a plain-text user message.
func NewUserText(text string) UserMessage {
	return NewUserMessage(TextBlock{Text: text})
}

// NewAssistantMessage creates an assistant message with a fresh id.
func NewAssistantMessage(blocks ...ContentBlock) AssistantMessage {
	return AssistantMessage{UUID: uuid.NewString(), Content: blocks}
}

// NewAssistantText creates a synthetic assistant message reporting local
// text, e.g. a command's own output or an error explanation.
func NewAssistantText(text string, isErr bool) AssistantMessage {
	return AssistantMessage{
		UUID:              uuid.NewString(),
		Content:           []ContentBlock{TextBlock{Text: text}},
		IsAPIErrorMessage: isErr,
	}
}

// NewToolResultMessage creates the user message that carries a tool result
// back to the model. The raw data is retained alongside the rendered text.
func NewToolResultMessage(block ToolResultBlock, data any) UserMessage {
	return UserMessage{
		UUID:          uuid.NewString(),
		Content:       []ContentBlock{block},
		ToolUseResult: data,
	}
}

// NewProgressMessage creates a progress message for an in-flight tool use.
func NewProgressMessage(toolUseID string, siblings []string, content ContentBlock, transcript []Message) ProgressMessage {
	return ProgressMessage{
		UUID:              uuid.NewString(),
		ToolUseID:         toolUseID,
		SiblingToolUseIDs: siblings,
		Content:           content,
		Transcript:        transcript,
	}
}
