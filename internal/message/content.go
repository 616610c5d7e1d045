package message

// ContentBlock is the sealed set of block variants that can appear in a
// message's content. Exactly one concrete type per wire variant.
type ContentBlock interface {
	contentBlock()
}

// TextBlock represents plain text content.
type TextBlock struct {
	// Text contains the content
	Text string `json:"text"`
}

func (TextBlock) contentBlock() {}

// ImageBlock represents embedded image data.
type ImageBlock struct {
	// MediaType is the MIME type, e.g. "image/png"
	MediaType string `json:"media_type"`

	// Data is the base64-encoded payload
	Data string `json:"data"`
}

func (ImageBlock) contentBlock() {}

// ToolUseBlock represents a tool invocation requested by the model.
type ToolUseBlock struct {
	// ID uniquely identifies this tool use
	ID string `json:"id"`

	// Name is the tool being invoked
	Name string `json:"name"`

	// Input contains tool parameters.
	// Intentionally flexible as inputs vary by tool.
	Input map[string]any `json:"input"`
}

func (ToolUseBlock) contentBlock() {}

// ToolResultBlock represents the result of a tool execution.
type ToolResultBlock struct {
	// ToolUseID links to the corresponding tool use
	ToolUseID string `json:"tool_use_id"`

	// Content is the tool's output blocks.
	Content []ContentBlock `json:"content"`

	// IsError indicates if the tool execution failed
	IsError bool `json:"is_error,omitempty"`
}

func (ToolResultBlock) contentBlock() {}

// TextResult builds a single-text-block tool result.
func TextResult(toolUseID, text string, isErr bool) ToolResultBlock {
	return ToolResultBlock{
		ToolUseID: toolUseID,
		Content:   []ContentBlock{TextBlock{Text: text}},
		IsError:   isErr,
	}
}

// ResultText flattens a tool result's content into plain text.
func ResultText(b ToolResultBlock) string {
	var out string
	for _, c := range b.Content {
		if t, ok := c.(TextBlock); ok {
			if out != "" {
				out += "\n"
			}
			out += t.Text
		}
	}
	return out
}
