// Package transcript normalizes the raw conversation stream into the
// canonical message list used for both model round-trips and presentation.
//
// Normalization applies a fixed pipeline: split multi-block messages,
// filter ephemeral content, reorder tool results behind their requests,
// collapse superseded user turns, and sanitize for the network boundary.
package transcript

import (
	"github.com/google/uuid"

	"quill/internal/logging"
	"quill/internal/message"
)

// Placeholders substituted at the network boundary so the provider never
// receives a truly empty turn.
const (
	// NoContentPlaceholder replaces empty text content.
	NoContentPlaceholder = "(no content)"

	// EmptyImagePlaceholder replaces an image block with no data.
	EmptyImagePlaceholder = "(image omitted: no data)"
)

// Normalize applies the full reconciliation pipeline and returns the
// canonical transcript. The input is not modified. Normalize is idempotent:
// applying it to an already-canonical transcript returns an equal list.
func Normalize(msgs []message.Message) []message.Message {
	out := split(msgs)
	out = filterEphemeral(out)
	out = reorder(out)
	out = collapseUserTurns(out)
	return sanitize(out)
}

// ForModel returns the canonical transcript ready for a provider round-trip.
// Identical to Normalize today; kept separate so presentation-only filtering
// can diverge without touching callers.
func ForModel(msgs []message.Message) []message.Message {
	return Normalize(msgs)
}

// split expands every multi-block message into single-block messages with
// fresh ids. Cost and duration metrics on assistant messages are divided
// evenly across the pieces.
func split(msgs []message.Message) []message.Message {
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		switch mm := m.(type) {
		case message.AssistantMessage:
			if len(mm.Content) <= 1 {
				out = append(out, mm)
				continue
			}
			n := float64(len(mm.Content))
			for _, block := range mm.Content {
				out = append(out, message.AssistantMessage{
					UUID:              uuid.NewString(),
					Content:           []message.ContentBlock{block},
					CostUSD:           mm.CostUSD / n,
					DurationMS:        int64(float64(mm.DurationMS) / n),
					IsAPIErrorMessage: mm.IsAPIErrorMessage,
				})
			}
		case message.UserMessage:
			if len(mm.Content) <= 1 {
				out = append(out, mm)
				continue
			}
			for _, block := range mm.Content {
				piece := message.UserMessage{
					UUID:    uuid.NewString(),
					Content: []message.ContentBlock{block},
				}
				// The raw tool output stays with the result block.
				if _, ok := block.(message.ToolResultBlock); ok {
					piece.ToolUseResult = mm.ToolUseResult
				}
				out = append(out, piece)
			}
		default:
			out = append(out, m)
		}
	}
	return out
}

// filterEphemeral drops progress messages and messages whose only content is
// an empty text or image payload.
func filterEphemeral(msgs []message.Message) []message.Message {
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if _, ok := m.(message.ProgressMessage); ok {
			continue
		}
		if isEmptyMessage(m) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// isEmptyMessage reports whether every block of the message carries an
// empty text or image payload.
func isEmptyMessage(m message.Message) bool {
	blocks := contentOf(m)
	if len(blocks) == 0 {
		return true
	}
	for _, b := range blocks {
		switch bb := b.(type) {
		case message.TextBlock:
			if bb.Text != "" {
				return false
			}
		case message.ImageBlock:
			if bb.Data != "" {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// reorder moves every tool_result message to sit immediately after the
// tool_use message with the same id. Results with no matching request are
// appended at the end rather than dropped; that path indicates an upstream
// bug and is logged as an anomaly.
func reorder(msgs []message.Message) []message.Message {
	results := make(map[string]message.Message)
	var resultOrder []string
	rest := make([]message.Message, 0, len(msgs))

	for _, m := range msgs {
		if id, ok := toolResultID(m); ok {
			if _, dup := results[id]; dup {
				// Duplicate results keep their arrival position.
				rest = append(rest, m)
				continue
			}
			results[id] = m
			resultOrder = append(resultOrder, id)
			continue
		}
		rest = append(rest, m)
	}

	out := make([]message.Message, 0, len(msgs))
	for _, m := range rest {
		out = append(out, m)
		for _, block := range contentOf(m) {
			use, ok := block.(message.ToolUseBlock)
			if !ok {
				continue
			}
			if res, found := results[use.ID]; found {
				out = append(out, res)
				delete(results, use.ID)
			}
		}
	}

	// Leftover results have no matching request.
	for _, id := range resultOrder {
		if res, found := results[id]; found {
			logging.TranscriptWarn("tool_result %s has no matching tool_use; appending at end", id)
			out = append(out, res)
		}
	}
	return out
}

// toolResultID returns the tool_use id if the message is a single-block
// tool result.
func toolResultID(m message.Message) (string, bool) {
	um, ok := m.(message.UserMessage)
	if !ok || len(um.Content) != 1 {
		return "", false
	}
	tr, ok := um.Content[0].(message.ToolResultBlock)
	if !ok {
		return "", false
	}
	return tr.ToolUseID, true
}

// collapseUserTurns keeps only the last of consecutive plain-text user
// messages. Earlier ones are superseded scratch input, e.g. from command
// expansion. Tool-result messages are never collapsed.
func collapseUserTurns(msgs []message.Message) []message.Message {
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		if isPlainTextUser(m) && len(out) > 0 && isPlainTextUser(out[len(out)-1]) {
			out[len(out)-1] = m
			continue
		}
		out = append(out, m)
	}
	return out
}

func isPlainTextUser(m message.Message) bool {
	um, ok := m.(message.UserMessage)
	if !ok {
		return false
	}
	for _, b := range um.Content {
		if _, ok := b.(message.TextBlock); !ok {
			return false
		}
	}
	return true
}

// sanitize guarantees no empty payload crosses the network boundary: empty
// image blocks and all-empty text content are replaced by fixed placeholders.
func sanitize(msgs []message.Message) []message.Message {
	out := make([]message.Message, 0, len(msgs))
	for _, m := range msgs {
		switch mm := m.(type) {
		case message.UserMessage:
			mm.Content = sanitizeBlocks(mm.Content)
			out = append(out, mm)
		case message.AssistantMessage:
			mm.Content = sanitizeBlocks(mm.Content)
			out = append(out, mm)
		default:
			out = append(out, m)
		}
	}
	return out
}

func sanitizeBlocks(blocks []message.ContentBlock) []message.ContentBlock {
	out := make([]message.ContentBlock, 0, len(blocks))
	for _, b := range blocks {
		switch bb := b.(type) {
		case message.TextBlock:
			if bb.Text == "" {
				bb.Text = NoContentPlaceholder
			}
			out = append(out, bb)
		case message.ImageBlock:
			if bb.Data == "" {
				out = append(out, message.TextBlock{Text: EmptyImagePlaceholder})
				continue
			}
			out = append(out, bb)
		case message.ToolResultBlock:
			if len(bb.Content) == 0 {
				bb.Content = []message.ContentBlock{message.TextBlock{Text: NoContentPlaceholder}}
			} else {
				bb.Content = sanitizeBlocks(bb.Content)
			}
			out = append(out, bb)
		default:
			out = append(out, b)
		}
	}
	return out
}

// contentOf returns the content blocks of a user or assistant message.
func contentOf(m message.Message) []message.ContentBlock {
	switch mm := m.(type) {
	case message.UserMessage:
		return mm.Content
	case message.AssistantMessage:
		return mm.Content
	case message.ProgressMessage:
		if mm.Content != nil {
			return []message.ContentBlock{mm.Content}
		}
	}
	return nil
}
