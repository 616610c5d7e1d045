package transcript

import (
	"sort"

	"quill/internal/message"
)

// Status derivation is a pure projection over the message list. There is no
// separate bookkeeping store; callers recompute on demand so the displayed
// state can never diverge from the transcript.

// UnresolvedToolUseIDs returns, sorted, the ids of tool uses in assistant
// messages that have no matching tool_result anywhere later in the list.
func UnresolvedToolUseIDs(msgs []message.Message) []string {
	resolved := make(map[string]bool)
	requested := make(map[string]bool)

	for _, m := range msgs {
		for _, b := range contentOf(m) {
			switch bb := b.(type) {
			case message.ToolUseBlock:
				requested[bb.ID] = true
			case message.ToolResultBlock:
				resolved[bb.ToolUseID] = true
			}
		}
	}

	var out []string
	for id := range requested {
		if !resolved[id] {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out
}

// InProgressToolUseIDs returns the tool uses currently executing. Once
// progress messages are filtered there is no separate "started" state, so
// this is identical to the unresolved set.
func InProgressToolUseIDs(msgs []message.Message) []string {
	return UnresolvedToolUseIDs(msgs)
}

// ErroredToolUseIDs returns, sorted, the ids of tool uses whose matching
// tool_result carries the error flag.
func ErroredToolUseIDs(msgs []message.Message) []string {
	errored := make(map[string]bool)
	for _, m := range msgs {
		for _, b := range contentOf(m) {
			if tr, ok := b.(message.ToolResultBlock); ok && tr.IsError {
				errored[tr.ToolUseID] = true
			}
		}
	}

	out := make([]string, 0, len(errored))
	for id := range errored {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
