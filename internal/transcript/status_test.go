package transcript

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"quill/internal/message"
)

func TestUnresolvedToolUseIDs(t *testing.T) {
	tests := []struct {
		name string
		msgs []message.Message
		want []string
	}{
		{
			name: "empty transcript",
			msgs: nil,
			want: nil,
		},
		{
			name: "all resolved",
			msgs: []message.Message{
				assistantToolUse("tu_1", "read_file"),
				userToolResult("tu_1", "ok"),
			},
			want: nil,
		},
		{
			name: "one unresolved",
			msgs: []message.Message{
				assistantToolUse("tu_1", "read_file"),
				assistantToolUse("tu_2", "glob"),
				userToolResult("tu_1", "ok"),
			},
			want: []string{"tu_2"},
		},
		{
			name: "sorted output",
			msgs: []message.Message{
				assistantToolUse("tu_b", "glob"),
				assistantToolUse("tu_a", "grep"),
			},
			want: []string{"tu_a", "tu_b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := UnresolvedToolUseIDs(tt.msgs)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("UnresolvedToolUseIDs mismatch (-want +got):\n%s", diff)
			}
			// In-progress is defined as the same set.
			if diff := cmp.Diff(got, InProgressToolUseIDs(tt.msgs)); diff != "" {
				t.Errorf("InProgressToolUseIDs diverged from unresolved set:\n%s", diff)
			}
		})
	}
}

func TestErroredToolUseIDs(t *testing.T) {
	msgs := []message.Message{
		assistantToolUse("tu_1", "write_file"),
		assistantToolUse("tu_2", "glob"),
		message.NewToolResultMessage(message.TextResult("tu_1", "stale read", true), nil),
		userToolResult("tu_2", "fine"),
	}

	got := ErroredToolUseIDs(msgs)
	want := []string{"tu_1"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ErroredToolUseIDs mismatch (-want +got):\n%s", diff)
	}
}

func TestStatusRecomputedAfterAppend(t *testing.T) {
	msgs := []message.Message{assistantToolUse("tu_1", "read_file")}

	if got := UnresolvedToolUseIDs(msgs); len(got) != 1 {
		t.Fatalf("expected tu_1 unresolved, got %v", got)
	}

	msgs = append(msgs, userToolResult("tu_1", "done"))

	if got := UnresolvedToolUseIDs(msgs); len(got) != 0 {
		t.Fatalf("expected no unresolved ids after result append, got %v", got)
	}
}
