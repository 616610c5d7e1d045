package command

import (
	"context"
	"fmt"
	"os"
	"strings"

	"quill/internal/message"
	"quill/internal/tools"
)

// Builtins assembles the standard command table.
func Builtins(registry *tools.Registry, version string) *Table {
	table := NewTable()

	table.MustRegister(NewLocal("help", "List available commands", func(ctx context.Context, args string) (string, error) {
		return table.Describe(), nil
	}))

	table.MustRegister(NewLocal("tools", "List registered tools", func(ctx context.Context, args string) (string, error) {
		if registry == nil || registry.Count() == 0 {
			return "No tools registered.", nil
		}
		var sb strings.Builder
		for _, tool := range registry.All() {
			fmt.Fprintf(&sb, "%-14s %s\n", tool.Name(), tool.Description())
		}
		return strings.TrimRight(sb.String(), "\n"), nil
	}))

	table.MustRegister(NewLocal("version", "Show version", func(ctx context.Context, args string) (string, error) {
		return "quill " + version, nil
	}))

	table.MustRegister(NewPrompt("review", "Ask the model to review a file", expandReview))

	table.MustRegister(NewInteractive("model", "Choose the active model"))

	return table
}

// expandReview turns `/review <path>` into seed messages carrying the file
// contents, so the model sees real code instead of just a path.
func expandReview(ctx context.Context, args string) ([]message.Message, error) {
	path := strings.TrimSpace(args)
	if path == "" {
		return nil, fmt.Errorf("usage: /review <path>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %v", path, err)
	}
	return []message.Message{
		message.NewUserText(fmt.Sprintf("Review the following file for bugs and unclear code.\n\n%s:\n```\n%s\n```", path, string(data))),
	}, nil
}
