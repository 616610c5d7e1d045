package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quill/internal/logging"
	"quill/internal/tools"
)

// ReadResult is the raw output of read_file, retained for presentation.
type ReadResult struct {
	Path    string
	Content string
	Lines   int
}

// ReadTool reads file contents and records the read stamp used by the
// freshness checks of the write-capable tools.
type ReadTool struct{}

// NewReadTool returns the read_file tool.
func NewReadTool() *ReadTool { return &ReadTool{} }

func (t *ReadTool) Name() string        { return "read_file" }
func (t *ReadTool) Description() string { return "Read the contents of a file" }

func (t *ReadTool) UserFacingName(input map[string]any) string { return "Read" }

func (t *ReadTool) Category() tools.Category { return tools.CategoryFile }
func (t *ReadTool) IsReadOnly() bool         { return true }
func (t *ReadTool) IsEnabled() bool          { return true }

func (t *ReadTool) NeedsPermission(input map[string]any) bool { return false }

func (t *ReadTool) InputSchema() *tools.Schema {
	return tools.MustSchema(`{
		"type": "object",
		"required": ["path"],
		"properties": {
			"path": {"type": "string", "description": "The file path to read"},
			"start_line": {"type": "integer", "description": "Starting line number (1-indexed, optional)"},
			"end_line": {"type": "integer", "description": "Ending line number (inclusive, optional)"}
		}
	}`)
}

func (t *ReadTool) ValidateInput(input map[string]any, use *tools.UseContext) tools.ValidationResult {
	path := stringArg(input, "path")
	if path == "" {
		return tools.Invalid("path is required")
	}
	fi, err := os.Stat(absPath(path))
	if err != nil {
		if os.IsNotExist(err) {
			return tools.Invalid(fmt.Sprintf("File does not exist: %s", path))
		}
		return tools.Invalid(fmt.Sprintf("Cannot access %s: %v", path, err))
	}
	if fi.IsDir() {
		return tools.Invalid(fmt.Sprintf("%s is a directory, not a file", path))
	}
	return tools.Valid()
}

func (t *ReadTool) Call(ctx context.Context, input map[string]any, use *tools.UseContext) <-chan tools.Event {
	return tools.Stream(func(emit func(tools.Event)) {
		path := absPath(stringArg(input, "path"))

		if ctx.Err() != nil {
			emit(tools.ErrorEvent(ctx.Err()))
			return
		}

		data, err := os.ReadFile(path)
		if err != nil {
			emit(tools.ErrorEvent(fmt.Errorf("failed to read file: %w", err)))
			return
		}

		fi, err := os.Stat(path)
		if err != nil {
			emit(tools.ErrorEvent(fmt.Errorf("failed to stat file: %w", err)))
			return
		}
		use.RecordRead(path, fi.ModTime())

		content := string(data)
		lines := strings.Split(content, "\n")

		start := intArg(input, "start_line", 1)
		end := intArg(input, "end_line", len(lines))
		if start < 1 {
			start = 1
		}
		if end > len(lines) {
			end = len(lines)
		}
		if start > 1 || end < len(lines) {
			if start > end {
				emit(tools.ErrorEvent(fmt.Errorf("start_line %d is past end_line %d", start, end)))
				return
			}
			content = strings.Join(lines[start-1:end], "\n")
		}

		logging.Tools("read_file: %s (%d bytes)", path, len(content))
		res := ReadResult{Path: path, Content: content, Lines: len(lines)}
		emit(tools.ResultEvent(res, t.RenderResultForAssistant(res)))
	})
}

func (t *ReadTool) RenderResultForAssistant(data any) string {
	res, ok := data.(ReadResult)
	if !ok {
		return ""
	}
	return res.Content
}

// absPath normalizes a path for use as a stamp key.
func absPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

func stringArg(input map[string]any, key string) string {
	s, _ := input[key].(string)
	return s
}

func intArg(input map[string]any, key string, def int) int {
	switch v := input[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	default:
		return def
	}
}

func boolArg(input map[string]any, key string, def bool) bool {
	if v, ok := input[key].(bool); ok {
		return v
	}
	return def
}
