package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"quill/internal/logging"
	"quill/internal/tools"
)

// EditResult is the raw output of edit_file.
type EditResult struct {
	Path         string
	Replacements int
}

// EditTool replaces text in an existing file under the same freshness
// discipline as WriteTool.
type EditTool struct{}

// NewEditTool returns the edit_file tool.
func NewEditTool() *EditTool { return &EditTool{} }

func (t *EditTool) Name() string        { return "edit_file" }
func (t *EditTool) Description() string { return "Edit a file by replacing text" }

func (t *EditTool) UserFacingName(input map[string]any) string { return "Edit" }

func (t *EditTool) Category() tools.Category { return tools.CategoryFile }
func (t *EditTool) IsReadOnly() bool         { return false }
func (t *EditTool) IsEnabled() bool          { return true }

func (t *EditTool) NeedsPermission(input map[string]any) bool { return true }

// PermissionScope grants write access rooted at the file's directory.
func (t *EditTool) PermissionScope(input map[string]any) string {
	path := stringArg(input, "path")
	if path == "" {
		return ""
	}
	return "write:" + filepath.Dir(absPath(path))
}

func (t *EditTool) InputSchema() *tools.Schema {
	return tools.MustSchema(`{
		"type": "object",
		"required": ["path", "old_text", "new_text"],
		"properties": {
			"path": {"type": "string", "description": "The file path to edit"},
			"old_text": {"type": "string", "description": "The text to find and replace"},
			"new_text": {"type": "string", "description": "The replacement text"},
			"replace_all": {"type": "boolean", "description": "Replace all occurrences (default: false, replaces first only)"}
		}
	}`)
}

func (t *EditTool) ValidateInput(input map[string]any, use *tools.UseContext) tools.ValidationResult {
	path := stringArg(input, "path")
	if path == "" {
		return tools.Invalid("path is required")
	}
	oldText := stringArg(input, "old_text")
	if oldText == "" {
		return tools.Invalid("old_text is required")
	}
	if oldText == stringArg(input, "new_text") {
		return tools.Invalid("old_text and new_text are identical; there is nothing to change")
	}

	abs := absPath(path)
	if !fileExists(abs) {
		return tools.Invalid(fmt.Sprintf("File does not exist: %s", path))
	}
	if err := use.CheckFresh(abs); err != nil {
		switch {
		case errors.Is(err, tools.ErrFileNotRead):
			return tools.Invalid(fmt.Sprintf("File has not been read yet. Read %s before editing it.", path))
		case errors.Is(err, tools.ErrStaleRead):
			return tools.Invalid(fmt.Sprintf("File %s has been modified since it was last read. Read it again before editing.", path))
		default:
			return tools.Invalid(err.Error())
		}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return tools.Invalid(fmt.Sprintf("Cannot read %s: %v", path, err))
	}
	if !strings.Contains(string(data), oldText) {
		return tools.Invalid(fmt.Sprintf("old_text not found in %s", path))
	}
	return tools.Valid()
}

func (t *EditTool) Call(ctx context.Context, input map[string]any, use *tools.UseContext) <-chan tools.Event {
	return tools.Stream(func(emit func(tools.Event)) {
		path := absPath(stringArg(input, "path"))
		oldText := stringArg(input, "old_text")
		newText := stringArg(input, "new_text")

		if ctx.Err() != nil {
			emit(tools.ErrorEvent(ctx.Err()))
			return
		}

		data, err := os.ReadFile(path)
		if err != nil {
			emit(tools.ErrorEvent(fmt.Errorf("failed to read file: %w", err)))
			return
		}
		content := string(data)

		var count int
		if boolArg(input, "replace_all", false) {
			count = strings.Count(content, oldText)
			content = strings.ReplaceAll(content, oldText, newText)
		} else {
			count = 1
			content = strings.Replace(content, oldText, newText, 1)
		}

		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			emit(tools.ErrorEvent(fmt.Errorf("failed to write file: %w", err)))
			return
		}

		if fi, err := os.Stat(path); err == nil {
			use.RecordRead(path, fi.ModTime())
		}

		logging.Tools("edit_file: %s (%d replacements)", path, count)
		res := EditResult{Path: path, Replacements: count}
		emit(tools.ResultEvent(res, t.RenderResultForAssistant(res)))
	})
}

func (t *EditTool) RenderResultForAssistant(data any) string {
	res, ok := data.(EditResult)
	if !ok {
		return ""
	}
	return fmt.Sprintf("Replaced %d occurrence(s) in %s", res.Replacements, res.Path)
}
