package file

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"quill/internal/logging"
	"quill/internal/tools"
)

// WriteResult is the raw output of write_file.
type WriteResult struct {
	Path    string
	Bytes   int
	Created bool
}

// WriteTool creates or overwrites a file. Overwrites are refused unless the
// file was read through the current context and is unchanged on disk since.
type WriteTool struct{}

// NewWriteTool returns the write_file tool.
func NewWriteTool() *WriteTool { return &WriteTool{} }

func (t *WriteTool) Name() string        { return "write_file" }
func (t *WriteTool) Description() string { return "Write content to a file, creating it if it doesn't exist" }

func (t *WriteTool) UserFacingName(input map[string]any) string {
	if fileExists(absPath(stringArg(input, "path"))) {
		return "Update"
	}
	return "Create"
}

func (t *WriteTool) Category() tools.Category { return tools.CategoryFile }
func (t *WriteTool) IsReadOnly() bool         { return false }
func (t *WriteTool) IsEnabled() bool          { return true }

func (t *WriteTool) NeedsPermission(input map[string]any) bool { return true }

// PermissionScope grants write access rooted at the file's directory.
func (t *WriteTool) PermissionScope(input map[string]any) string {
	path := stringArg(input, "path")
	if path == "" {
		return ""
	}
	return "write:" + filepath.Dir(absPath(path))
}

func (t *WriteTool) InputSchema() *tools.Schema {
	return tools.MustSchema(`{
		"type": "object",
		"required": ["path", "content"],
		"properties": {
			"path": {"type": "string", "description": "The file path to write"},
			"content": {"type": "string", "description": "The content to write"},
			"create_dirs": {"type": "boolean", "description": "Create parent directories if they don't exist (default: true)"}
		}
	}`)
}

func (t *WriteTool) ValidateInput(input map[string]any, use *tools.UseContext) tools.ValidationResult {
	path := stringArg(input, "path")
	if path == "" {
		return tools.Invalid("path is required")
	}

	abs := absPath(path)
	if !fileExists(abs) {
		// Creating a new file needs no prior read.
		return tools.Valid()
	}

	if err := use.CheckFresh(abs); err != nil {
		switch {
		case errors.Is(err, tools.ErrFileNotRead):
			return tools.Invalid(fmt.Sprintf("File has not been read yet. Read %s before overwriting it.", path))
		case errors.Is(err, tools.ErrStaleRead):
			return tools.Invalid(fmt.Sprintf("File %s has been modified since it was last read. Read it again before writing.", path))
		default:
			return tools.Invalid(err.Error())
		}
	}
	return tools.Valid()
}

func (t *WriteTool) Call(ctx context.Context, input map[string]any, use *tools.UseContext) <-chan tools.Event {
	return tools.Stream(func(emit func(tools.Event)) {
		path := absPath(stringArg(input, "path"))
		content := stringArg(input, "content")
		created := !fileExists(path)

		// A cancelled write must not touch the file or the read stamps.
		if ctx.Err() != nil {
			emit(tools.ErrorEvent(ctx.Err()))
			return
		}

		if boolArg(input, "create_dirs", true) {
			if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
				emit(tools.ErrorEvent(fmt.Errorf("failed to create directories: %w", err)))
				return
			}
		}

		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			emit(tools.ErrorEvent(fmt.Errorf("failed to write file: %w", err)))
			return
		}

		// Update the stamp so later writes in this turn stay fresh.
		if fi, err := os.Stat(path); err == nil {
			use.RecordRead(path, fi.ModTime())
		}

		logging.Tools("write_file: %s (%d bytes, created=%v)", path, len(content), created)
		res := WriteResult{Path: path, Bytes: len(content), Created: created}
		emit(tools.ResultEvent(res, t.RenderResultForAssistant(res)))
	})
}

func (t *WriteTool) RenderResultForAssistant(data any) string {
	res, ok := data.(WriteResult)
	if !ok {
		return ""
	}
	verb := "Updated"
	if res.Created {
		verb = "Created"
	}
	return fmt.Sprintf("%s %s (%d bytes)", verb, res.Path, res.Bytes)
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
