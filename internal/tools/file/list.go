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

// ListResult is the raw output of list_files.
type ListResult struct {
	Path    string
	Entries []string
}

// ListTool lists directory contents.
type ListTool struct{}

// NewListTool returns the list_files tool.
func NewListTool() *ListTool { return &ListTool{} }

func (t *ListTool) Name() string        { return "list_files" }
func (t *ListTool) Description() string { return "List files in a directory" }

func (t *ListTool) UserFacingName(input map[string]any) string { return "List" }

func (t *ListTool) Category() tools.Category { return tools.CategoryFile }
func (t *ListTool) IsReadOnly() bool         { return true }
func (t *ListTool) IsEnabled() bool          { return true }

func (t *ListTool) NeedsPermission(input map[string]any) bool { return false }

func (t *ListTool) InputSchema() *tools.Schema {
	return tools.MustSchema(`{
		"type": "object",
		"required": ["path"],
		"properties": {
			"path": {"type": "string", "description": "The directory path to list"},
			"recursive": {"type": "boolean", "description": "List recursively (default: false)"},
			"include_hidden": {"type": "boolean", "description": "Include hidden files (default: false)"}
		}
	}`)
}

func (t *ListTool) ValidateInput(input map[string]any, use *tools.UseContext) tools.ValidationResult {
	path := stringArg(input, "path")
	if path == "" {
		return tools.Invalid("path is required")
	}
	fi, err := os.Stat(absPath(path))
	if err != nil {
		return tools.Invalid(fmt.Sprintf("Cannot access %s: %v", path, err))
	}
	if !fi.IsDir() {
		return tools.Invalid(fmt.Sprintf("%s is not a directory", path))
	}
	return tools.Valid()
}

func (t *ListTool) Call(ctx context.Context, input map[string]any, use *tools.UseContext) <-chan tools.Event {
	return tools.Stream(func(emit func(tools.Event)) {
		path := absPath(stringArg(input, "path"))
		recursive := boolArg(input, "recursive", false)
		includeHidden := boolArg(input, "include_hidden", false)

		var entries []string

		if recursive {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return nil // Skip errors
				}
				if ctx.Err() != nil {
					return filepath.SkipAll
				}

				name := info.Name()
				if !includeHidden && strings.HasPrefix(name, ".") {
					if info.IsDir() && p != path {
						return filepath.SkipDir
					}
					return nil
				}

				rel, _ := filepath.Rel(path, p)
				if rel == "." {
					return nil
				}
				if info.IsDir() {
					entries = append(entries, rel+"/")
				} else {
					entries = append(entries, rel)
				}
				return nil
			})
			if err != nil {
				emit(tools.ErrorEvent(fmt.Errorf("failed to walk directory: %w", err)))
				return
			}
			if ctx.Err() != nil {
				emit(tools.ErrorEvent(ctx.Err()))
				return
			}
		} else {
			dirEntries, err := os.ReadDir(path)
			if err != nil {
				emit(tools.ErrorEvent(fmt.Errorf("failed to read directory: %w", err)))
				return
			}
			for _, entry := range dirEntries {
				name := entry.Name()
				if !includeHidden && strings.HasPrefix(name, ".") {
					continue
				}
				if entry.IsDir() {
					entries = append(entries, name+"/")
				} else {
					entries = append(entries, name)
				}
			}
		}

		logging.ToolsDebug("list_files: %s (%d entries)", path, len(entries))
		res := ListResult{Path: path, Entries: entries}
		emit(tools.ResultEvent(res, t.RenderResultForAssistant(res)))
	})
}

func (t *ListTool) RenderResultForAssistant(data any) string {
	res, ok := data.(ListResult)
	if !ok {
		return ""
	}
	if len(res.Entries) == 0 {
		return "(empty directory)"
	}
	return strings.Join(res.Entries, "\n")
}
