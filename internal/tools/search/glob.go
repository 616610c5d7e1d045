package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"quill/internal/logging"
	"quill/internal/tools"
)

const defaultGlobLimit = 100

// GlobResult is the raw output of glob.
type GlobResult struct {
	Pattern   string
	Matches   []string
	Truncated bool
}

// GlobTool finds files matching a glob pattern, with ** support for
// recursive matching.
type GlobTool struct{}

// NewGlobTool returns the glob tool.
func NewGlobTool() *GlobTool { return &GlobTool{} }

func (t *GlobTool) Name() string        { return "glob" }
func (t *GlobTool) Description() string { return "Find files matching a glob pattern" }

func (t *GlobTool) UserFacingName(input map[string]any) string { return "Glob" }

func (t *GlobTool) Category() tools.Category { return tools.CategorySearch }
func (t *GlobTool) IsReadOnly() bool         { return true }
func (t *GlobTool) IsEnabled() bool          { return true }

func (t *GlobTool) NeedsPermission(input map[string]any) bool { return false }

func (t *GlobTool) InputSchema() *tools.Schema {
	return tools.MustSchema(`{
		"type": "object",
		"required": ["pattern"],
		"properties": {
			"pattern": {"type": "string", "description": "Glob pattern (e.g., '**/*.go', 'src/*.ts')"},
			"base_path": {"type": "string", "description": "Base directory for the search (default: current directory)"},
			"max_results": {"type": "integer", "description": "Maximum number of results (default: 100)"}
		}
	}`)
}

func (t *GlobTool) ValidateInput(input map[string]any, use *tools.UseContext) tools.ValidationResult {
	if stringArg(input, "pattern") == "" {
		return tools.Invalid("pattern is required")
	}
	if base := stringArg(input, "base_path"); base != "" {
		fi, err := os.Stat(base)
		if err != nil {
			return tools.Invalid(fmt.Sprintf("Cannot access %s: %v", base, err))
		}
		if !fi.IsDir() {
			return tools.Invalid(fmt.Sprintf("%s is not a directory", base))
		}
	}
	return tools.Valid()
}

func (t *GlobTool) Call(ctx context.Context, input map[string]any, use *tools.UseContext) <-chan tools.Event {
	return tools.Stream(func(emit func(tools.Event)) {
		pattern := stringArg(input, "pattern")
		base := stringArg(input, "base_path")
		if base == "" {
			base = "."
		}
		limit := intArg(input, "max_results", defaultGlobLimit)

		logging.ToolsDebug("glob: pattern=%s base=%s", pattern, base)

		matches, truncated, err := globMatch(ctx, base, pattern, limit)
		if err != nil {
			emit(tools.ErrorEvent(err))
			return
		}
		sort.Strings(matches)

		logging.Tools("glob: %s (%d matches)", pattern, len(matches))
		res := GlobResult{Pattern: pattern, Matches: matches, Truncated: truncated}
		emit(tools.ResultEvent(res, t.RenderResultForAssistant(res)))
	})
}

func (t *GlobTool) RenderResultForAssistant(data any) string {
	res, ok := data.(GlobResult)
	if !ok {
		return ""
	}
	if len(res.Matches) == 0 {
		return "No files found matching pattern: " + res.Pattern
	}
	out := strings.Join(res.Matches, "\n")
	if res.Truncated {
		out += "\n...[truncated]"
	}
	return out
}

// globMatch resolves a pattern against base. Patterns containing ** walk the
// tree and match the suffix against each file's name and relative path.
func globMatch(ctx context.Context, base, pattern string, limit int) ([]string, bool, error) {
	var matches []string
	truncated := false

	if strings.Contains(pattern, "**") {
		parts := strings.SplitN(pattern, "**", 2)
		prefix := strings.TrimSuffix(parts[0], "/")
		suffix := strings.TrimPrefix(parts[1], "/")

		root := base
		if prefix != "" {
			root = filepath.Join(base, prefix)
		}

		err := filepath.Walk(root, func(p string, info os.FileInfo, err error) error {
			if err != nil {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if info.IsDir() {
				if strings.HasPrefix(info.Name(), ".") && p != root {
					return filepath.SkipDir
				}
				return nil
			}
			if len(matches) >= limit {
				truncated = true
				return filepath.SkipAll
			}

			matched := suffix == ""
			if !matched {
				matched, _ = filepath.Match(suffix, info.Name())
			}
			if !matched {
				rel, _ := filepath.Rel(root, p)
				matched, _ = filepath.Match(suffix, rel)
			}
			if matched {
				rel, _ := filepath.Rel(base, p)
				matches = append(matches, rel)
			}
			return nil
		})
		if err != nil {
			return nil, false, fmt.Errorf("failed to walk directory: %w", err)
		}
		return matches, truncated, nil
	}

	globMatches, err := filepath.Glob(filepath.Join(base, pattern))
	if err != nil {
		return nil, false, fmt.Errorf("invalid glob pattern: %w", err)
	}
	for _, m := range globMatches {
		if len(matches) >= limit {
			truncated = true
			break
		}
		rel, _ := filepath.Rel(base, m)
		matches = append(matches, rel)
	}
	return matches, truncated, nil
}

func stringArg(input map[string]any, key string) string {
	s, _ := input[key].(string)
	return s
}

func intArg(input map[string]any, key string, def int) int {
	switch v := input[key].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		if v > 0 {
			return int(v)
		}
	}
	return def
}

func boolArg(input map[string]any, key string, def bool) bool {
	if v, ok := input[key].(bool); ok {
		return v
	}
	return def
}
