package search

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"quill/internal/logging"
	"quill/internal/tools"
)

const defaultGrepLimit = 50

// GrepMatch is a single content match.
type GrepMatch struct {
	File       string
	LineNumber int
	Line       string
}

// GrepResult is the raw output of grep.
type GrepResult struct {
	Pattern   string
	Matches   []GrepMatch
	Truncated bool
}

// GrepTool searches file contents with a regular expression.
type GrepTool struct{}

// NewGrepTool returns the grep tool.
func NewGrepTool() *GrepTool { return &GrepTool{} }

func (t *GrepTool) Name() string        { return "grep" }
func (t *GrepTool) Description() string { return "Search for a pattern in file contents" }

func (t *GrepTool) UserFacingName(input map[string]any) string { return "Search" }

func (t *GrepTool) Category() tools.Category { return tools.CategorySearch }
func (t *GrepTool) IsReadOnly() bool         { return true }
func (t *GrepTool) IsEnabled() bool          { return true }

func (t *GrepTool) NeedsPermission(input map[string]any) bool { return false }

func (t *GrepTool) InputSchema() *tools.Schema {
	return tools.MustSchema(`{
		"type": "object",
		"required": ["pattern"],
		"properties": {
			"pattern": {"type": "string", "description": "Regular expression pattern to search for"},
			"path": {"type": "string", "description": "File or directory to search (default: current directory)"},
			"file_pattern": {"type": "string", "description": "Glob pattern for files to search (e.g., '*.go')"},
			"max_results": {"type": "integer", "description": "Maximum number of matches (default: 50)"},
			"ignore_case": {"type": "boolean", "description": "Case insensitive search (default: false)"}
		}
	}`)
}

func (t *GrepTool) ValidateInput(input map[string]any, use *tools.UseContext) tools.ValidationResult {
	pattern := stringArg(input, "pattern")
	if pattern == "" {
		return tools.Invalid("pattern is required")
	}
	if boolArg(input, "ignore_case", false) {
		pattern = "(?i)" + pattern
	}
	if _, err := regexp.Compile(pattern); err != nil {
		return tools.Invalid(fmt.Sprintf("invalid regex pattern: %v", err))
	}
	if path := stringArg(input, "path"); path != "" {
		if _, err := os.Stat(path); err != nil {
			return tools.Invalid(fmt.Sprintf("Cannot access %s: %v", path, err))
		}
	}
	return tools.Valid()
}

func (t *GrepTool) Call(ctx context.Context, input map[string]any, use *tools.UseContext) <-chan tools.Event {
	return tools.Stream(func(emit func(tools.Event)) {
		pattern := stringArg(input, "pattern")
		if boolArg(input, "ignore_case", false) {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			emit(tools.ErrorEvent(fmt.Errorf("invalid regex pattern: %w", err)))
			return
		}

		path := stringArg(input, "path")
		if path == "" {
			path = "."
		}
		limit := intArg(input, "max_results", defaultGrepLimit)
		filePattern := stringArg(input, "file_pattern")

		logging.ToolsDebug("grep: pattern=%s path=%s", pattern, path)

		files, err := collectFiles(ctx, path, filePattern)
		if err != nil {
			emit(tools.ErrorEvent(err))
			return
		}

		var matches []GrepMatch
		truncated := false
		for _, file := range files {
			if ctx.Err() != nil {
				emit(tools.ErrorEvent(ctx.Err()))
				return
			}
			if len(matches) >= limit {
				truncated = true
				break
			}
			fileMatches, err := searchFile(file, re, limit-len(matches))
			if err != nil {
				continue
			}
			matches = append(matches, fileMatches...)
		}

		logging.Tools("grep: %s (%d matches)", stringArg(input, "pattern"), len(matches))
		res := GrepResult{Pattern: stringArg(input, "pattern"), Matches: matches, Truncated: truncated}
		emit(tools.ResultEvent(res, t.RenderResultForAssistant(res)))
	})
}

func (t *GrepTool) RenderResultForAssistant(data any) string {
	res, ok := data.(GrepResult)
	if !ok {
		return ""
	}
	if len(res.Matches) == 0 {
		return "No matches found for pattern: " + res.Pattern
	}
	var sb strings.Builder
	for _, m := range res.Matches {
		fmt.Fprintf(&sb, "%s:%d: %s\n", m.File, m.LineNumber, m.Line)
	}
	if res.Truncated {
		sb.WriteString("...[truncated]\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}

func collectFiles(ctx context.Context, path, filePattern string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("path not found: %w", err)
	}
	if !info.IsDir() {
		return []string{path}, nil
	}

	var files []string
	err = filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.IsDir() {
			name := info.Name()
			if strings.HasPrefix(name, ".") && p != path || name == "node_modules" || name == "vendor" {
				return filepath.SkipDir
			}
			return nil
		}
		if filePattern != "" {
			matched, _ := filepath.Match(filePattern, info.Name())
			if !matched {
				return nil
			}
		}
		files = append(files, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk directory: %w", err)
	}
	return files, nil
}

func searchFile(path string, re *regexp.Regexp, maxMatches int) ([]GrepMatch, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var matches []GrepMatch
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if re.MatchString(line) {
			matches = append(matches, GrepMatch{
				File:       path,
				LineNumber: lineNum,
				Line:       strings.TrimSpace(line),
			})
			if len(matches) >= maxMatches {
				break
			}
		}
	}
	return matches, scanner.Err()
}
