package search

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"quill/internal/tools"
)

func drive(t *testing.T, ch <-chan tools.Event) tools.Event {
	t.Helper()
	var terminal tools.Event
	got := false
	for ev := range ch {
		if ev.Kind != tools.EventProgress {
			terminal = ev
			got = true
		}
	}
	if !got {
		t.Fatal("tool stream closed without a terminal event")
	}
	return terminal
}

func makeTree(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"main.go":          "package main\n\nfunc main() {}\n",
		"util.go":          "package main\n\nfunc helper() int { return 42 }\n",
		"README.md":        "# Project\n\nhelper docs\n",
		"sub/handler.go":   "package sub\n\nfunc Handle() {}\n",
		"sub/handler.txt":  "not go\n",
		".hidden/skip.go":  "package hidden\n",
		"vendor/vendor.go": "package vendor\n",
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	return dir
}

func TestGlobSimplePattern(t *testing.T) {
	dir := makeTree(t)
	use := tools.NewUseContext(tools.Options{})

	ev := drive(t, NewGlobTool().Call(context.Background(), map[string]any{
		"pattern":   "*.go",
		"base_path": dir,
	}, use))

	res := ev.Data.(GlobResult)
	if len(res.Matches) != 2 {
		t.Fatalf("matches = %v, want main.go and util.go", res.Matches)
	}
	if res.Matches[0] != "main.go" || res.Matches[1] != "util.go" {
		t.Errorf("matches not sorted: %v", res.Matches)
	}
}

func TestGlobRecursivePattern(t *testing.T) {
	dir := makeTree(t)
	use := tools.NewUseContext(tools.Options{})

	ev := drive(t, NewGlobTool().Call(context.Background(), map[string]any{
		"pattern":   "**/*.go",
		"base_path": dir,
	}, use))

	joined := strings.Join(ev.Data.(GlobResult).Matches, "\n")
	if !strings.Contains(joined, "main.go") || !strings.Contains(joined, filepath.Join("sub", "handler.go")) {
		t.Errorf("recursive glob missing files: %q", joined)
	}
	if strings.Contains(joined, ".hidden") {
		t.Errorf("recursive glob should skip hidden dirs: %q", joined)
	}
}

func TestGlobNoMatches(t *testing.T) {
	dir := makeTree(t)
	use := tools.NewUseContext(tools.Options{})

	ev := drive(t, NewGlobTool().Call(context.Background(), map[string]any{
		"pattern":   "*.rs",
		"base_path": dir,
	}, use))

	if !strings.Contains(ev.ForAssistant, "No files found") {
		t.Errorf("assistant text = %q", ev.ForAssistant)
	}
}

func TestGlobMaxResults(t *testing.T) {
	dir := makeTree(t)
	use := tools.NewUseContext(tools.Options{})

	ev := drive(t, NewGlobTool().Call(context.Background(), map[string]any{
		"pattern":     "**/*.go",
		"base_path":   dir,
		"max_results": 1,
	}, use))

	res := ev.Data.(GlobResult)
	if len(res.Matches) != 1 {
		t.Errorf("matches = %v, want 1", res.Matches)
	}
	if !res.Truncated {
		t.Error("expected truncation flag")
	}
}

func TestGlobMissingPattern(t *testing.T) {
	use := tools.NewUseContext(tools.Options{})
	v := NewGlobTool().ValidateInput(map[string]any{}, use)
	if v.OK {
		t.Fatal("missing pattern must fail validation")
	}
}

func TestGrepFindsMatches(t *testing.T) {
	dir := makeTree(t)
	use := tools.NewUseContext(tools.Options{})

	ev := drive(t, NewGrepTool().Call(context.Background(), map[string]any{
		"pattern": "helper",
		"path":    dir,
	}, use))

	res := ev.Data.(GrepResult)
	if len(res.Matches) != 2 {
		t.Fatalf("matches = %+v, want util.go and README.md hits", res.Matches)
	}
	for _, m := range res.Matches {
		if m.LineNumber == 0 {
			t.Error("line numbers must be 1-based")
		}
	}
	if !strings.Contains(ev.ForAssistant, ":") {
		t.Errorf("assistant text should be file:line: text, got %q", ev.ForAssistant)
	}
}

func TestGrepFilePattern(t *testing.T) {
	dir := makeTree(t)
	use := tools.NewUseContext(tools.Options{})

	ev := drive(t, NewGrepTool().Call(context.Background(), map[string]any{
		"pattern":      "helper",
		"path":         dir,
		"file_pattern": "*.go",
	}, use))

	res := ev.Data.(GrepResult)
	if len(res.Matches) != 1 {
		t.Fatalf("matches = %+v, want only util.go", res.Matches)
	}
	if !strings.HasSuffix(res.Matches[0].File, "util.go") {
		t.Errorf("file = %q", res.Matches[0].File)
	}
}

func TestGrepIgnoreCase(t *testing.T) {
	dir := makeTree(t)
	use := tools.NewUseContext(tools.Options{})

	ev := drive(t, NewGrepTool().Call(context.Background(), map[string]any{
		"pattern":     "HELPER",
		"path":        dir,
		"ignore_case": true,
	}, use))

	if len(ev.Data.(GrepResult).Matches) == 0 {
		t.Error("case-insensitive search found nothing")
	}
}

func TestGrepSkipsVendor(t *testing.T) {
	dir := makeTree(t)
	use := tools.NewUseContext(tools.Options{})

	ev := drive(t, NewGrepTool().Call(context.Background(), map[string]any{
		"pattern": "package",
		"path":    dir,
	}, use))

	for _, m := range ev.Data.(GrepResult).Matches {
		if strings.Contains(m.File, "vendor") || strings.Contains(m.File, ".hidden") {
			t.Errorf("matched excluded file %q", m.File)
		}
	}
}

func TestGrepInvalidRegex(t *testing.T) {
	use := tools.NewUseContext(tools.Options{})
	v := NewGrepTool().ValidateInput(map[string]any{"pattern": "("}, use)
	if v.OK {
		t.Fatal("invalid regex must fail validation")
	}
	if !strings.Contains(v.Reason, "invalid regex") {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestGrepNoMatches(t *testing.T) {
	dir := makeTree(t)
	use := tools.NewUseContext(tools.Options{})

	ev := drive(t, NewGrepTool().Call(context.Background(), map[string]any{
		"pattern": "zzz_not_present",
		"path":    dir,
	}, use))

	if !strings.Contains(ev.ForAssistant, "No matches found") {
		t.Errorf("assistant text = %q", ev.ForAssistant)
	}
}

func TestRegisterAll(t *testing.T) {
	reg := tools.NewRegistry()
	if err := RegisterAll(reg); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	for _, name := range []string{"glob", "grep"} {
		if _, err := reg.Get(name); err != nil {
			t.Errorf("tool %s not registered: %v", name, err)
		}
	}
}
