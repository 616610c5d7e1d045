package file

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"quill/internal/tools"
)

// drive consumes a tool call's event stream and returns the terminal event.
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

func writeFixture(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("fixture write: %v", err)
	}
	return path
}

func readBack(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	return string(data)
}

func TestReadRecordsStamp(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "line one\nline two")
	use := tools.NewUseContext(tools.Options{})
	tool := NewReadTool()

	input := map[string]any{"path": path}
	if v := tool.ValidateInput(input, use); !v.OK {
		t.Fatalf("validation failed: %s", v.Reason)
	}

	ev := drive(t, tool.Call(context.Background(), input, use))
	if ev.Kind != tools.EventResult {
		t.Fatalf("expected result, got error: %v", ev.Err)
	}
	if ev.ForAssistant != "line one\nline two" {
		t.Errorf("content = %q", ev.ForAssistant)
	}
	if _, ok := use.ReadStamp(path); !ok {
		t.Error("read_file must record a read stamp")
	}
}

func TestReadLineRange(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "one\ntwo\nthree\nfour")
	use := tools.NewUseContext(tools.Options{})
	tool := NewReadTool()

	ev := drive(t, tool.Call(context.Background(), map[string]any{
		"path":       path,
		"start_line": 2,
		"end_line":   3,
	}, use))

	if ev.ForAssistant != "two\nthree" {
		t.Errorf("range content = %q, want lines two..three", ev.ForAssistant)
	}
}

func TestReadMissingFile(t *testing.T) {
	use := tools.NewUseContext(tools.Options{})
	tool := NewReadTool()

	v := tool.ValidateInput(map[string]any{"path": "/no/such/file.txt"}, use)
	if v.OK {
		t.Fatal("expected validation failure for missing file")
	}
}

func TestWriteNewFileNeedsNoRead(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "new.txt")
	use := tools.NewUseContext(tools.Options{})
	tool := NewWriteTool()

	input := map[string]any{"path": path, "content": "hello"}
	if v := tool.ValidateInput(input, use); !v.OK {
		t.Fatalf("creating a new file should not require a prior read: %s", v.Reason)
	}

	ev := drive(t, tool.Call(context.Background(), input, use))
	if ev.Kind != tools.EventResult {
		t.Fatalf("write failed: %v", ev.Err)
	}
	if readBack(t, path) != "hello" {
		t.Error("file content mismatch")
	}
	if tool.UserFacingName(input) != "Update" {
		t.Error("existing file should display as Update")
	}
}

func TestWriteUnreadFileRefused(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "original")
	use := tools.NewUseContext(tools.Options{})
	tool := NewWriteTool()

	v := tool.ValidateInput(map[string]any{"path": path, "content": "overwrite"}, use)
	if v.OK {
		t.Fatal("overwriting an unread file must fail validation")
	}
	if !strings.Contains(v.Reason, "has not been read") {
		t.Errorf("reason = %q, want not-read explanation", v.Reason)
	}
	if readBack(t, path) != "original" {
		t.Error("validation failure must not mutate the file")
	}
}

func TestWriteAfterReadSucceeds(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "original")
	use := tools.NewUseContext(tools.Options{})

	drive(t, NewReadTool().Call(context.Background(), map[string]any{"path": path}, use))

	tool := NewWriteTool()
	input := map[string]any{"path": path, "content": "updated"}
	if v := tool.ValidateInput(input, use); !v.OK {
		t.Fatalf("write after read should pass: %s", v.Reason)
	}

	ev := drive(t, tool.Call(context.Background(), input, use))
	if ev.Kind != tools.EventResult {
		t.Fatalf("write failed: %v", ev.Err)
	}
	if readBack(t, path) != "updated" {
		t.Error("file content mismatch")
	}

	// The stamp was refreshed, so a second write in the same turn passes.
	if v := tool.ValidateInput(map[string]any{"path": path, "content": "again"}, use); !v.OK {
		t.Errorf("second write should stay fresh: %s", v.Reason)
	}
}

func TestWriteStaleFileRefused(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "original")
	use := tools.NewUseContext(tools.Options{})

	drive(t, NewReadTool().Call(context.Background(), map[string]any{"path": path}, use))

	// External edit with an unambiguously newer mtime.
	if err := os.WriteFile(path, []byte("external"), 0644); err != nil {
		t.Fatalf("external write: %v", err)
	}
	future := time.Now().Add(2 * time.Second)
	if err := os.Chtimes(path, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	tool := NewWriteTool()
	v := tool.ValidateInput(map[string]any{"path": path, "content": "mine"}, use)
	if v.OK {
		t.Fatal("stale write must be refused")
	}
	if !strings.Contains(v.Reason, "modified since") {
		t.Errorf("reason = %q, want stale explanation", v.Reason)
	}
	if readBack(t, path) != "external" {
		t.Error("refused write must not mutate the file")
	}
}

func TestWriteCancelledLeavesStampsAlone(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "original")
	use := tools.NewUseContext(tools.Options{})

	drive(t, NewReadTool().Call(context.Background(), map[string]any{"path": path}, use))
	before, _ := use.ReadStamp(path)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ev := drive(t, NewWriteTool().Call(ctx, map[string]any{"path": path, "content": "mine"}, use))
	if ev.Kind != tools.EventError {
		t.Fatal("cancelled write should report an error event")
	}
	if readBack(t, path) != "original" {
		t.Error("cancelled write must not mutate the file")
	}
	after, _ := use.ReadStamp(path)
	if !after.ReadAt.Equal(before.ReadAt) || !after.ModTime.Equal(before.ModTime) {
		t.Error("cancelled write must not update the read stamp")
	}
}

func TestWritePermissionScope(t *testing.T) {
	tool := NewWriteTool()
	scope := tool.PermissionScope(map[string]any{"path": "/project/src/main.go"})
	if scope != "write:/project/src" {
		t.Errorf("scope = %q, want write:/project/src", scope)
	}
}

func TestEditReplacesText(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "hello world, hello moon")
	use := tools.NewUseContext(tools.Options{})

	drive(t, NewReadTool().Call(context.Background(), map[string]any{"path": path}, use))

	tool := NewEditTool()
	input := map[string]any{"path": path, "old_text": "hello", "new_text": "goodbye"}
	if v := tool.ValidateInput(input, use); !v.OK {
		t.Fatalf("validation failed: %s", v.Reason)
	}

	ev := drive(t, tool.Call(context.Background(), input, use))
	if ev.Kind != tools.EventResult {
		t.Fatalf("edit failed: %v", ev.Err)
	}
	if readBack(t, path) != "goodbye world, hello moon" {
		t.Errorf("content = %q, want first occurrence replaced", readBack(t, path))
	}

	res := ev.Data.(EditResult)
	if res.Replacements != 1 {
		t.Errorf("replacements = %d, want 1", res.Replacements)
	}
}

func TestEditReplaceAll(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "x x x")
	use := tools.NewUseContext(tools.Options{})

	drive(t, NewReadTool().Call(context.Background(), map[string]any{"path": path}, use))

	ev := drive(t, NewEditTool().Call(context.Background(), map[string]any{
		"path":        path,
		"old_text":    "x",
		"new_text":    "y",
		"replace_all": true,
	}, use))

	if readBack(t, path) != "y y y" {
		t.Errorf("content = %q, want all occurrences replaced", readBack(t, path))
	}
	if ev.Data.(EditResult).Replacements != 3 {
		t.Errorf("replacements = %d, want 3", ev.Data.(EditResult).Replacements)
	}
}

func TestEditNoChangeRejected(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "content")
	use := tools.NewUseContext(tools.Options{})

	drive(t, NewReadTool().Call(context.Background(), map[string]any{"path": path}, use))

	v := NewEditTool().ValidateInput(map[string]any{
		"path":     path,
		"old_text": "content",
		"new_text": "content",
	}, use)
	if v.OK {
		t.Fatal("identical old/new text must fail validation")
	}
	if !strings.Contains(v.Reason, "nothing to change") {
		t.Errorf("reason = %q", v.Reason)
	}
}

func TestEditUnreadFileRefused(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "content")
	use := tools.NewUseContext(tools.Options{})

	v := NewEditTool().ValidateInput(map[string]any{
		"path":     path,
		"old_text": "content",
		"new_text": "changed",
	}, use)
	if v.OK {
		t.Fatal("editing an unread file must fail validation")
	}
	if readBack(t, path) != "content" {
		t.Error("validation failure must not mutate the file")
	}
}

func TestEditOldTextNotFound(t *testing.T) {
	dir := t.TempDir()
	path := writeFixture(t, dir, "a.txt", "content")
	use := tools.NewUseContext(tools.Options{})

	drive(t, NewReadTool().Call(context.Background(), map[string]any{"path": path}, use))

	v := NewEditTool().ValidateInput(map[string]any{
		"path":     path,
		"old_text": "missing",
		"new_text": "changed",
	}, use)
	if v.OK {
		t.Fatal("absent old_text must fail validation")
	}
}

func TestListFiles(t *testing.T) {
	dir := t.TempDir()
	writeFixture(t, dir, "b.txt", "b")
	writeFixture(t, dir, "a.txt", "a")
	writeFixture(t, dir, ".hidden", "h")
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	use := tools.NewUseContext(tools.Options{})
	tool := NewListTool()

	ev := drive(t, tool.Call(context.Background(), map[string]any{"path": dir}, use))
	res := ev.Data.(ListResult)

	want := map[string]bool{"a.txt": true, "b.txt": true, "sub/": true}
	if len(res.Entries) != len(want) {
		t.Fatalf("entries = %v", res.Entries)
	}
	for _, e := range res.Entries {
		if !want[e] {
			t.Errorf("unexpected entry %q", e)
		}
	}
}

func TestListRecursive(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "sub"), 0755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeFixture(t, dir, "top.txt", "t")
	writeFixture(t, filepath.Join(dir, "sub"), "inner.txt", "i")

	use := tools.NewUseContext(tools.Options{})
	ev := drive(t, NewListTool().Call(context.Background(), map[string]any{
		"path":      dir,
		"recursive": true,
	}, use))

	joined := strings.Join(ev.Data.(ListResult).Entries, "\n")
	if !strings.Contains(joined, "sub/") || !strings.Contains(joined, filepath.Join("sub", "inner.txt")) {
		t.Errorf("recursive listing missing entries: %q", joined)
	}
}

func TestRegisterAll(t *testing.T) {
	reg := tools.NewRegistry()
	if err := RegisterAll(reg); err != nil {
		t.Fatalf("RegisterAll: %v", err)
	}
	for _, name := range []string{"read_file", "write_file", "edit_file", "list_files"} {
		if _, err := reg.Get(name); err != nil {
			t.Errorf("tool %s not registered: %v", name, err)
		}
	}
}
