package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"quill/internal/logging"
	"quill/internal/tools"
)

const (
	defaultTimeoutSeconds = 60
	maxOutputBytes        = 50000

	// InterruptedSuffix is appended to partial output when a command is
	// cancelled before it finishes.
	InterruptedSuffix = "[interrupted]"
)

// State is the working directory shared by shell invocations in a session.
// The `!cd` escape and the cd special case mutate it; everything else reads.
type State struct {
	mu      sync.Mutex
	workdir string
}

// NewState returns shell state rooted at dir, or the process working
// directory when dir is empty.
func NewState(dir string) *State {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return &State{workdir: dir}
}

// Workdir returns the current working directory.
func (s *State) Workdir() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.workdir
}

// Chdir changes the shared working directory. The target must exist and be
// a directory; relative paths resolve against the current workdir.
func (s *State) Chdir(dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target := dir
	if !filepath.IsAbs(dir) {
		target = filepath.Join(s.workdir, dir)
	}
	fi, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("cd: %w", err)
	}
	if !fi.IsDir() {
		return fmt.Errorf("cd: %s is not a directory", dir)
	}
	s.workdir = target
	return nil
}

// RunResult is the raw output of run_command.
type RunResult struct {
	Command     string
	Output      string
	ExitCode    int
	Interrupted bool
	TimedOut    bool
}

// RunCommandTool executes a shell command in the shared working directory.
type RunCommandTool struct {
	state *State
}

// NewRunCommandTool returns the run_command tool bound to state.
func NewRunCommandTool(state *State) *RunCommandTool {
	if state == nil {
		state = NewState("")
	}
	return &RunCommandTool{state: state}
}

func (t *RunCommandTool) Name() string        { return "run_command" }
func (t *RunCommandTool) Description() string { return "Execute a shell command and return its output" }

func (t *RunCommandTool) UserFacingName(input map[string]any) string { return "Shell" }

func (t *RunCommandTool) Category() tools.Category { return tools.CategoryShell }
func (t *RunCommandTool) IsReadOnly() bool         { return false }
func (t *RunCommandTool) IsEnabled() bool          { return true }

func (t *RunCommandTool) NeedsPermission(input map[string]any) bool { return true }

// PermissionScope keys grants to the command's first word, so allowing
// "go test" always does not silently allow "rm".
func (t *RunCommandTool) PermissionScope(input map[string]any) string {
	command, _ := input["command"].(string)
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return ""
	}
	return "shell:" + fields[0]
}

func (t *RunCommandTool) InputSchema() *tools.Schema {
	return tools.MustSchema(`{
		"type": "object",
		"required": ["command"],
		"properties": {
			"command": {"type": "string", "description": "The command to execute"},
			"timeout_seconds": {"type": "integer", "description": "Timeout in seconds (default: 60)"},
			"env": {"type": "object", "description": "Additional environment variables"}
		}
	}`)
}

func (t *RunCommandTool) ValidateInput(input map[string]any, use *tools.UseContext) tools.ValidationResult {
	command, _ := input["command"].(string)
	if strings.TrimSpace(command) == "" {
		return tools.Invalid("command is required")
	}
	return tools.Valid()
}

func (t *RunCommandTool) Call(ctx context.Context, input map[string]any, use *tools.UseContext) <-chan tools.Event {
	return tools.Stream(func(emit func(tools.Event)) {
		command, _ := input["command"].(string)

		timeout := defaultTimeoutSeconds
		switch v := input["timeout_seconds"].(type) {
		case int:
			if v > 0 {
				timeout = v
			}
		case float64:
			if v > 0 {
				timeout = int(v)
			}
		}

		workdir := t.state.Workdir()
		logging.ShellDebug("run_command: cmd=%s dir=%s timeout=%ds", command, workdir, timeout)

		execCtx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
		defer cancel()

		cmd := exec.CommandContext(execCtx, "sh", "-c", command)
		cmd.Dir = workdir
		cmd.Env = os.Environ()
		if envMap, ok := input["env"].(map[string]any); ok {
			for k, v := range envMap {
				if vs, ok := v.(string); ok {
					cmd.Env = append(cmd.Env, fmt.Sprintf("%s=%s", k, vs))
				}
			}
		}

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		runErr := cmd.Run()

		output := stdout.String()
		if stderr.Len() > 0 {
			if output != "" {
				output += "\n--- stderr ---\n"
			}
			output += stderr.String()
		}
		if len(output) > maxOutputBytes {
			output = output[:maxOutputBytes] + "\n...[truncated]"
		}

		res := RunResult{Command: command, Output: output}

		switch {
		case ctx.Err() != nil:
			// User interrupt: keep the partial output, mark it, and
			// surface it through the normal result path.
			res.Interrupted = true
			res.ExitCode = -1
			logging.Shell("run_command interrupted: %s (%d bytes partial)", command, len(output))
			emit(tools.ResultEvent(res, t.RenderResultForAssistant(res)))
			return
		case errors.Is(execCtx.Err(), context.DeadlineExceeded):
			res.TimedOut = true
			res.ExitCode = -1
			logging.Shell("run_command timed out: %s after %ds", command, timeout)
			emit(tools.ResultEvent(res, t.RenderResultForAssistant(res)))
			return
		case runErr != nil:
			var exitErr *exec.ExitError
			if errors.As(runErr, &exitErr) {
				res.ExitCode = exitErr.ExitCode()
				logging.Shell("run_command failed: %s (exit %d)", command, res.ExitCode)
				emit(tools.ResultEvent(res, t.RenderResultForAssistant(res)))
				return
			}
			emit(tools.ErrorEvent(fmt.Errorf("command failed to start: %w", runErr)))
			return
		}

		logging.Shell("run_command completed: %s (%d bytes output)", command, len(output))
		emit(tools.ResultEvent(res, t.RenderResultForAssistant(res)))
	})
}

func (t *RunCommandTool) RenderResultForAssistant(data any) string {
	res, ok := data.(RunResult)
	if !ok {
		return ""
	}
	out := res.Output
	switch {
	case res.Interrupted:
		if out != "" {
			out += "\n"
		}
		out += InterruptedSuffix
	case res.TimedOut:
		if out != "" {
			out += "\n"
		}
		out += "[timed out]"
	case res.ExitCode != 0:
		if out != "" {
			out += "\n"
		}
		out += fmt.Sprintf("(exit code %d)", res.ExitCode)
	case out == "":
		out = "(no output)"
	}
	return out
}
