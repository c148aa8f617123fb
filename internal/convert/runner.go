package convert

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strings"
)

// commandResult is an internal process execution response.
type commandResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// commandRunner abstracts process execution for testability.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (commandResult, error)
}

// execRunner executes commands via os/exec.
type execRunner struct{}

// Run executes one command and captures stdout/stderr and exit code.
// The child's console window is suppressed on hosts that would flash one.
func (r *execRunner) Run(ctx context.Context, name string, args ...string) (commandResult, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	hideConsoleWindow(cmd)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := commandResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: 0,
	}
	if err != nil {
		result.ExitCode = -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitCode = exitErr.ExitCode()
		}
		return result, err
	}

	return result, nil
}

// classifyRunError maps a failed Run to the error taxonomy. A captured
// exit code means ffmpeg started and failed on its own; no exit code means
// it never launched.
func classifyRunError(command string, result commandResult, err error) error {
	if result.ExitCode >= 0 {
		return &ToolError{
			Command:  command,
			ExitCode: result.ExitCode,
			Stderr:   lossyDecode(result.Stderr),
			Err:      err,
		}
	}
	return &SpawnError{Command: command, Err: err}
}

// lossyDecode replaces invalid UTF-8 sequences in captured tool output so
// the text can be displayed verbatim otherwise.
func lossyDecode(s string) string {
	return strings.ToValidUTF8(s, "�")
}
