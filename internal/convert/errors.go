package convert

import "fmt"

// ToolError reports an ffmpeg run that started but exited non-zero.
// Stderr holds the captured diagnostic text with invalid UTF-8 replaced;
// the UI surfaces it verbatim as the error status message.
type ToolError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

// Error summarizes the failed run for logs.
func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
}

// Unwrap exposes the underlying exec error for errors.Is / errors.As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// SpawnError reports that ffmpeg could not be launched at all, typically
// because the tool is missing from PATH or not executable.
type SpawnError struct {
	Command string
	Err     error
}

// Error renders the user-facing spawn failure description.
func (e *SpawnError) Error() string {
	if e == nil {
		return ""
	}
	return "failed to spawn: " + e.Err.Error()
}

// Unwrap exposes the underlying exec error for errors.Is / errors.As.
func (e *SpawnError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
