//go:build !windows

package convert

import "os/exec"

// hideConsoleWindow is a no-op where subprocesses have no console window.
func hideConsoleWindow(cmd *exec.Cmd) {}
