package diagnostics

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"vid2mp3/internal/domain"
)

// Checker validates the external transcoder and the thumbnail scratch area.
type Checker struct {
	scratchDir string
	lookPath   func(string) (string, error)
	mkdirAll   func(string, os.FileMode) error
	createTemp func(string, string) (*os.File, error)
	remove     func(string) error
}

// NewChecker builds a checker using real OS dependencies.
func NewChecker(scratchDir string) *Checker {
	return &Checker{
		scratchDir: scratchDir,
		lookPath:   exec.LookPath,
		mkdirAll:   os.MkdirAll,
		createTemp: os.CreateTemp,
		remove:     os.Remove,
	}
}

// Run executes all environment checks and returns a combined report.
func (c *Checker) Run(settings domain.Settings) domain.DiagnosticReport {
	items := []domain.DiagnosticItem{
		c.checkFFmpeg(settings.FFmpegPath),
		c.checkScratchDir(c.scratchDir),
	}

	hasFailures := false
	for _, item := range items {
		if item.Status == domain.DiagnosticStatusFail {
			hasFailures = true
			break
		}
	}

	return domain.DiagnosticReport{
		GeneratedAt: time.Now().UTC(),
		HasFailures: hasFailures,
		Items:       items,
	}
}

// checkFFmpeg verifies the configured ffmpeg resolves to an executable.
// Bare names are looked up on PATH; values with a separator are tried
// directly, matching how the converter will invoke them.
func (c *Checker) checkFFmpeg(configured string) domain.DiagnosticItem {
	name := strings.TrimSpace(configured)
	if name == "" {
		name = "ffmpeg"
	}

	path, err := c.lookPath(name)
	if err != nil {
		message := fmt.Sprintf("Tool not found in PATH: %s", name)
		if filepath.Base(name) != name {
			message = fmt.Sprintf("Configured ffmpeg is not executable: %s", name)
		}
		return domain.DiagnosticItem{
			ID:      "tool_ffmpeg",
			Name:    "ffmpeg",
			Status:  domain.DiagnosticStatusFail,
			Message: message,
			Hint:    "Install ffmpeg and make it available on PATH, or point settings at the binary.",
		}
	}

	return domain.DiagnosticItem{
		ID:      "tool_ffmpeg",
		Name:    "ffmpeg",
		Status:  domain.DiagnosticStatusPass,
		Message: fmt.Sprintf("Found at %s", path),
	}
}

// checkScratchDir validates the thumbnail staging area exists and is writable.
func (c *Checker) checkScratchDir(scratchDir string) domain.DiagnosticItem {
	item := domain.DiagnosticItem{
		ID:   "scratch_dir",
		Name: "Thumbnail scratch directory",
	}

	if err := c.mkdirAll(scratchDir, 0o755); err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Cannot create scratch directory: %s", scratchDir)
		item.Hint = "Check permissions on the system temp directory."
		return item
	}

	tmpFile, err := c.createTemp(scratchDir, ".write-check-*")
	if err != nil {
		item.Status = domain.DiagnosticStatusFail
		item.Message = fmt.Sprintf("Scratch directory is not writable: %s", scratchDir)
		item.Hint = "Thumbnails are staged here; the directory must be writable."
		return item
	}

	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()
	_ = c.remove(tmpPath)

	item.Status = domain.DiagnosticStatusPass
	item.Message = fmt.Sprintf("Writable directory: %s", scratchDir)
	return item
}

// NewCheckerForTests creates a checker with injectable dependencies.
func NewCheckerForTests(
	scratchDir string,
	lookPath func(string) (string, error),
	mkdirAll func(string, os.FileMode) error,
	createTemp func(string, string) (*os.File, error),
	remove func(string) error,
) *Checker {
	return &Checker{
		scratchDir: scratchDir,
		lookPath:   lookPath,
		mkdirAll:   mkdirAll,
		createTemp: createTemp,
		remove:     remove,
	}
}
