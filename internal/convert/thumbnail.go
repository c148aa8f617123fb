package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	thumbnailSeekOffset = "00:00:01"
	thumbnailQuality    = "2"
	scratchDirName      = "vid2mp3"
)

// DefaultScratchDir is the process-wide staging area for generated
// thumbnails. Files accumulate there across runs; no cleanup lifecycle
// exists for this short-lived tool.
func DefaultScratchDir() string {
	return filepath.Join(os.TempDir(), scratchDirName)
}

// Thumbnailer extracts a single preview frame one second into a video.
// It is best-effort throughout: callers discard failures silently and the
// conversion status never hears about them.
type Thumbnailer struct {
	ffmpegPath string
	scratchDir string
	runner     commandRunner
	mkdirAll   func(string, os.FileMode) error
	stat       func(string) (os.FileInfo, error)
	now        func() time.Time
}

// NewThumbnailer builds a production thumbnailer staging into the default
// scratch directory.
func NewThumbnailer(ffmpegPath string) *Thumbnailer {
	return &Thumbnailer{
		ffmpegPath: toolOrDefault(ffmpegPath),
		scratchDir: DefaultScratchDir(),
		runner:     &execRunner{},
		mkdirAll:   os.MkdirAll,
		stat:       os.Stat,
		now:        time.Now,
	}
}

// ScratchDir returns the directory generated thumbnails are written into.
func (t *Thumbnailer) ScratchDir() string {
	return t.scratchDir
}

// Extract writes one still frame for videoPath into the scratch directory
// and returns the generated path. The seconds-resolution timestamp in the
// filename keeps concurrent and stale jobs from clobbering each other.
func (t *Thumbnailer) Extract(ctx context.Context, videoPath string) (string, CommandLog, error) {
	if err := t.mkdirAll(t.scratchDir, 0o755); err != nil {
		return "", CommandLog{}, fmt.Errorf("create scratch dir %s: %w", t.scratchDir, err)
	}

	outputPath := filepath.Join(t.scratchDir, fmt.Sprintf("thumbnail_%d.jpg", t.now().Unix()))
	args := buildThumbnailArgs(videoPath, outputPath)

	result, runErr := t.runner.Run(ctx, t.ffmpegPath, args...)
	log := CommandLog{
		Command:  t.ffmpegPath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	if runErr != nil {
		return "", log, classifyRunError(t.ffmpegPath, result, runErr)
	}

	if _, err := t.stat(outputPath); err != nil {
		return "", log, fmt.Errorf("ffmpeg reported success but %s is missing: %w", outputPath, err)
	}

	return outputPath, log, nil
}

// buildThumbnailArgs builds the fixed single-frame extraction arguments.
func buildThumbnailArgs(inputPath, outputPath string) []string {
	return []string{
		"-ss", thumbnailSeekOffset,
		"-i", inputPath,
		"-vframes", "1",
		"-q:v", thumbnailQuality,
		"-y",
		outputPath,
	}
}

// NewThumbnailerForTests constructs a thumbnailer with injected deps.
func NewThumbnailerForTests(
	ffmpegPath string,
	scratchDir string,
	runner commandRunner,
	mkdirAll func(string, os.FileMode) error,
	stat func(string) (os.FileInfo, error),
	now func() time.Time,
) *Thumbnailer {
	return &Thumbnailer{
		ffmpegPath: ffmpegPath,
		scratchDir: scratchDir,
		runner:     runner,
		mkdirAll:   mkdirAll,
		stat:       stat,
		now:        now,
	}
}
