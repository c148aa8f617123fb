package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestThumbnailerExtractSuccess checks scratch setup, args, and naming.
func TestThumbnailerExtractSuccess(t *testing.T) {
	scratch := filepath.Join(t.TempDir(), "scratch")
	fixed := time.Unix(1700000000, 0)

	var gotArgs []string
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			if name != "ffmpeg-custom" {
				t.Fatalf("command = %q, want ffmpeg-custom", name)
			}
			gotArgs = append([]string{}, args...)
			mustWriteFile(t, args[len(args)-1], "jpg")
			return commandResult{ExitCode: 0}, nil
		},
	}

	th := NewThumbnailerForTests("ffmpeg-custom", scratch, runner, os.MkdirAll, os.Stat, func() time.Time { return fixed })
	path, log, err := th.Extract(context.Background(), "/videos/movie.mp4")
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}

	want := filepath.Join(scratch, "thumbnail_1700000000.jpg")
	if path != want {
		t.Fatalf("path = %q, want %q", path, want)
	}
	if got := argValue(gotArgs, "-ss"); got != "00:00:01" {
		t.Fatalf("seek = %q, want 00:00:01", got)
	}
	if got := argValue(gotArgs, "-i"); got != "/videos/movie.mp4" {
		t.Fatalf("input = %q", got)
	}
	if got := argValue(gotArgs, "-vframes"); got != "1" {
		t.Fatalf("vframes = %q, want 1", got)
	}
	if log.ExitCode != 0 {
		t.Fatalf("log exit = %d, want 0", log.ExitCode)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("thumbnail missing: %v", err)
	}
}

// TestThumbnailerScratchDirFailureAbortsBeforeSpawn checks the silent abort.
func TestThumbnailerScratchDirFailureAbortsBeforeSpawn(t *testing.T) {
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			t.Fatal("runner must not be called when scratch dir creation fails")
			return commandResult{}, nil
		},
	}

	th := NewThumbnailerForTests(
		"ffmpeg",
		"/scratch",
		runner,
		func(string, os.FileMode) error { return errors.New("read-only filesystem") },
		os.Stat,
		time.Now,
	)

	path, _, err := th.Extract(context.Background(), "/videos/movie.mp4")
	if err == nil {
		t.Fatal("expected error")
	}
	if path != "" {
		t.Fatalf("path = %q, want empty", path)
	}
}

// TestThumbnailerToolFailure checks non-zero exits surface as ToolError.
func TestThumbnailerToolFailure(t *testing.T) {
	scratch := t.TempDir()
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{Stderr: "no video stream", ExitCode: 1}, errors.New("exit status 1")
		},
	}

	th := NewThumbnailerForTests("ffmpeg", scratch, runner, os.MkdirAll, os.Stat, time.Now)
	path, log, err := th.Extract(context.Background(), "/videos/audio-only.mp4")

	var toolErr *ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("error type = %T, want *ToolError", err)
	}
	if path != "" {
		t.Fatalf("path = %q, want empty", path)
	}
	if log.Stderr != "no video stream" {
		t.Fatalf("log stderr = %q", log.Stderr)
	}
}

// TestThumbnailerMissingOutputFails checks the output verification step.
func TestThumbnailerMissingOutputFails(t *testing.T) {
	scratch := t.TempDir()
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			// Exit zero without writing the file.
			return commandResult{ExitCode: 0}, nil
		},
	}

	th := NewThumbnailerForTests("ffmpeg", scratch, runner, os.MkdirAll, os.Stat, time.Now)
	path, _, err := th.Extract(context.Background(), "/videos/movie.mp4")
	if err == nil {
		t.Fatal("expected error for missing output file")
	}
	if path != "" {
		t.Fatalf("path = %q, want empty", path)
	}
}

// TestThumbnailerSpawnFailure checks launch errors surface as SpawnError.
func TestThumbnailerSpawnFailure(t *testing.T) {
	scratch := t.TempDir()
	runner := &fakeRunner{
		run: func(ctx context.Context, name string, args ...string) (commandResult, error) {
			return commandResult{ExitCode: -1}, errors.New("permission denied")
		},
	}

	th := NewThumbnailerForTests("ffmpeg", scratch, runner, os.MkdirAll, os.Stat, time.Now)
	_, _, err := th.Extract(context.Background(), "/videos/movie.mp4")

	var spawnErr *SpawnError
	if !errors.As(err, &spawnErr) {
		t.Fatalf("error type = %T, want *SpawnError", err)
	}
}

// TestBuildThumbnailArgs verifies the deterministic extraction arguments.
func TestBuildThumbnailArgs(t *testing.T) {
	args := buildThumbnailArgs("/in.mp4", "/tmp/vid2mp3/thumbnail_1.jpg")
	want := []string{
		"-ss", "00:00:01",
		"-i", "/in.mp4",
		"-vframes", "1",
		"-q:v", "2",
		"-y",
		"/tmp/vid2mp3/thumbnail_1.jpg",
	}

	if len(args) != len(want) {
		t.Fatalf("args len = %d, want %d", len(args), len(want))
	}
	for i := range want {
		if args[i] != want[i] {
			t.Fatalf("args[%d] = %q, want %q", i, args[i], want[i])
		}
	}
}

// TestDefaultScratchDir checks the staging directory location.
func TestDefaultScratchDir(t *testing.T) {
	want := filepath.Join(os.TempDir(), "vid2mp3")
	if got := DefaultScratchDir(); got != want {
		t.Fatalf("scratch dir = %q, want %q", got, want)
	}
}
