package convert

import (
	"context"
	"strings"
)

// Conversion output is fixed: LAME MP3 at 192k, no video stream.
const mp3Bitrate = "192k"

// Request names the input video and the derived output path for one run.
// The job performs no validation of its own; a missing or unreadable input
// surfaces as a non-zero ffmpeg exit.
type Request struct {
	InputPath  string
	OutputPath string
}

// CommandLog captures one external command invocation result.
type CommandLog struct {
	Command  string   `json:"command"`
	Args     []string `json:"args"`
	ExitCode int      `json:"exitCode"`
	Stdout   string   `json:"stdout"`
	Stderr   string   `json:"stderr"`
}

// Converter shells out to ffmpeg to strip the video stream and encode the
// audio track as MP3, overwriting the output unconditionally.
type Converter struct {
	ffmpegPath string
	runner     commandRunner
}

// NewConverter builds a production converter for the configured ffmpeg
// binary (bare name for PATH lookup or an explicit path).
func NewConverter(ffmpegPath string) *Converter {
	return &Converter{
		ffmpegPath: toolOrDefault(ffmpegPath),
		runner:     &execRunner{},
	}
}

// Convert runs one conversion attempt and returns the command log. A
// non-nil error is a *SpawnError or *ToolError; there is no retry, the
// user retries by converting again.
func (c *Converter) Convert(ctx context.Context, req Request) (CommandLog, error) {
	args := buildConvertArgs(req.InputPath, req.OutputPath)

	result, runErr := c.runner.Run(ctx, c.ffmpegPath, args...)
	log := CommandLog{
		Command:  c.ffmpegPath,
		Args:     args,
		ExitCode: result.ExitCode,
		Stdout:   result.Stdout,
		Stderr:   result.Stderr,
	}
	if runErr != nil {
		return log, classifyRunError(c.ffmpegPath, result, runErr)
	}

	return log, nil
}

// buildConvertArgs builds the fixed audio-extraction CLI arguments.
func buildConvertArgs(inputPath, outputPath string) []string {
	return []string{
		"-i", inputPath,
		"-vn",
		"-acodec", "libmp3lame",
		"-ab", mp3Bitrate,
		"-y",
		outputPath,
	}
}

// toolOrDefault falls back to a bare PATH lookup name when unset.
func toolOrDefault(path string) string {
	if strings.TrimSpace(path) == "" {
		return "ffmpeg"
	}
	return path
}

// NewConverterForTests constructs a converter with an injected runner.
func NewConverterForTests(ffmpegPath string, runner commandRunner) *Converter {
	return &Converter{
		ffmpegPath: ffmpegPath,
		runner:     runner,
	}
}
