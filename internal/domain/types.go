package domain

import (
	"path/filepath"
	"strings"
)

// ConversionState tracks the lifecycle of the single visible conversion.
type ConversionState string

const (
	ConversionStateIdle       ConversionState = "idle"
	ConversionStateConverting ConversionState = "converting"
	ConversionStateDone       ConversionState = "done"
	ConversionStateError      ConversionState = "error"
)

// ConversionStatus is the shared status value the UI loop polls each frame.
// It is replaced wholesale on every transition; Message is populated only
// for the error state and carries the captured ffmpeg stderr or a spawn
// failure description.
type ConversionStatus struct {
	State   ConversionState `json:"state"`
	Message string          `json:"message,omitempty"`
}

// Selection couples one input video with its derived MP3 output path.
// Both fields are set together atomically on every file pick or drop.
type Selection struct {
	InputPath  string `json:"inputPath"`
	OutputPath string `json:"outputPath"`
}

// NewSelection derives the output path from the input path.
func NewSelection(inputPath string) Selection {
	return Selection{
		InputPath:  inputPath,
		OutputPath: OutputPathFor(inputPath),
	}
}

// Valid reports whether the selection holds an input path.
func (s Selection) Valid() bool {
	return strings.TrimSpace(s.InputPath) != ""
}

// OutputPathFor swaps the input extension for .mp3, appending when the
// input has no extension. Collisions are resolved by ffmpeg's overwrite flag.
func OutputPathFor(inputPath string) string {
	return strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + ".mp3"
}

// Snapshot is one render pass worth of UI state.
type Snapshot struct {
	Input         string           `json:"input"`
	Output        string           `json:"output"`
	Status        ConversionStatus `json:"status"`
	ThumbnailPath string           `json:"thumbnailPath,omitempty"`
	ThumbnailURL  string           `json:"thumbnailUrl,omitempty"`
	CanConvert    bool             `json:"canConvert"`
}

// Settings contains user-selectable runtime configuration.
type Settings struct {
	FFmpegPath string `json:"ffmpegPath"`
	LogLevel   string `json:"logLevel"`
}

// VideoExtensions is the advisory file-picker filter. It is never enforced:
// dropped files of any type are accepted and handed to ffmpeg as-is.
var VideoExtensions = []string{"mp4", "mkv", "avi", "mov", "webm", "flv"}
