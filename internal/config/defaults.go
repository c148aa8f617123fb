package config

import "vid2mp3/internal/domain"

// DefaultSettings returns baseline local configuration for first launch:
// ffmpeg resolved from PATH, info-level logging.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		FFmpegPath: "ffmpeg",
		LogLevel:   "info",
	}
}
