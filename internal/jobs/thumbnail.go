package jobs

import "sync"

// ThumbnailCell guards the path of the most recent preview image. Thumbnail
// jobs write at most once each, on success only; failed jobs leave the cell
// untouched. There is no generation tracking: a job outliving the selection
// it was spawned for still writes its path, and the UI simply renders the
// latest value (last write wins).
type ThumbnailCell struct {
	mu   sync.RWMutex
	path string
}

// NewThumbnailCell creates an empty cell.
func NewThumbnailCell() *ThumbnailCell {
	return &ThumbnailCell{}
}

// Set stores a generated thumbnail path.
func (c *ThumbnailCell) Set(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = path
}

// Current returns the stored path, or empty when no thumbnail exists yet.
func (c *ThumbnailCell) Current() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.path
}

// Reset clears the cell when a new input is selected.
func (c *ThumbnailCell) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.path = ""
}
