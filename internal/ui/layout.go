package ui

import "time"

// Chrome lines around the page body: header, tab bar and status bar.
const chromeHeight = 3

// Log display limits.
const (
	// LogLineLimit is the number of log lines read from the end of the file.
	LogLineLimit = 2000
)

// Timing constants.
const (
	// DefaultUIInterval is the default UI refresh interval.
	DefaultUIInterval = time.Second

	// CatalogTimeout bounds a single catalog call made from the UI.
	CatalogTimeout = 30 * time.Second
)

// bodyHeight is the number of lines available to a page.
func bodyHeight(total int) int {
	if h := total - chromeHeight; h > 1 {
		return h
	}
	return 1
}

// window returns the [start, end) range of a list of n items that keeps
// cursor visible in height lines.
func window(n, cursor, height int) (int, int) {
	if height <= 0 || n <= height {
		return 0, n
	}
	start := cursor - height/2
	if start < 0 {
		start = 0
	}
	if start+height > n {
		start = n - height
	}
	return start, start + height
}
