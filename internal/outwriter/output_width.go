package outwriter

import (
	"os"

	"github.com/huangsam/repostats/internal/contract"
	"golang.org/x/term"
)

// Layout constants of the timeline table, in terminal cells.
const (
	bucketColumnWidth = 14
	minUserColumns    = 3
	maxUserNameWidth  = 16
)

// terminalWidth returns the configured width override, the detected width of stdout,
// or a conservative default.
func terminalWidth(cfg *contract.Config) int {
	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detectedWidth
}

// maxTimelineUsers returns how many user columns fit next to the bucket column.
func maxTimelineUsers(cfg *contract.Config) int {
	available := terminalWidth(cfg) - bucketColumnWidth
	perUser := maxUserNameWidth + 3 // separator and padding
	return max(available/perUser, minUserColumns)
}
