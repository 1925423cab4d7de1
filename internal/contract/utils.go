package contract

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Sentinel errors shared across packages.
var (
	// ErrNoRepository is returned when no repository was given and none could be detected.
	ErrNoRepository = errors.New("no repository specified, pass <owner>/<name> or --repo")

	// ErrCacheMiss is returned by cache stores when no entry exists for a key.
	ErrCacheMiss = errors.New("cache entry not found")

	// ErrCacheDirMissing is returned when the snapshot directory does not exist.
	ErrCacheDirMissing = errors.New("cache directory does not exist")

	// ErrNotPreprocessed is returned when reports are requested from a snapshot
	// whose derived projections were never computed.
	ErrNotPreprocessed = errors.New("snapshot has not been preprocessed, projections are missing")

	// ErrRateLimited is returned by hosts when the remote request budget is exhausted.
	ErrRateLimited = errors.New("request budget exhausted")

	// ErrIncompleteUpdate is returned when a fetch pass leaves outdated tickets behind.
	ErrIncompleteUpdate = errors.New("the update failed to complete, please try it again or run offline")
)

// Color variables for console output.
var (
	HeaderColor  = color.New(color.FgCyan, color.Bold)   // HeaderColor highlights section headers.
	WarnColor    = color.New(color.FgYellow)             // WarnColor marks incomplete data.
	OKColor      = color.New(color.FgGreen)              // OKColor marks a fully refreshed repository.
	FailColor    = color.New(color.FgRed, color.Bold)    // FailColor marks failures in status output.
	MutedColor   = color.New(color.FgHiBlack)            // MutedColor is for secondary details.
	CountColor   = color.New(color.FgMagenta, color.Bold) // CountColor highlights the sort column.
	noColorLabel = func(s string) string { return s }
)

// ColorizeFunc returns a function that colors text with c when enabled.
func ColorizeFunc(c *color.Color, enabled bool) func(string) string {
	if !enabled {
		return noColorLabel
	}
	return func(s string) string { return c.Sprint(s) }
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// GetCacheDBFilePath returns the path to the SQLite DB file for snapshot storage.
func GetCacheDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".repostats_cache.db"
	}
	return filepath.Join(homeDir, ".repostats_cache.db")
}

// GetRunsDBFilePath returns the path to the SQLite DB file for fetch run history.
func GetRunsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".repostats_runs.db"
	}
	return filepath.Join(homeDir, ".repostats_runs.db")
}

// TruncateText truncates a string to a maximum width with an ellipsis suffix.
// Requires maxWidth > 3 to ensure there's space for both the "..." and at least one character of content.
func TruncateText(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}
