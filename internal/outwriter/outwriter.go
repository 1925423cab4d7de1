// Package outwriter has output and writer logic.
package outwriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the core logic.
type OutWriter struct {
	out io.Writer
}

// NewOutWriter creates a new instance of the output writer printing to stdout.
func NewOutWriter() *OutWriter {
	return &OutWriter{out: os.Stdout}
}

// NewOutWriterTo creates an output writer printing to w.
func NewOutWriterTo(w io.Writer) *OutWriter {
	return &OutWriter{out: w}
}

// WriteUsersSummary saves the full table to the report file and, in text mode,
// prints the shown table with user links.
func (ow *OutWriter) WriteUsersSummary(full, shown schema.SummaryTable, cfg *contract.Config, userURL func(string) string) (string, error) {
	path := filepath.Join(cfg.OutputDir, SummaryFileName(cfg.Host, cfg.RepoFileName(), cfg.Output))
	if err := writeSummaryFile(path, full, cfg.Output); err != nil {
		return "", fmt.Errorf("error writing users summary: %w", err)
	}
	if cfg.Output == schema.TextOut {
		if err := writeSummaryTable(ow.out, shown, cfg, userURL); err != nil {
			return "", fmt.Errorf("error writing users summary table: %w", err)
		}
	}
	return path, nil
}

// WriteCommentTimeline saves the full matrix to the report file and, in text mode,
// prints the shown matrix.
func (ow *OutWriter) WriteCommentTimeline(full, shown schema.TimelineMatrix, cfg *contract.Config) (string, error) {
	path := filepath.Join(cfg.OutputDir, TimelineFileName(cfg.Host, cfg.RepoFileName(), full.Freq, full.Type, cfg.Output))
	if err := writeTimelineFile(path, full, cfg.Output); err != nil {
		return "", fmt.Errorf("error writing comment timeline: %w", err)
	}
	if cfg.Output == schema.TextOut {
		if err := writeTimelineTable(ow.out, shown, cfg); err != nil {
			return "", fmt.Errorf("error writing comment timeline table: %w", err)
		}
	}
	return path, nil
}

// WriteRepoOverview prints the cached state of a repository.
func (ow *OutWriter) WriteRepoOverview(overview schema.RepoOverview, cfg *contract.Config) error {
	if cfg.Output == schema.JSONOut {
		return writeJSON(ow.out, overview)
	}
	return writeOverviewText(ow.out, overview, cfg)
}

// WriteDependents saves the dependents report and, in text mode, prints the top rows.
func (ow *OutWriter) WriteDependents(deps []schema.Dependent, repo string, scope schema.DependentScope, cfg *contract.Config) (string, error) {
	path := filepath.Join(cfg.OutputDir, DependentsFileName(repo, scope, cfg.Output))
	if cfg.OutputFile != "" {
		path = cfg.OutputFile
	}
	if err := writeDependentsFile(path, deps, cfg.Output); err != nil {
		return "", fmt.Errorf("error writing dependents: %w", err)
	}
	if cfg.Output == schema.TextOut {
		if err := writeDependentsTable(ow.out, deps, cfg); err != nil {
			return "", fmt.Errorf("error writing dependents table: %w", err)
		}
	}
	return path, nil
}
