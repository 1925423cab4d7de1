package iocache

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/parquet"
)

// ExportRuns writes the whole fetch run history of a store to a Parquet file.
func ExportRuns(w io.Writer, store contract.RunStore, outputFile string) (string, error) {
	if outputFile == "" {
		return "", errors.New("--output-file is required for export command")
	}
	if store == nil {
		return "", errors.New("no run history store is configured")
	}

	status, err := store.GetStatus()
	if err != nil {
		return "", fmt.Errorf("failed to get run history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return "", errors.New("no fetch runs found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total fetch runs: %d\n", status.TotalRuns)

	runs, err := store.ListRuns(0)
	if err != nil {
		return "", fmt.Errorf("failed to retrieve fetch runs: %w", err)
	}

	path := outputFile
	if !strings.HasSuffix(path, ".parquet") {
		path += ".fetch_runs.parquet"
	}
	rows := parquet.ConvertFetchRuns(runs)
	if err := parquet.WriteFile(path, rows); err != nil {
		return "", fmt.Errorf("failed to write fetch runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d fetch runs to: %s\n", len(rows), path)
	return path, nil
}
