package outwriter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
)

// fileExtension returns the extension of report files written in a mode.
// Text mode writes its report files as CSV.
func fileExtension(mode schema.OutputMode) string {
	switch mode {
	case schema.JSONOut:
		return "json"
	case schema.ParquetOut:
		return "parquet"
	default:
		return "csv"
	}
}

// SummaryFileName returns the users summary report name of a repository.
func SummaryFileName(host, repoFile string, mode schema.OutputMode) string {
	return fmt.Sprintf("%s_%s_users-summary.%s", host, repoFile, fileExtension(mode))
}

// TimelineFileName returns the comment timeline report name for a frequency and type.
func TimelineFileName(host, repoFile string, freq schema.Frequency, typeFilter schema.TypeFilter, mode schema.OutputMode) string {
	return fmt.Sprintf("%s_%s_user-comments_freq:%s_type:%s.%s", host, repoFile, freq, typeFilter.Label(), fileExtension(mode))
}

// DependentsFileName returns the dependents report name of a repository and scope.
func DependentsFileName(repo string, scope schema.DependentScope, mode schema.OutputMode) string {
	return fmt.Sprintf("dependents-%s-%s.%s", strings.ReplaceAll(repo, "/", "-"), scope, fileExtension(mode))
}

// writeWithFile handles the common pattern of opening a file, writing to it, and cleaning up.
// It accepts a writer function that takes an io.Writer and returns an error.
func writeWithFile(outputFile string, writer func(io.Writer) error, successMsg string) error {
	file, err := contract.SelectOutputFile(outputFile)
	if err != nil {
		return err
	}
	// Only close if it's not stdout
	if file != os.Stdout {
		defer func() { _ = file.Close() }()
	}

	if err := writer(file); err != nil {
		return err
	}

	if file != os.Stdout {
		fmt.Fprintf(os.Stderr, "💾 %s to %s\n", successMsg, outputFile)
	}
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// writeCSVWithHeader handles the common pattern of creating a CSV writer,
// writing a header, and writing data rows.
func writeCSVWithHeader(w io.Writer, header []string, writeRows func(*csv.Writer) error) error {
	csvWriter := csv.NewWriter(w)

	if err := csvWriter.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	if err := writeRows(csvWriter); err != nil {
		return err
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
