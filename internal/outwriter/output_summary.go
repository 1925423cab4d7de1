package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/parquet"
	"github.com/huangsam/repostats/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// writeSummaryFile dispatches the users summary report on the output mode.
func writeSummaryFile(path string, table schema.SummaryTable, mode schema.OutputMode) error {
	switch mode {
	case schema.JSONOut:
		return writeWithFile(path, func(w io.Writer) error {
			return writeSummaryJSON(w, table)
		}, "Wrote JSON")
	case schema.ParquetOut:
		if err := parquet.WriteFile(path, parquet.ConvertSummaryTable(table)); err != nil {
			return err
		}
		return nil
	default:
		return writeWithFile(path, func(w io.Writer) error {
			return writeSummaryCSV(w, table)
		}, "Wrote CSV")
	}
}

// writeSummaryCSV writes one row per user with the selected columns.
func writeSummaryCSV(w io.Writer, table schema.SummaryTable) error {
	header := make([]string, 0, len(table.Columns)+1)
	header = append(header, "user")
	for _, col := range table.Columns {
		header = append(header, string(col))
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, row := range table.Rows {
			if err := cw.Write(summaryRecord(row, table.Columns, row.User)); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

// writeSummaryJSON writes the users summary as a list of objects keyed by column name.
func writeSummaryJSON(w io.Writer, table schema.SummaryTable) error {
	rows := make([]map[string]any, 0, len(table.Rows))
	for _, row := range table.Rows {
		obj := map[string]any{"user": row.User}
		for _, col := range table.Columns {
			obj[string(col)] = row.Value(col)
		}
		rows = append(rows, obj)
	}
	return writeJSON(w, rows)
}

// writeSummaryTable generates and writes the human-readable users summary.
func writeSummaryTable(w io.Writer, table schema.SummaryTable, cfg *contract.Config, userURL func(string) string) error {
	tbl := tablewriter.NewWriter(w)

	sortColor := contract.ColorizeFunc(contract.CountColor, cfg.UseColors)
	headers := []string{"User"}
	for i, col := range table.Columns {
		if i == 0 {
			headers = append(headers, sortColor(string(col)))
			continue
		}
		headers = append(headers, string(col))
	}
	tbl.Header(headers)

	tbl.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(table.Rows))
	for _, row := range table.Rows {
		name := row.User
		if userURL != nil {
			name = userURL(row.User)
		}
		data = append(data, summaryRecord(row, table.Columns, name))
	}

	if err := tbl.Bulk(data); err != nil {
		return err
	}
	if err := tbl.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing %d users (min contribution: %d, window: %s)\n", len(table.Rows), cfg.MinContribution, cfg.Window)
	return err
}

func summaryRecord(row schema.UserSummary, columns []schema.SummaryColumn, name string) []string {
	record := make([]string, 0, len(columns)+1)
	record = append(record, name)
	for _, col := range columns {
		record = append(record, strconv.Itoa(row.Value(col)))
	}
	return record
}
