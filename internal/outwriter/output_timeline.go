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

// writeTimelineFile dispatches the comment timeline report on the output mode.
func writeTimelineFile(path string, m schema.TimelineMatrix, mode schema.OutputMode) error {
	switch mode {
	case schema.JSONOut:
		return writeWithFile(path, func(w io.Writer) error {
			return writeJSON(w, m)
		}, "Wrote JSON")
	case schema.ParquetOut:
		return parquet.WriteFile(path, parquet.ConvertTimelineMatrix(m))
	default:
		return writeWithFile(path, func(w io.Writer) error {
			return writeTimelineCSV(w, m)
		}, "Wrote CSV")
	}
}

// writeTimelineCSV writes one row per bucket with one column per user.
func writeTimelineCSV(w io.Writer, m schema.TimelineMatrix) error {
	header := append([]string{"bucket"}, m.Users...)
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, bucket := range m.Buckets {
			if err := cw.Write(timelineRecord(bucket, m.Counts[i], len(m.Users))); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

// writeTimelineTable writes the matrix as a table. Users beyond what fits
// the terminal are left out and reported in the footer.
func writeTimelineTable(w io.Writer, m schema.TimelineMatrix, cfg *contract.Config) error {
	limit := min(len(m.Users), maxTimelineUsers(cfg))

	header := make([]string, 0, limit+1)
	header = append(header, "Bucket")
	for _, u := range m.Users[:limit] {
		header = append(header, contract.TruncateText(u, maxUserNameWidth))
	}

	fmt.Fprintln(w, contract.ColorizeFunc(contract.HeaderColor, cfg.UseColors)(
		fmt.Sprintf("Comments per user (freq: %s, type: %s)", m.Freq, m.Type.Label())))

	table := tablewriter.NewWriter(w)
	table.Header(header)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(m.Buckets))
	for i, bucket := range m.Buckets {
		data = append(data, timelineRecord(bucket, m.Counts[i], limit))
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	if hidden := len(m.Users) - limit; hidden > 0 {
		muted := contract.ColorizeFunc(contract.MutedColor, cfg.UseColors)
		_, err := fmt.Fprintln(w, muted(fmt.Sprintf("%d more users not shown, see the report file", hidden)))
		return err
	}
	return nil
}

func timelineRecord(bucket string, counts []int, limit int) []string {
	record := make([]string, 0, limit+1)
	record = append(record, bucket)
	for _, c := range counts[:limit] {
		record = append(record, strconv.Itoa(c))
	}
	return record
}
