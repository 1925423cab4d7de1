package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/parquet"
	"github.com/huangsam/repostats/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// maxDependentsShown bounds the rows of the dependents table.
const maxDependentsShown = 20

// writeOverviewText prints the state of a cached repository.
func writeOverviewText(w io.Writer, o schema.RepoOverview, cfg *contract.Config) error {
	header := contract.ColorizeFunc(contract.HeaderColor, cfg.UseColors)
	muted := contract.ColorizeFunc(contract.MutedColor, cfg.UseColors)

	fmt.Fprintln(w, header(fmt.Sprintf("%s/%s", o.Host, o.Repo)))
	if o.Info != nil {
		if o.Info.Description != "" {
			fmt.Fprintf(w, "  %s\n", o.Info.Description)
		}
		fmt.Fprintf(w, "  Stars: %s  Forks: %s  Open issues: %s\n",
			humanize.Comma(int64(o.Info.Stars)), humanize.Comma(int64(o.Info.Forks)), humanize.Comma(int64(o.Info.OpenIssues)))
	}
	fmt.Fprintf(w, "  Location: %s\n", muted(o.Location))
	fmt.Fprintf(w, "  Version: %s  Updated: %s\n", valueOr(o.Version, "unknown"), valueOr(o.UpdatedAt, "never"))
	fmt.Fprintf(w, "  Tickets: %s (%s issues, %s PRs)\n",
		humanize.Comma(int64(o.Tickets)), humanize.Comma(int64(o.Issues)), humanize.Comma(int64(o.PullRequests)))
	fmt.Fprintf(w, "  States: %d open, %d closed, %d merged\n", o.Open, o.Closed, o.Merged)
	fmt.Fprintf(w, "  Comments: %s\n", humanize.Comma(int64(o.Comments)))

	outdated := contract.ColorizeFunc(contract.OKColor, cfg.UseColors)
	if o.Outdated > 0 {
		outdated = contract.ColorizeFunc(contract.WarnColor, cfg.UseColors)
	}
	fmt.Fprintf(w, "  Outdated: %s\n", outdated(strconv.Itoa(o.Outdated)))
	_, err := fmt.Fprintf(w, "  Preprocessed: %t\n", o.Preprocessed)
	return err
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// writeDependentsFile dispatches the dependents report on the output mode.
func writeDependentsFile(path string, deps []schema.Dependent, mode schema.OutputMode) error {
	switch mode {
	case schema.JSONOut:
		return writeWithFile(path, func(w io.Writer) error {
			return writeJSON(w, deps)
		}, "Wrote JSON")
	case schema.ParquetOut:
		return parquet.WriteFile(path, parquet.ConvertDependents(deps))
	default:
		return writeWithFile(path, func(w io.Writer) error {
			return writeDependentsCSV(w, deps)
		}, "Wrote CSV")
	}
}

func writeDependentsCSV(w io.Writer, deps []schema.Dependent) error {
	return writeCSVWithHeader(w, []string{"url", "stars", "forks"}, func(cw *csv.Writer) error {
		for _, d := range deps {
			if err := cw.Write([]string{d.URL(), strconv.Itoa(d.Stars), strconv.Itoa(d.Forks)}); err != nil {
				return fmt.Errorf("failed to write CSV row: %w", err)
			}
		}
		return nil
	})
}

// writeDependentsTable prints the most starred dependents.
func writeDependentsTable(w io.Writer, deps []schema.Dependent, cfg *contract.Config) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Repository", "Stars", "Forks"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	shown := deps[:min(len(deps), maxDependentsShown)]
	data := make([][]string, 0, len(shown))
	for i, d := range shown {
		data = append(data, []string{
			strconv.Itoa(i + 1),
			contract.TruncateText(d.Repo, terminalWidth(cfg)/2),
			humanize.Comma(int64(d.Stars)),
			humanize.Comma(int64(d.Forks)),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "Showing top %d of %d dependents\n", len(shown), len(deps))
	return err
}
