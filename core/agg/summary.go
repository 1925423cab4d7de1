package agg

import (
	"slices"
	"sort"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
)

// UsersSummary counts opened, merged and commented tickets per author and kind.
//
// Opened counts tickets created in the window, merged counts merged tickets closed in
// the window and commented counts tickets of other authors listing the user as commenter.
// Rows are ordered by all opened descending, then by user name.
func UsersSummary(items []schema.SimplifiedTicket, window contract.TimeWindow) []schema.UserSummary {
	index := make(map[string]int)
	var rows []schema.UserSummary
	for _, it := range items {
		if _, ok := index[it.Author]; !ok {
			index[it.Author] = len(rows)
			rows = append(rows, schema.UserSummary{User: it.Author})
		}
	}

	for _, it := range items {
		own := &rows[index[it.Author]]
		counts := kindCounts(own, it.Type)
		if window.ContainsTime(it.CreatedAt) {
			counts.Opened++
		}
		if it.State == schema.MergedState && window.Contains(it.ClosedAt) {
			counts.Merged++
		}
		for _, user := range it.Commenters {
			if user == it.Author {
				continue
			}
			if i, ok := index[user]; ok {
				kindCounts(&rows[i], it.Type).Commented++
			}
		}
	}

	for i := range rows {
		rows[i].AllOpened = rows[i].PRs.Opened + rows[i].Issues.Opened
	}
	sortRows(rows, schema.AllOpenedColumn)
	return rows
}

// kindCounts returns the per-kind counter of a row for update.
func kindCounts(row *schema.UserSummary, kind schema.TicketKind) *schema.KindCounts {
	if kind == schema.PullRequestKind {
		return &row.PRs
	}
	return &row.Issues
}

// SummaryTableFor restricts the summary to the given columns, sorted by the first one.
// An empty column list selects every column.
func SummaryTableFor(rows []schema.UserSummary, columns []schema.SummaryColumn) schema.SummaryTable {
	if len(columns) == 0 {
		columns = schema.AllSummaryColumns
	}
	table := schema.SummaryTable{
		Columns: slices.Clone(columns),
		Rows:    slices.Clone(rows),
	}
	sortRows(table.Rows, table.Columns[0])
	return table
}

// FilterSummary keeps the rows whose sort column reaches minCount.
func FilterSummary(table schema.SummaryTable, minCount int) schema.SummaryTable {
	out := schema.SummaryTable{Columns: table.Columns, Rows: []schema.UserSummary{}}
	if len(table.Columns) == 0 {
		return out
	}
	for _, row := range table.Rows {
		if row.Value(table.Columns[0]) >= minCount {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// sortRows orders rows by col descending with the user name as tie-break.
func sortRows(rows []schema.UserSummary, col schema.SummaryColumn) {
	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := rows[i].Value(col), rows[j].Value(col)
		if vi != vj {
			return vi > vj
		}
		return rows[i].User < rows[j].User
	})
}
