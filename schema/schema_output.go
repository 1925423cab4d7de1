package schema

import "sort"

// KindCounts holds per-kind contribution counts for one user.
type KindCounts struct {
	Opened    int `json:"opened"`
	Merged    int `json:"merged"`
	Commented int `json:"commented"`
}

// UserSummary aggregates the contributions of one user.
type UserSummary struct {
	User      string     `json:"user"`
	PRs       KindCounts `json:"prs"`
	Issues    KindCounts `json:"issues"`
	AllOpened int        `json:"all_opened"`
}

// Counts returns the per-kind counts for the given kind.
func (u UserSummary) Counts(kind TicketKind) KindCounts {
	if kind == PullRequestKind {
		return u.PRs
	}
	return u.Issues
}

// Value returns the metric stored in the named column.
func (u UserSummary) Value(col SummaryColumn) int {
	switch col {
	case OpenedPRsColumn:
		return u.PRs.Opened
	case MergedPRsColumn:
		return u.PRs.Merged
	case CommentedPRsColumn:
		return u.PRs.Commented
	case OpenedIssuesColumn:
		return u.Issues.Opened
	case MergedIssuesColumn:
		return u.Issues.Merged
	case CommentedIssuesColumn:
		return u.Issues.Commented
	case AllOpenedColumn:
		return u.AllOpened
	default:
		return 0
	}
}

// SummaryTable is the users summary restricted to a set of columns.
// Rows are ordered by the first column descending.
type SummaryTable struct {
	Columns []SummaryColumn `json:"columns"`
	Rows    []UserSummary   `json:"rows"`
}

// TimelineMatrix is the pivoted count of comments per time bucket and user.
// Counts[i][j] is the count for Buckets[i] and Users[j].
type TimelineMatrix struct {
	Freq    Frequency  `json:"freq"`
	Type    TypeFilter `json:"type"`
	Buckets []string   `json:"buckets"`
	Users   []string   `json:"users"`
	Counts  [][]int    `json:"counts"`
}

// Get returns the count for one bucket and user, zero when absent.
func (m TimelineMatrix) Get(bucket, user string) int {
	i := sort.SearchStrings(m.Buckets, bucket)
	if i >= len(m.Buckets) || m.Buckets[i] != bucket {
		return 0
	}
	j := sort.SearchStrings(m.Users, user)
	if j >= len(m.Users) || m.Users[j] != user {
		return 0
	}
	return m.Counts[i][j]
}

// UserTotals returns the total count per user across all buckets.
func (m TimelineMatrix) UserTotals() map[string]int {
	totals := make(map[string]int, len(m.Users))
	for _, row := range m.Counts {
		for j, c := range row {
			totals[m.Users[j]] += c
		}
	}
	return totals
}

// SelectUsers returns a copy of the matrix keeping users whose total is at least minTotal.
// Buckets are kept even when all their remaining cells are zero.
func (m TimelineMatrix) SelectUsers(minTotal int) TimelineMatrix {
	totals := m.UserTotals()
	var keep []int
	for j, u := range m.Users {
		if totals[u] >= minTotal {
			keep = append(keep, j)
		}
	}

	out := TimelineMatrix{
		Freq:    m.Freq,
		Type:    m.Type,
		Buckets: append([]string(nil), m.Buckets...),
		Users:   make([]string, 0, len(keep)),
		Counts:  make([][]int, len(m.Buckets)),
	}
	for _, j := range keep {
		out.Users = append(out.Users, m.Users[j])
	}
	for i, row := range m.Counts {
		out.Counts[i] = make([]int, 0, len(keep))
		for _, j := range keep {
			out.Counts[i] = append(out.Counts[i], row[j])
		}
	}
	return out
}
