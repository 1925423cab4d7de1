package agg

import (
	"testing"
	"time"

	"github.com/huangsam/repostats/core/filter"
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 12, 0, 0, 0, time.UTC)
}

func ptr(t time.Time) *time.Time { return &t }

func newFilter(t *testing.T, window contract.TimeWindow) *filter.Filter {
	t.Helper()
	f, err := filter.NewWithRules(contract.DefaultBotPatterns, contract.DefaultSpamPatterns, contract.DefaultSpamThreshold, window)
	require.NoError(t, err)
	return f
}

func TestUsersSummaryExample(t *testing.T) {
	both := []string{"me", "you"}
	items := []schema.SimplifiedTicket{
		{ID: 1, Type: schema.PullRequestKind, State: schema.ClosedState, Author: "me", Commenters: both},
		{ID: 2, Type: schema.PullRequestKind, State: schema.OpenState, Author: "me", Commenters: both},
		{ID: 3, Type: schema.IssueKind, State: schema.ClosedState, Author: "me", Commenters: both},
		{ID: 4, Type: schema.PullRequestKind, State: schema.MergedState, Author: "you", Commenters: both},
		{ID: 5, Type: schema.IssueKind, State: schema.OpenState, Author: "you", Commenters: both},
	}

	rows := UsersSummary(items, contract.TimeWindow{})
	require.Len(t, rows, 2)

	assert.Equal(t, schema.UserSummary{
		User:      "me",
		PRs:       schema.KindCounts{Opened: 2, Merged: 0, Commented: 1},
		Issues:    schema.KindCounts{Opened: 1, Merged: 0, Commented: 1},
		AllOpened: 3,
	}, rows[0])
	assert.Equal(t, schema.UserSummary{
		User:      "you",
		PRs:       schema.KindCounts{Opened: 1, Merged: 1, Commented: 2},
		Issues:    schema.KindCounts{Opened: 1, Merged: 0, Commented: 1},
		AllOpened: 2,
	}, rows[1])
}

func TestUsersSummaryWindowAndTieBreak(t *testing.T) {
	from := day(2020, 8, 1)
	to := day(2020, 10, 1)
	window := contract.TimeWindow{From: &from, To: &to}

	items := []schema.SimplifiedTicket{
		{ID: 1, Type: schema.PullRequestKind, State: schema.MergedState, Author: "zed", CreatedAt: day(2020, 9, 1), ClosedAt: ptr(day(2020, 11, 1))},
		{ID: 2, Type: schema.IssueKind, State: schema.OpenState, Author: "zed", CreatedAt: day(2019, 1, 1)},
		{ID: 3, Type: schema.PullRequestKind, State: schema.MergedState, Author: "amy", CreatedAt: day(2020, 9, 2), ClosedAt: ptr(day(2020, 9, 3))},
	}

	rows := UsersSummary(items, window)
	require.Len(t, rows, 2)
	assert.Equal(t, "amy", rows[0].User, "equal totals sort by name")
	assert.Equal(t, 1, rows[0].PRs.Merged)
	assert.Equal(t, "zed", rows[1].User)
	assert.Zero(t, rows[1].PRs.Merged, "merged outside the window")
	assert.Zero(t, rows[1].Issues.Opened, "opened before the window")
	assert.Equal(t, 1, rows[1].AllOpened)
}

func TestSummaryTableForAndFilter(t *testing.T) {
	rows := []schema.UserSummary{
		{User: "a", PRs: schema.KindCounts{Merged: 1}, AllOpened: 9},
		{User: "b", PRs: schema.KindCounts{Merged: 5}, AllOpened: 1},
		{User: "c", PRs: schema.KindCounts{Merged: 5}, AllOpened: 2},
	}

	table := SummaryTableFor(rows, []schema.SummaryColumn{schema.MergedPRsColumn, schema.AllOpenedColumn})
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{table.Rows[0].User, table.Rows[1].User, table.Rows[2].User})
	assert.Equal(t, "a", rows[0].User, "input order untouched")

	shown := FilterSummary(table, 3)
	require.Len(t, shown.Rows, 2)
	assert.Equal(t, table.Columns, shown.Columns)

	all := SummaryTableFor(rows, nil)
	assert.Equal(t, schema.AllSummaryColumns, all.Columns)

	assert.Empty(t, FilterSummary(table, 100).Rows)
}

func TestSimplify(t *testing.T) {
	from := day(2020, 8, 1)
	to := day(2020, 10, 1)
	f := newFilter(t, contract.TimeWindow{From: &from, To: &to})

	tickets := map[int]schema.Ticket{
		2: {
			ID: 2, Kind: schema.PullRequestKind, State: schema.MergedState, Author: "me",
			CreatedAt: day(2020, 8, 2), ClosedAt: ptr(day(2020, 8, 5)), UpdatedAt: ptr(day(2020, 8, 6)),
			Comments: []schema.Comment{
				{Author: "you", Body: "Could you add a test for the empty case?", CreatedAt: day(2020, 8, 3)},
				{Author: "codecov[bot]", Body: "Coverage increased", CreatedAt: day(2020, 8, 3)},
				{Author: "them", Body: "LGTM", CreatedAt: day(2020, 8, 4)},
			},
			ReviewComments: []schema.Comment{
				{Author: "you", Body: "nit: rename this variable", CreatedAt: day(2020, 8, 3)},
				{Author: "old", Body: "This was discussed long ago in the design doc", CreatedAt: day(2019, 1, 1)},
			},
		},
		1: {
			ID: 1, Kind: schema.IssueKind, State: schema.OpenState, Author: "you", CreatedAt: day(2020, 7, 1),
			Comments:       []schema.Comment{},
			ReviewComments: []schema.Comment{},
		},
		3: {ID: 3, Kind: schema.IssueKind, Author: "broken", CreatedAt: day(2020, 9, 1)},
	}

	items := Simplify(tickets, f)
	require.Len(t, items, 2, "ticket without detail is skipped")
	assert.Equal(t, 1, items[0].ID)
	assert.Equal(t, 2, items[1].ID)

	assert.Equal(t, []string{"you"}, items[1].Commenters)
	assert.Equal(t, day(2020, 8, 5), *items[1].CountAt, "PRs count at close time")
	assert.Equal(t, day(2020, 7, 1), *items[0].CountAt, "issues fall back to creation time")
	assert.NotNil(t, items[0].Commenters)

	assert.NotNil(t, Simplify(map[int]schema.Ticket{}, f), "empty input still yields a list")
}

func TestCountAt(t *testing.T) {
	created, closed, updated := day(2020, 1, 1), day(2020, 2, 1), day(2021, 5, 1)

	tests := []struct {
		name   string
		ticket schema.Ticket
		want   *time.Time
	}{
		{
			name:   "open issue counts at update",
			ticket: schema.Ticket{Kind: schema.IssueKind, State: schema.OpenState, CreatedAt: created, UpdatedAt: &updated},
			want:   &updated,
		},
		{
			name:   "open issue without update counts at creation",
			ticket: schema.Ticket{Kind: schema.IssueKind, State: schema.OpenState, CreatedAt: created},
			want:   &created,
		},
		{
			name: "closed issue counts at close",
			ticket: schema.Ticket{
				Kind: schema.IssueKind, State: schema.ClosedState,
				CreatedAt: created, ClosedAt: &closed, UpdatedAt: &updated,
			},
			want: &closed,
		},
		{
			name:   "closed issue without close time counts at update",
			ticket: schema.Ticket{Kind: schema.IssueKind, State: schema.ClosedState, CreatedAt: created, UpdatedAt: &updated},
			want:   &updated,
		},
		{
			name:   "merged pull request counts at close",
			ticket: schema.Ticket{Kind: schema.PullRequestKind, State: schema.MergedState, ClosedAt: &closed, UpdatedAt: &updated},
			want:   &closed,
		},
		{
			name:   "open pull request is not counted",
			ticket: schema.Ticket{Kind: schema.PullRequestKind, State: schema.OpenState, UpdatedAt: &updated},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CountAt(tt.ticket)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s, want %s", got, tt.want)
		})
	}
}

func TestExtractTimelineWindowBoundary(t *testing.T) {
	to := time.Date(2020, 10, 1, 0, 0, 0, 0, time.UTC)
	f := newFilter(t, contract.TimeWindow{To: &to})

	tickets := map[int]schema.Ticket{
		1: {
			ID: 1, Kind: schema.IssueKind, Author: "me", CreatedAt: day(2019, 1, 1),
			Comments: []schema.Comment{
				{Author: "late", Body: "Still seeing this on the latest release", CreatedAt: to.Add(time.Second)},
				{Author: "exact", Body: "Still seeing this on the latest release", CreatedAt: to},
				{Author: "spammer", Body: "thanks", CreatedAt: day(2020, 9, 1)},
				{Author: "stale", Body: "This issue has been automatically marked as stale", CreatedAt: day(2020, 9, 1)},
			},
		},
		2: {
			ID: 2, Kind: schema.PullRequestKind, Author: "me", CreatedAt: day(2020, 9, 1),
			ReviewComments: []schema.Comment{
				{Author: "reviewer", Body: "Please split this function", CreatedAt: day(2020, 9, 2)},
			},
		},
	}

	records := ExtractTimeline(tickets, f)
	require.Len(t, records, 2)
	assert.Equal(t, "reviewer", records[0].Author, "ordered by creation time")
	assert.Equal(t, schema.PullRequestKind, records[0].ParentType)
	assert.Equal(t, 2, records[0].ParentID)
	assert.Equal(t, "exact", records[1].Author, "upper bound is inclusive")
}

func TestExtractTimelineUsesEditTime(t *testing.T) {
	from := day(2020, 8, 1)
	f := newFilter(t, contract.TimeWindow{From: &from})

	tickets := map[int]schema.Ticket{
		1: {
			ID: 1, Kind: schema.IssueKind, CreatedAt: day(2019, 1, 1),
			Comments: []schema.Comment{
				{Author: "editor", Body: "Updated with a reproduction script", CreatedAt: day(2020, 7, 1), UpdatedAt: ptr(day(2020, 8, 10))},
			},
		},
	}
	records := ExtractTimeline(tickets, f)
	require.Len(t, records, 1)
	assert.Equal(t, day(2020, 8, 10), records[0].CountAt)
	assert.Equal(t, day(2020, 7, 1), records[0].CreatedAt)
}

func TestBucketKey(t *testing.T) {
	ts := time.Date(2021, 1, 2, 8, 0, 0, 0, time.UTC)
	assert.Equal(t, "2021-01-02", BucketKey(ts, schema.DailyFreq))
	assert.Equal(t, "2020-W53", BucketKey(ts, schema.WeeklyFreq))
	assert.Equal(t, "2021-01", BucketKey(ts, schema.MonthlyFreq))
	assert.Equal(t, "2021", BucketKey(ts, schema.YearlyFreq))
}

func TestCommentTimelineMonthly(t *testing.T) {
	records := []schema.CommentRecord{
		{ParentType: schema.IssueKind, ParentID: 1, Author: "me", CreatedAt: day(2020, 10, 5)},
		{ParentType: schema.IssueKind, ParentID: 2, Author: "me", CreatedAt: day(2020, 10, 17)},
		{ParentType: schema.PullRequestKind, ParentID: 3, Author: "you", CreatedAt: day(2020, 11, 15)},
	}

	m := CommentTimeline(records, schema.MonthlyFreq, schema.AllTypes)
	assert.Equal(t, []string{"2020-10", "2020-11"}, m.Buckets)
	assert.Equal(t, []string{"me", "you"}, m.Users)
	assert.Equal(t, [][]int{{2, 0}, {0, 1}}, m.Counts)
	assert.Equal(t, 2, m.Get("2020-10", "me"))
	assert.Equal(t, 1, m.Get("2020-11", "you"))
	assert.Zero(t, m.Get("2020-12", "me"))
	assert.Equal(t, schema.AllTypes, m.Type)

	issues := CommentTimeline(records, schema.MonthlyFreq, schema.IssueTypes)
	assert.Equal(t, []string{"2020-10"}, issues.Buckets)
	assert.Equal(t, []string{"me"}, issues.Users)
}

func TestCommentTimelineDedup(t *testing.T) {
	records := []schema.CommentRecord{
		{ParentType: schema.IssueKind, ParentID: 7, Author: "me", CreatedAt: day(2020, 10, 5)},
		{ParentType: schema.IssueKind, ParentID: 7, Author: "me", CreatedAt: day(2020, 10, 6)},
		{ParentType: schema.PullRequestKind, ParentID: 7, Author: "me", CreatedAt: day(2020, 10, 6)},
	}

	m := CommentTimeline(records, schema.MonthlyFreq, schema.AllTypes)
	assert.Equal(t, 2, m.Get("2020-10", "me"), "same ticket counts once, same id of a different kind counts apart")

	daily := CommentTimeline(records, schema.DailyFreq, schema.IssueTypes)
	assert.Equal(t, 1, daily.Get("2020-10-05", "me"))
	assert.Equal(t, 1, daily.Get("2020-10-06", "me"))
}

func TestCommentTimelineSelectUsers(t *testing.T) {
	records := []schema.CommentRecord{
		{ParentType: schema.IssueKind, ParentID: 1, Author: "busy", CreatedAt: day(2020, 1, 5)},
		{ParentType: schema.IssueKind, ParentID: 2, Author: "busy", CreatedAt: day(2020, 2, 5)},
		{ParentType: schema.IssueKind, ParentID: 3, Author: "busy", CreatedAt: day(2020, 3, 5)},
		{ParentType: schema.IssueKind, ParentID: 1, Author: "quiet", CreatedAt: day(2020, 1, 6)},
	}
	m := CommentTimeline(records, schema.MonthlyFreq, schema.AllTypes)
	assert.Equal(t, map[string]int{"busy": 3, "quiet": 1}, m.UserTotals())

	shown := m.SelectUsers(3)
	assert.Equal(t, []string{"busy"}, shown.Users)
	assert.Equal(t, m.Buckets, shown.Buckets)
	assert.Equal(t, [][]int{{1}, {1}, {1}}, shown.Counts)
	assert.Len(t, m.Users, 2, "original matrix untouched")
}

func TestCommentTimelineEmpty(t *testing.T) {
	m := CommentTimeline(nil, schema.WeeklyFreq, schema.PRTypes)
	assert.Empty(t, m.Buckets)
	assert.Empty(t, m.Users)
	assert.Equal(t, schema.PRTypes, m.Type)
}
