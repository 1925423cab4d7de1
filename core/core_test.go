package core

import (
	"testing"
	"time"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/gitclient"
	"github.com/huangsam/repostats/internal/iocache"
	"github.com/huangsam/repostats/schema"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var (
	day1 = time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	day2 = day1.Add(24 * time.Hour)
	day6 = day1.Add(5 * 24 * time.Hour)
	day7 = day1.Add(6 * 24 * time.Hour)
)

// testEnv is a snapshot cache in a temp dir behind a mocked manager.
type testEnv struct {
	cfg   *contract.Config
	mgr   *iocache.MockCacheManager
	store *iocache.FileStore
}

func newTestEnv(t *testing.T, runs contract.RunStore) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := iocache.NewFileStore(dir)
	require.NoError(t, err)

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetSnapshotStore").Return(store)
	if runs == nil {
		mgr.On("GetRunStore").Return(nil).Maybe()
	} else {
		mgr.On("GetRunStore").Return(runs)
	}

	cfg := &contract.Config{
		Repo:            "octo/widgets",
		Host:            contract.DefaultHost,
		Workers:         2,
		RequestTimeout:  time.Second,
		MinContribution: 1,
		BotPatterns:     contract.DefaultBotPatterns,
		SpamPatterns:    contract.DefaultSpamPatterns,
		SpamThreshold:   contract.DefaultSpamThreshold,
		Output:          schema.CSVOut,
		OutputDir:       dir,
		CacheBackend:    schema.JSONBackend,
		CacheDir:        dir,
		Frequencies:     []schema.Frequency{schema.MonthlyFreq},
		TypeFilters:     []schema.TypeFilter{schema.AllTypes},
	}
	return &testEnv{cfg: cfg, mgr: mgr, store: store}
}

func newTestHost() *gitclient.MockHost {
	host := &gitclient.MockHost{}
	host.On("Name").Return(contract.DefaultHost)
	host.On("UserURL", mock.Anything).Return("@user").Maybe()
	return host
}

// issueSummary is issue #1 opened by alice.
func issueSummary() schema.TicketSummary {
	return schema.TicketSummary{
		ID:        1,
		Kind:      schema.IssueKind,
		State:     schema.OpenState,
		Author:    "alice",
		Title:     "Widgets crash on start",
		CreatedAt: day1,
		UpdatedAt: &day2,
	}
}

// prSummary is pull request #2 opened and merged by bob.
func prSummary() schema.TicketSummary {
	return schema.TicketSummary{
		ID:        2,
		Kind:      schema.PullRequestKind,
		State:     schema.MergedState,
		Author:    "bob",
		Title:     "Fix crash on start",
		CreatedAt: day6,
		ClosedAt:  &day7,
		UpdatedAt: &day7,
	}
}

func issueDetail() schema.Ticket {
	t := schema.TicketFromSummary(issueSummary())
	t.Comments = []schema.Comment{
		{Author: "bob", Body: "I can reproduce this on linux with the latest release", CreatedAt: day2},
		{Author: "dependabot[bot]", Body: "Bumps widgets from 1.0 to 1.1", CreatedAt: day2},
		{Author: "carol", Body: "LGTM", CreatedAt: day2},
	}
	t.ReviewComments = []schema.Comment{}
	return t
}

func prDetail() schema.Ticket {
	t := schema.TicketFromSummary(prSummary())
	t.MergedAt = &day7
	t.Comments = []schema.Comment{}
	t.ReviewComments = []schema.Comment{
		{Author: "alice", Body: "Please rename this variable to something clearer", CreatedAt: day6},
	}
	return t
}

// seedSnapshot saves a snapshot with both tickets and no projections.
func seedSnapshot(t *testing.T, env *testEnv) {
	t.Helper()
	snap := schema.NewSnapshot(contract.DefaultHost, env.cfg.Repo)
	snap.Tickets[1] = issueDetail()
	snap.Tickets[2] = prDetail()
	_, err := iocache.NewSnapshotStore(env.store, schema.JSONBackend).Save(snap)
	require.NoError(t, err)
}
