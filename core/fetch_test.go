package core

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/iocache"
	"github.com/huangsam/repostats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestFetchOnline(t *testing.T) {
	runs := &iocache.MockRunStore{}
	runs.On("BeginRun", "github", "octo/widgets", mock.Anything).Return(int64(7), nil).Once()
	runs.On("EndRun", int64(7), mock.Anything, mock.MatchedBy(func(r schema.FetchRun) bool {
		return r.Queued == 2 && r.Fetched == 2 && r.Outdated == 0 && !r.RateLimited
	})).Return(nil).Once()

	env := newTestEnv(t, runs)
	env.cfg.MetricsFile = filepath.Join(t.TempDir(), "repostats.prom")

	host := newTestHost()
	host.On("FetchInfo", mock.Anything).Return(schema.RepoInfo{FullName: "octo/widgets", Stars: 42}, nil).Once()
	host.On("FetchOverview", mock.Anything).Return([]schema.TicketSummary{issueSummary(), prSummary()}, nil).Once()
	host.On("FetchDetail", mock.Anything, issueSummary()).Return(issueDetail(), nil).Once()
	host.On("FetchDetail", mock.Anything, prSummary()).Return(prDetail(), nil).Once()

	report, err := Fetch(context.Background(), env.cfg, host, env.mgr)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Tickets)
	assert.Equal(t, 2, report.Run.Fetched)
	assert.Equal(t, env.store.Path(iocache.SnapshotKey("github", "octo/widgets")), report.Location)

	snap, err := LoadSnapshot(env.cfg, "github", env.mgr)
	require.NoError(t, err)
	assert.True(t, snap.Preprocessed())
	require.NotNil(t, snap.Info)
	assert.Equal(t, 42, snap.Info.Stars)
	assert.Len(t, snap.Simple, 2)
	assert.Len(t, snap.Timeline, 2, "bot and spam comments are dropped")

	metrics, err := os.ReadFile(env.cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), `repostats_fetch_fetched_tickets{host="github",repo="octo/widgets"} 2`)
	assert.Contains(t, string(metrics), `repostats_fetch_outdated_tickets{host="github",repo="octo/widgets"} 0`)

	host.AssertExpectations(t)
	runs.AssertExpectations(t)
}

func TestFetchSecondPassIsClean(t *testing.T) {
	env := newTestEnv(t, nil)
	host := newTestHost()
	host.On("FetchInfo", mock.Anything).Return(schema.RepoInfo{}, nil).Twice()
	host.On("FetchOverview", mock.Anything).Return([]schema.TicketSummary{issueSummary(), prSummary()}, nil).Twice()
	host.On("FetchDetail", mock.Anything, issueSummary()).Return(issueDetail(), nil).Once()
	host.On("FetchDetail", mock.Anything, prSummary()).Return(prDetail(), nil).Once()

	_, err := Fetch(context.Background(), env.cfg, host, env.mgr)
	require.NoError(t, err)

	report, err := Fetch(context.Background(), env.cfg, host, env.mgr)
	require.NoError(t, err)
	assert.Zero(t, report.Run.Queued)
	assert.Zero(t, report.Run.Outdated)
	host.AssertExpectations(t)
}

func TestFetchIncompleteUpdate(t *testing.T) {
	env := newTestEnv(t, nil)
	host := newTestHost()
	host.On("FetchInfo", mock.Anything).Return(schema.RepoInfo{}, nil)
	host.On("FetchOverview", mock.Anything).Return([]schema.TicketSummary{issueSummary(), prSummary()}, nil)
	host.On("FetchDetail", mock.Anything, issueSummary()).Return(issueDetail(), nil).Maybe()
	host.On("FetchDetail", mock.Anything, prSummary()).Return(schema.Ticket{}, errors.New("502 bad gateway")).Maybe()
	env.cfg.Workers = 1

	report, err := Fetch(context.Background(), env.cfg, host, env.mgr)
	require.ErrorIs(t, err, contract.ErrIncompleteUpdate)
	assert.GreaterOrEqual(t, report.Run.Outdated, 1)
	assert.NotEmpty(t, report.Location, "the snapshot is saved anyway")

	snap, err := LoadSnapshot(env.cfg, "github", env.mgr)
	require.NoError(t, err)
	assert.Nil(t, snap.Tickets[2].UpdatedAt, "failed tickets are retried next time")
}

func TestFetchInfoRateLimitedSkipsDetails(t *testing.T) {
	env := newTestEnv(t, nil)
	host := newTestHost()
	host.On("FetchInfo", mock.Anything).Return(schema.RepoInfo{}, contract.ErrRateLimited).Once()
	host.On("FetchOverview", mock.Anything).Return([]schema.TicketSummary{issueSummary()}, nil).Once()

	report, err := Fetch(context.Background(), env.cfg, host, env.mgr)
	require.ErrorIs(t, err, contract.ErrIncompleteUpdate)
	assert.True(t, report.Run.RateLimited)
	assert.Equal(t, 1, report.Run.Outdated)
	assert.Zero(t, report.Run.Fetched)
	host.AssertNotCalled(t, "FetchDetail", mock.Anything, mock.Anything)
}

func TestFetchOverviewFailure(t *testing.T) {
	runs := &iocache.MockRunStore{}
	runs.On("BeginRun", "github", "octo/widgets", mock.Anything).Return(int64(3), nil).Once()
	env := newTestEnv(t, runs)

	host := newTestHost()
	host.On("FetchInfo", mock.Anything).Return(schema.RepoInfo{}, nil)
	host.On("FetchOverview", mock.Anything).Return(nil, errors.New("boom")).Once()

	_, err := Fetch(context.Background(), env.cfg, host, env.mgr)
	require.Error(t, err)
	assert.NotErrorIs(t, err, contract.ErrIncompleteUpdate)
	assert.Contains(t, err.Error(), "failed to fetch overview of octo/widgets")
	runs.AssertNotCalled(t, "EndRun", mock.Anything, mock.Anything, mock.Anything)
}

func TestFetchOffline(t *testing.T) {
	env := newTestEnv(t, nil)
	seedSnapshot(t, env)
	env.cfg.Offline = true
	env.cfg.MetricsFile = filepath.Join(t.TempDir(), "unused.prom")
	host := newTestHost()

	report, err := Fetch(context.Background(), env.cfg, host, env.mgr)
	require.NoError(t, err)
	assert.True(t, report.Offline)
	assert.Equal(t, 2, report.Tickets)
	assert.NoFileExists(t, env.cfg.MetricsFile)

	snap, err := LoadSnapshot(env.cfg, "github", env.mgr)
	require.NoError(t, err)
	assert.True(t, snap.Preprocessed())
	host.AssertNotCalled(t, "FetchOverview", mock.Anything)
}

func TestPrintFetchReport(t *testing.T) {
	var buf bytes.Buffer
	PrintFetchReport(&buf, FetchReport{
		Run:      schema.FetchRun{Host: "github", Repo: "octo/widgets", Queued: 3, Fetched: 2, Failed: 1, Outdated: 1, RateLimited: true, DurationMs: 1500},
		Location: "/tmp/dump.json",
		Tickets:  10,
	}, &contract.Config{})

	out := buf.String()
	assert.Contains(t, out, "Fetch github/octo/widgets")
	assert.Contains(t, out, "Queued: 3  Fetched: 2  Failed: 1")
	assert.Contains(t, out, "Outdated: 1")
	assert.Contains(t, out, "Rate limited")
	assert.Contains(t, out, "Took: 1.5s")
	assert.Contains(t, out, "Snapshot: /tmp/dump.json (10 tickets)")
}

func TestPrintFetchReportOffline(t *testing.T) {
	var buf bytes.Buffer
	PrintFetchReport(&buf, FetchReport{Offline: true, Tickets: 4, Location: "x"}, &contract.Config{})
	assert.Contains(t, buf.String(), "Offline: reprocessed 4 cached tickets")
}
