package iocache

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestSnapshotKey(t *testing.T) {
	assert.Equal(t, "dump-github_octo-widgets.json", SnapshotKey("github", "octo/widgets"))
	assert.Equal(t, "dump-github_solo.json", SnapshotKey("github", "solo"))
}

func TestIsOutdatedVersion(t *testing.T) {
	tests := []struct {
		version string
		want    bool
	}{
		{"", true},
		{"garbage", true},
		{"0.1.3", true},
		{"0.1.4", false},
		{"0.2.0", false},
		{"1.0.0", false},
	}
	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			assert.Equal(t, tt.want, IsOutdatedVersion(tt.version))
		})
	}
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fileStore, err := NewFileStore(dir)
	require.NoError(t, err)

	snapshots := NewSnapshotStore(fileStore, schema.JSONBackend)
	fixed := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	snapshots.now = func() time.Time { return fixed }

	snap, err := snapshots.Load("github", "octo/widgets")
	require.NoError(t, err)
	assert.Empty(t, snap.Tickets, "a miss yields an empty snapshot")
	assert.Equal(t, "octo/widgets", snap.Repo)

	updated := fixed.Add(-time.Hour)
	snap.Tickets[7] = schema.Ticket{
		ID:             7,
		Kind:           schema.PullRequestKind,
		State:          schema.OpenState,
		Author:         "alice",
		CreatedAt:      fixed.Add(-48 * time.Hour),
		UpdatedAt:      &updated,
		Comments:       []schema.Comment{{Author: "bob", CreatedAt: fixed.Add(-2 * time.Hour)}},
		ReviewComments: []schema.Comment{},
	}

	location, err := snapshots.Save(snap)
	require.NoError(t, err)
	assert.Equal(t, fileStore.Path("dump-github_octo-widgets.json"), location)
	assert.Equal(t, schema.ToolVersion, snap.Version)
	assert.Equal(t, "2024-03-01T12:00:00Z", snap.UpdatedAt)

	loaded, err := snapshots.Load("github", "octo/widgets")
	require.NoError(t, err)
	require.Contains(t, loaded.Tickets, 7)
	assert.Equal(t, "alice", loaded.Tickets[7].Author)
	assert.True(t, loaded.Tickets[7].HasDetail())
	assert.Equal(t, schema.ToolVersion, loaded.Version)
}

func TestSnapshotStoreTicketKeysAreStrings(t *testing.T) {
	store := &MockCacheStore{}
	var saved []byte
	store.On("Set", "dump-github_octo-widgets.json", mock.Anything, snapshotBlobVersion, mock.Anything).
		Run(func(args mock.Arguments) { saved = args.Get(1).([]byte) }).
		Return(nil)

	snapshots := NewSnapshotStore(store, schema.SQLiteBackend)
	snap := schema.NewSnapshot("github", "octo/widgets")
	snap.Tickets[12] = schema.Ticket{ID: 12, Author: "carol"}

	location, err := snapshots.Save(snap)
	require.NoError(t, err)
	assert.Equal(t, "sqlite:dump-github_octo-widgets.json", location)

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(saved, &raw))
	var tickets map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["raw_tickets"], &tickets))
	assert.Contains(t, tickets, "12")
	store.AssertExpectations(t)
}

func TestSnapshotStoreLoadErrors(t *testing.T) {
	store := &MockCacheStore{}
	store.On("Get", "dump-github_octo-broken.json").Return([]byte("{not json"), 1, int64(0), nil)
	store.On("Get", "dump-github_octo-down.json").Return(nil, 0, int64(0), assert.AnError)

	snapshots := NewSnapshotStore(store, schema.RedisBackend)

	_, err := snapshots.Load("github", "octo/broken")
	assert.Error(t, err)

	_, err = snapshots.Load("github", "octo/down")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSnapshotStoreLoadDropsMalformedTickets(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	previous := contract.Logger()
	contract.SetLogger(zap.New(core))
	t.Cleanup(func() { contract.SetLogger(previous) })

	dir := t.TempDir()
	fileStore, err := NewFileStore(dir)
	require.NoError(t, err)
	blob := []byte(`{
		"version": "0.2.0",
		"host-name": "github",
		"repo-name": "octo/widgets",
		"raw_tickets": {
			"1": {"number": 1, "kind": "issue", "state": "open", "author": "alice",
			      "created_at": "2024-01-03T10:00:00Z", "updated_at": "2024-01-04T10:00:00Z",
			      "comments": [], "review_comments": []},
			"2": {"number": 2, "kind": "issue", "state": "open", "author": "bob",
			      "created_at": "2024-01-05T10:00:00Z", "comments": 4}
		}
	}`)
	require.NoError(t, fileStore.Set("dump-github_octo-widgets.json", blob, snapshotBlobVersion, 0))

	snap, err := NewSnapshotStore(fileStore, schema.JSONBackend).Load("github", "octo/widgets")
	require.NoError(t, err)
	require.Len(t, snap.Tickets, 1)
	assert.Equal(t, "alice", snap.Tickets[1].Author)
	assert.NotContains(t, snap.Tickets, 2)

	dropped := logs.FilterMessage("Dropping malformed cached ticket").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, int64(2), dropped[0].ContextMap()["ticket"])
}

func TestSnapshotStoreLoadFillsIdentity(t *testing.T) {
	store := &MockCacheStore{}
	store.On("Get", "dump-github_octo-widgets.json").Return([]byte(`{"version":"0.1.0"}`), 1, int64(0), nil)

	snap, err := NewSnapshotStore(store, schema.RedisBackend).Load("github", "octo/widgets")
	require.NoError(t, err)
	assert.Equal(t, "github", snap.Host)
	assert.Equal(t, "octo/widgets", snap.Repo)
	assert.NotNil(t, snap.Tickets)
	assert.False(t, snap.Preprocessed())
}

func TestSnapshotStoreLoadWarnsOnOutdatedVersion(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	previous := contract.Logger()
	contract.SetLogger(zap.New(core))
	t.Cleanup(func() { contract.SetLogger(previous) })

	store := &MockCacheStore{}
	store.On("Get", "dump-github_octo-old.json").Return([]byte(`{"version":"0.1.3","raw_tickets":{}}`), 1, int64(0), nil)
	store.On("Get", "dump-github_octo-new.json").Return([]byte(`{"version":"0.2.0","raw_tickets":{}}`), 1, int64(0), nil)
	snapshots := NewSnapshotStore(store, schema.SQLiteBackend)

	_, err := snapshots.Load("github", "octo/new")
	require.NoError(t, err)
	assert.Equal(t, 0, logs.Len())

	_, err = snapshots.Load("github", "octo/old")
	require.NoError(t, err)
	require.Equal(t, 1, logs.Len())
	assert.Contains(t, logs.All()[0].Message, "review comment")
}

func TestSnapshotStoreSaveError(t *testing.T) {
	store := &MockCacheStore{}
	store.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(contract.ErrCacheDirMissing)

	_, err := NewSnapshotStore(store, schema.JSONBackend).Save(schema.NewSnapshot("github", "octo/widgets"))
	assert.ErrorIs(t, err, contract.ErrCacheDirMissing)
}
