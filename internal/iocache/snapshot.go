package iocache

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"go.uber.org/zap"
)

// snapshotBlobVersion is recorded with every blob so that backends can tell formats apart.
const snapshotBlobVersion = 1

// reviewCommentsMilestone is the first snapshot version that carries review comments.
var reviewCommentsMilestone = semver.MustParse(schema.ReviewCommentsVersion)

// locator is implemented by stores that can name the place of an entry.
type locator interface {
	Path(key string) string
}

// snapshotEnvelope decodes a snapshot with its tickets left raw,
// so that one malformed ticket does not spoil the whole entry.
type snapshotEnvelope struct {
	schema.Snapshot
	Tickets map[int]json.RawMessage `json:"raw_tickets"`
}

// SnapshotStore loads and saves whole repository snapshots on top of a blob store.
type SnapshotStore struct {
	store   contract.CacheStore
	backend schema.DatabaseBackend
	now     func() time.Time
}

// NewSnapshotStore wraps a blob store. The backend name is used in save locations.
func NewSnapshotStore(store contract.CacheStore, backend schema.DatabaseBackend) *SnapshotStore {
	return &SnapshotStore{store: store, backend: backend, now: time.Now}
}

// SnapshotKey returns the entry identity of a repository on a host.
func SnapshotKey(host, repo string) string {
	return fmt.Sprintf("dump-%s_%s.json", host, strings.ReplaceAll(repo, "/", "-"))
}

// Location returns where the snapshot of a repository is kept.
func (s *SnapshotStore) Location(host, repo string) string {
	key := SnapshotKey(host, repo)
	if l, ok := s.store.(locator); ok {
		return l.Path(key)
	}
	return fmt.Sprintf("%s:%s", s.backend, key)
}

// Load returns the cached snapshot of a repository, or an empty one when none exists.
func (s *SnapshotStore) Load(host, repo string) (*schema.Snapshot, error) {
	data, _, _, err := s.store.Get(SnapshotKey(host, repo))
	if errors.Is(err, contract.ErrCacheMiss) {
		return schema.NewSnapshot(host, repo), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot of %s: %w", repo, err)
	}

	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot of %s: %w", repo, err)
	}
	snap := &env.Snapshot
	snap.Tickets = decodeTickets(repo, env.Tickets)
	if snap.Host == "" {
		snap.Host = host
	}
	if snap.Repo == "" {
		snap.Repo = repo
	}
	if IsOutdatedVersion(snap.Version) {
		contract.LogWarn("Cached data predates review comment support, consider clearing the cache",
			fmt.Errorf("snapshot version %q is older than %s", snap.Version, schema.ReviewCommentsVersion))
	}
	return snap, nil
}

// decodeTickets decodes every cached ticket on its own and drops the malformed ones.
// A dropped ticket is absent from the snapshot, so the next fetch queues it again.
func decodeTickets(repo string, raw map[int]json.RawMessage) map[int]schema.Ticket {
	tickets := make(map[int]schema.Ticket, len(raw))
	for id, msg := range raw {
		var t schema.Ticket
		if err := json.Unmarshal(msg, &t); err != nil {
			contract.Logger().Debug("Dropping malformed cached ticket",
				zap.String("repo", repo), zap.Int("ticket", id), zap.Error(err))
			continue
		}
		tickets[id] = t
	}
	return tickets
}

// Save stamps the snapshot and writes it whole, returning its location.
func (s *SnapshotStore) Save(snap *schema.Snapshot) (string, error) {
	now := s.now().UTC()
	snap.Version = schema.ToolVersion
	snap.UpdatedAt = now.Format(schema.SnapshotTimeLayout)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := s.store.Set(SnapshotKey(snap.Host, snap.Repo), data, snapshotBlobVersion, now.Unix()); err != nil {
		return "", fmt.Errorf("failed to save snapshot of %s: %w", snap.Repo, err)
	}
	return s.Location(snap.Host, snap.Repo), nil
}

// IsOutdatedVersion reports whether a snapshot version lacks review comments.
// Missing and unparseable versions count as outdated.
func IsOutdatedVersion(version string) bool {
	v, err := semver.NewVersion(version)
	if err != nil {
		return true
	}
	return v.LessThan(reviewCommentsMilestone)
}
