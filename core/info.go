package core

import (
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/iocache"
	"github.com/huangsam/repostats/schema"
)

// Describe counts the tickets, states and comments of a snapshot.
// Outdated counts tickets whose last detail fetch failed or never happened.
func Describe(snap *schema.Snapshot, location string) schema.RepoOverview {
	o := schema.RepoOverview{
		Host:         snap.Host,
		Repo:         snap.Repo,
		Location:     location,
		Info:         snap.Info,
		Version:      snap.Version,
		UpdatedAt:    snap.UpdatedAt,
		Tickets:      len(snap.Tickets),
		Preprocessed: snap.Preprocessed(),
	}
	for _, t := range snap.Tickets {
		if t.Kind == schema.PullRequestKind {
			o.PullRequests++
		} else {
			o.Issues++
		}
		switch t.State {
		case schema.MergedState:
			o.Merged++
		case schema.ClosedState:
			o.Closed++
		default:
			o.Open++
		}
		if t.UpdatedAt == nil || !t.HasDetail() {
			o.Outdated++
		}
		o.Comments += len(t.Comments) + len(t.ReviewComments)
	}
	return o
}

// DescribeCached describes the cached snapshot of the configured repository.
func DescribeCached(cfg *contract.Config, hostName string, mgr contract.CacheManager) (schema.RepoOverview, error) {
	store := iocache.NewSnapshotStore(mgr.GetSnapshotStore(), cfg.CacheBackend)
	snap, err := store.Load(hostName, cfg.Repo)
	if err != nil {
		return schema.RepoOverview{}, err
	}
	return Describe(snap, store.Location(hostName, cfg.Repo)), nil
}

