package core

import (
	"context"
	"fmt"

	"github.com/huangsam/repostats/core/agg"
	"github.com/huangsam/repostats/core/filter"
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/internal/iocache"
	"github.com/huangsam/repostats/internal/outwriter"
	"github.com/huangsam/repostats/schema"
	"go.uber.org/zap"
)

// noDataMessage is logged when there is nothing to aggregate.
const noDataMessage = "No data to process/show."

// TimelineReport pairs the full comment matrix with the matrix shown to the user.
type TimelineReport struct {
	Full  schema.TimelineMatrix
	Shown schema.TimelineMatrix
}

// Analyze loads the cached snapshot without touching the network, preprocesses it
// over the configured window and renders the requested reports.
func Analyze(_ context.Context, cfg *contract.Config, host contract.Host, mgr contract.CacheManager, ow *outwriter.OutWriter) error {
	snap, err := LoadPreprocessed(cfg, host.Name(), mgr)
	if err != nil {
		return err
	}
	if len(snap.Tickets) == 0 {
		contract.LogWarn(noDataMessage, fmt.Errorf("no cached tickets for %s, run fetch first", cfg.Repo))
		return nil
	}
	return Render(snap, cfg, host, ow)
}

// Render writes the users summary and every requested comment timeline of a preprocessed snapshot.
func Render(snap *schema.Snapshot, cfg *contract.Config, host contract.Host, ow *outwriter.OutWriter) error {
	full, shown, err := UsersSummaryReport(snap, cfg)
	if err != nil {
		return err
	}
	if len(full.Rows) == 0 {
		contract.LogWarn(noDataMessage, fmt.Errorf("no users in window %s", cfg.Window))
	} else {
		path, err := ow.WriteUsersSummary(full, shown, cfg, host.UserURL)
		if err != nil {
			return err
		}
		contract.Logger().Debug("Wrote users summary", zap.String("path", path), zap.Int("users", len(full.Rows)))
	}

	timelines, err := CommentTimelineReports(snap, cfg)
	if err != nil {
		return err
	}
	for _, tl := range timelines {
		if len(tl.Full.Users) == 0 {
			contract.LogWarn(noDataMessage, fmt.Errorf("no comments for freq %s and type %s", tl.Full.Freq, tl.Full.Type))
			continue
		}
		path, err := ow.WriteCommentTimeline(tl.Full, tl.Shown, cfg)
		if err != nil {
			return err
		}
		contract.Logger().Debug("Wrote comment timeline", zap.String("path", path), zap.Int("buckets", len(tl.Full.Buckets)))
	}
	return nil
}

// UsersSummaryReport returns the full users summary restricted to the configured columns
// and the part of it reaching the minimum contribution on the sort column.
func UsersSummaryReport(snap *schema.Snapshot, cfg *contract.Config) (schema.SummaryTable, schema.SummaryTable, error) {
	if !snap.Preprocessed() {
		return schema.SummaryTable{}, schema.SummaryTable{}, contract.ErrNotPreprocessed
	}
	rows := agg.UsersSummary(snap.Simple, cfg.Window)
	full := agg.SummaryTableFor(rows, cfg.SummaryColumns)
	return full, agg.FilterSummary(full, cfg.MinContribution), nil
}

// CommentTimelineReports builds one matrix per configured frequency and type filter.
// The shown matrix keeps users whose total reaches the minimum contribution.
func CommentTimelineReports(snap *schema.Snapshot, cfg *contract.Config) ([]TimelineReport, error) {
	if !snap.Preprocessed() {
		return nil, contract.ErrNotPreprocessed
	}
	types := cfg.TypeFilters
	if len(types) == 0 {
		types = []schema.TypeFilter{schema.AllTypes}
	}
	reports := make([]TimelineReport, 0, len(cfg.Frequencies)*len(types))
	for _, freq := range cfg.Frequencies {
		for _, tf := range types {
			m := agg.CommentTimeline(snap.Timeline, freq, tf)
			reports = append(reports, TimelineReport{Full: m, Shown: m.SelectUsers(cfg.MinContribution)})
		}
	}
	return reports, nil
}

// LoadSnapshot reads the cached snapshot of the configured repository.
func LoadSnapshot(cfg *contract.Config, hostName string, mgr contract.CacheManager) (*schema.Snapshot, error) {
	return iocache.NewSnapshotStore(mgr.GetSnapshotStore(), cfg.CacheBackend).Load(hostName, cfg.Repo)
}

// LoadPreprocessed loads the cached snapshot and computes its projections over the configured window.
func LoadPreprocessed(cfg *contract.Config, hostName string, mgr contract.CacheManager) (*schema.Snapshot, error) {
	snap, err := LoadSnapshot(cfg, hostName, mgr)
	if err != nil {
		return nil, err
	}
	f, err := filter.New(cfg)
	if err != nil {
		return nil, err
	}
	Preprocess(snap, f)
	return snap, nil
}
