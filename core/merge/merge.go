// Package merge reconciles a cached ticket map with a fresh overview listing.
package merge

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"go.uber.org/zap"
)

// Result describes the outcome of one update pass.
type Result struct {
	Queued      int  // tickets selected for a detail fetch
	Fetched     int  // detail fetches that succeeded
	Failed      int  // detail fetches that returned an error
	Skipped     int  // fetches short-circuited by the latch
	Outdated    int  // tickets still stale after the merge
	RateLimited bool // latch state at the end of the pass
}

// Merger dispatches detail fetches for stale tickets and merges the results back.
type Merger struct {
	Host    contract.Host
	Workers int
	Timeout time.Duration
	Latch   *Latch
}

// New creates a merger. A nil latch gets a fresh one.
func New(host contract.Host, workers int, timeout time.Duration, latch *Latch) *Merger {
	if workers <= 0 {
		workers = contract.DefaultWorkers
	}
	if latch == nil {
		latch = NewLatch()
	}
	return &Merger{Host: host, Workers: workers, Timeout: timeout, Latch: latch}
}

// NeedsUpdate is the staleness predicate for one overview record.
// present tells whether the ticket exists in the cache at all.
func NeedsUpdate(cached schema.Ticket, present bool, summary schema.TicketSummary) bool {
	if !present || cached.UpdatedAt == nil {
		return true
	}
	return summary.UpdatedAt != nil && summary.UpdatedAt.After(*cached.UpdatedAt)
}

// Queue returns the ids of stale tickets in ascending order.
func Queue(existing map[int]schema.Ticket, overview map[int]schema.TicketSummary) []int {
	var queue []int
	for id, summary := range overview {
		cached, ok := existing[id]
		if NeedsUpdate(cached, ok, summary) {
			queue = append(queue, id)
		}
	}
	slices.Sort(queue)
	return queue
}

// OverviewMap keys an overview listing by ticket id. Later duplicates win.
func OverviewMap(list []schema.TicketSummary) map[int]schema.TicketSummary {
	out := make(map[int]schema.TicketSummary, len(list))
	for _, s := range list {
		out[s.ID] = s
	}
	return out
}

// fetchResult is the outcome of one detail fetch.
type fetchResult struct {
	id      int
	ticket  schema.Ticket
	err     error
	skipped bool
}

// Update fetches detail for every stale ticket and returns the merged map.
// The input map is never modified. Failed tickets keep their best known version
// with UpdatedAt cleared so the next pass retries them.
func (m *Merger) Update(ctx context.Context, existing map[int]schema.Ticket, overview map[int]schema.TicketSummary) (map[int]schema.Ticket, Result) {
	queue := Queue(existing, overview)
	result := Result{Queued: len(queue)}
	if len(queue) == 0 {
		contract.Logger().Info("All tickets up to date", zap.Int("tickets", len(existing)))
		result.RateLimited = m.Latch.Tripped()
		return existing, result
	}
	contract.Logger().Info("Fetching ticket details",
		zap.Int("queued", len(queue)),
		zap.Int("workers", m.Workers))

	merged := maps.Clone(existing)
	if merged == nil {
		merged = make(map[int]schema.Ticket, len(queue))
	}

	for r := range m.fetchAll(ctx, queue, overview) {
		if r.err == nil {
			merged[r.id] = r.ticket
			result.Fetched++
			continue
		}
		if r.skipped {
			result.Skipped++
		} else {
			result.Failed++
			contract.Logger().Debug("Detail fetch failed", zap.Int("ticket", r.id), zap.Error(r.err))
		}
		fallback, ok := existing[r.id]
		if !ok {
			fallback = schema.TicketFromSummary(overview[r.id])
		}
		fallback.UpdatedAt = nil
		merged[r.id] = fallback
	}

	result.Outdated = len(Queue(merged, overview))
	result.RateLimited = m.Latch.Tripped()
	contract.Logger().Info("Ticket update finished",
		zap.Int("fetched", result.Fetched),
		zap.Int("failed", result.Failed),
		zap.Int("skipped", result.Skipped),
		zap.Int("outdated", result.Outdated))
	return merged, result
}

// fetchAll runs the bounded worker pool and streams results as they complete.
func (m *Merger) fetchAll(ctx context.Context, queue []int, overview map[int]schema.TicketSummary) <-chan fetchResult {
	jobs := make(chan int, len(queue))
	results := make(chan fetchResult, len(queue))
	var wg sync.WaitGroup

	for range min(m.Workers, len(queue)) {
		wg.Go(func() {
			for id := range jobs {
				results <- m.fetchOne(ctx, overview[id])
			}
		})
	}

	for _, id := range queue {
		jobs <- id
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()
	return results
}

// fetchOne performs a single detail fetch unless the latch is tripped.
// Only a rate-limited response trips the latch, other failures stay per ticket.
func (m *Merger) fetchOne(ctx context.Context, summary schema.TicketSummary) fetchResult {
	if m.Latch.Tripped() {
		return fetchResult{id: summary.ID, err: contract.ErrRateLimited, skipped: true}
	}
	if err := ctx.Err(); err != nil {
		return fetchResult{id: summary.ID, err: err, skipped: true}
	}

	fetchCtx := ctx
	if m.Timeout > 0 {
		var cancel context.CancelFunc
		fetchCtx, cancel = context.WithTimeout(ctx, m.Timeout)
		defer cancel()
	}

	ticket, err := m.Host.FetchDetail(fetchCtx, summary)
	if err != nil {
		if errors.Is(err, contract.ErrRateLimited) && m.Latch.Trip() {
			contract.LogWarn("Request budget probably exhausted, use an auth token or try again later",
				fmt.Errorf("ticket #%d: %w", summary.ID, err))
		}
		return fetchResult{id: summary.ID, err: err}
	}
	ticket.ID = summary.ID
	return fetchResult{id: summary.ID, ticket: ticket}
}
