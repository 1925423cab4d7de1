// Package agg projects raw tickets into flat records and aggregates contribution statistics.
package agg

import (
	"slices"
	"time"

	"github.com/huangsam/repostats/core/filter"
	"github.com/huangsam/repostats/schema"
)

// Simplify projects every well-formed ticket into a SimplifiedTicket.
// Tickets missing either comment list are skipped. The result is ordered by ticket id
// and is never nil, so an empty repository still counts as preprocessed.
func Simplify(tickets map[int]schema.Ticket, f *filter.Filter) []schema.SimplifiedTicket {
	items := make([]schema.SimplifiedTicket, 0, len(tickets))
	for _, id := range sortedIDs(tickets) {
		t := tickets[id]
		if !t.HasDetail() {
			continue
		}
		items = append(items, schema.SimplifiedTicket{
			ID:         t.ID,
			Type:       t.Kind,
			State:      t.State,
			Author:     t.Author,
			CreatedAt:  t.CreatedAt,
			ClosedAt:   t.ClosedAt,
			Commenters: commenters(t, f),
			CountAt:    CountAt(t),
		})
	}
	return items
}

// CountAt is the time a ticket is counted at. Pull requests and closed issues
// count at their close time, open issues at their last update (falling back to
// their creation).
func CountAt(t schema.Ticket) *time.Time {
	if t.Kind == schema.PullRequestKind {
		return t.ClosedAt
	}
	if t.State != schema.OpenState && t.ClosedAt != nil {
		return t.ClosedAt
	}
	if t.UpdatedAt != nil {
		return t.UpdatedAt
	}
	created := t.CreatedAt
	return &created
}

// commenters returns the sorted unique authors of valid in-window comments.
func commenters(t schema.Ticket, f *filter.Filter) []string {
	seen := make(map[string]struct{})
	users := []string{}
	for _, list := range [][]schema.Comment{t.Comments, t.ReviewComments} {
		for _, c := range list {
			if f.Classify(c, true) != filter.OK {
				continue
			}
			if _, ok := seen[c.Author]; ok {
				continue
			}
			seen[c.Author] = struct{}{}
			users = append(users, c.Author)
		}
	}
	slices.Sort(users)
	return users
}

// sortedIDs returns the ticket ids in ascending order.
func sortedIDs(tickets map[int]schema.Ticket) []int {
	ids := make([]int, 0, len(tickets))
	for id := range tickets {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
