package agg

import (
	"sort"

	"github.com/huangsam/repostats/core/filter"
	"github.com/huangsam/repostats/schema"
)

// ExtractTimeline flattens the comments and review comments of every ticket into one
// chronological list of valid comments.
//
// Bot and spam comments are dropped first with the window ignored, then the window is
// applied to each comment's own count time. A comment therefore counts even when its
// ticket was opened before the window.
func ExtractTimeline(tickets map[int]schema.Ticket, f *filter.Filter) []schema.CommentRecord {
	window := f.Window()
	records := []schema.CommentRecord{}
	for _, id := range sortedIDs(tickets) {
		t := tickets[id]
		comments := make([]schema.Comment, 0, len(t.Comments)+len(t.ReviewComments))
		comments = append(comments, t.Comments...)
		comments = append(comments, t.ReviewComments...)

		for _, c := range comments {
			if f.Classify(c, false) != filter.OK {
				continue
			}
			countAt := c.EffectiveAt()
			if !window.ContainsTime(countAt) {
				continue
			}
			records = append(records, schema.CommentRecord{
				ParentType: t.Kind,
				ParentID:   t.ID,
				Author:     c.Author,
				CreatedAt:  c.CreatedAt,
				CountAt:    countAt,
			})
		}
	}
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].CreatedAt.Before(records[j].CreatedAt)
	})
	return records
}
