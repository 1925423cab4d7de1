package agg

import (
	"fmt"
	"slices"
	"time"

	"github.com/huangsam/repostats/schema"
)

// BucketKey truncates t to the bucket of the given frequency.
// Weeks follow ISO 8601 numbering, so early January days can belong to the previous year.
func BucketKey(t time.Time, freq schema.Frequency) string {
	t = t.UTC()
	switch freq {
	case schema.DailyFreq:
		return t.Format("2006-01-02")
	case schema.WeeklyFreq:
		year, week := t.ISOWeek()
		return fmt.Sprintf("%04d-W%02d", year, week)
	case schema.YearlyFreq:
		return t.Format("2006")
	default:
		return t.Format("2006-01")
	}
}

// timelineKey identifies one user's activity on one ticket within one bucket.
type timelineKey struct {
	author     string
	bucket     string
	parentType schema.TicketKind
	parentID   int
}

// CommentTimeline pivots comment records into a bucket by user matrix.
// Several comments of one user on one ticket in the same bucket count once.
func CommentTimeline(records []schema.CommentRecord, freq schema.Frequency, typeFilter schema.TypeFilter) schema.TimelineMatrix {
	kind := typeFilter.Kind()
	seen := make(map[timelineKey]struct{})
	cells := make(map[string]map[string]int)
	users := make(map[string]struct{})

	for _, r := range records {
		if kind != "" && r.ParentType != kind {
			continue
		}
		key := timelineKey{
			author:     r.Author,
			bucket:     BucketKey(r.CreatedAt, freq),
			parentType: r.ParentType,
			parentID:   r.ParentID,
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if cells[key.bucket] == nil {
			cells[key.bucket] = make(map[string]int)
		}
		cells[key.bucket][key.author]++
		users[key.author] = struct{}{}
	}

	m := schema.TimelineMatrix{
		Freq:    freq,
		Type:    schema.TypeFilter(typeFilter.Label()),
		Buckets: sortedKeys(cells),
		Users:   sortedKeys(users),
	}
	m.Counts = make([][]int, len(m.Buckets))
	for i, b := range m.Buckets {
		row := make([]int, len(m.Users))
		for j, u := range m.Users {
			row[j] = cells[b][u]
		}
		m.Counts[i] = row
	}
	return m
}

// sortedKeys returns the keys of a string-keyed map in ascending order.
func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
