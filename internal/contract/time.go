package contract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// dateLayouts are the absolute formats accepted for dates, most specific first.
// Layouts without a zone are interpreted as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-01",
	"2006",
}

// Define the regular expression to capture "N [units] ago"
// e.g., "2 years ago", "3 months ago", "1 week ago".
var relativeTimeRe = regexp.MustCompile(`^(\d+)\s+(year|month|week|day|hour|minute)s?\s+ago$`)

// ParseRelativeTime converts strings like "2 years ago" into a time.Time in the past.
func ParseRelativeTime(s string, now time.Time) (time.Time, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	matches := relativeTimeRe.FindStringSubmatch(s)

	if len(matches) == 0 {
		return time.Time{}, fmt.Errorf("invalid relative time format: %s", s)
	}

	value, _ := strconv.Atoi(matches[1])
	unit := matches[2]

	switch unit {
	case "year":
		return now.AddDate(-value, 0, 0), nil
	case "month":
		return now.AddDate(0, -value, 0), nil
	case "week":
		return now.Add(time.Duration(-value) * 7 * 24 * time.Hour), nil
	case "day":
		return now.Add(time.Duration(-value) * 24 * time.Hour), nil
	case "hour":
		return now.Add(time.Duration(-value) * time.Hour), nil
	case "minute":
		return now.Add(time.Duration(-value) * time.Minute), nil
	default:
		return time.Time{}, fmt.Errorf("unsupported time unit: %s", unit)
	}
}

// ParseDate parses an absolute or relative date. An empty string yields nil without error.
// The result is always expressed in UTC.
func ParseDate(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	t, err := ParseRelativeTime(s, now)
	if err != nil {
		return nil, fmt.Errorf("unrecognised date format %q, expected ISO8601 (or a prefix like 2020-08) or 'N [units] ago'", s)
	}
	t = t.UTC()
	return &t, nil
}

// ConvertDate parses a date and degrades an unparseable input to nil with a warning.
func ConvertDate(s string) *time.Time {
	t, err := ParseDate(s, time.Now())
	if err != nil {
		LogWarn("Ignoring invalid date", err)
		return nil
	}
	return t
}

// TimeWindow is an optional [From, To] period. Both bounds are inclusive and may be open.
type TimeWindow struct {
	From *time.Time
	To   *time.Time
}

// NewTimeWindow builds a window from two date strings. Unparseable bounds are dropped with a warning.
func NewTimeWindow(from, to string) TimeWindow {
	return TimeWindow{From: ConvertDate(from), To: ConvertDate(to)}
}

// IsOpen reports whether the window has no bound at all.
func (w TimeWindow) IsOpen() bool {
	return w.From == nil && w.To == nil
}

// Contains reports whether t lies in the window.
// A missing timestamp is inside an open window and outside any bounded one.
func (w TimeWindow) Contains(t *time.Time) bool {
	if w.IsOpen() {
		return true
	}
	if t == nil {
		return false
	}
	return w.ContainsTime(*t)
}

// ContainsTime reports whether the non-optional time t lies in the window.
func (w TimeWindow) ContainsTime(t time.Time) bool {
	if w.From != nil && t.Before(*w.From) {
		return false
	}
	if w.To != nil && t.After(*w.To) {
		return false
	}
	return true
}

// String renders the window for headers and logs.
func (w TimeWindow) String() string {
	format := func(t *time.Time, open string) string {
		if t == nil {
			return open
		}
		return t.Format(DateTimeFormat)
	}
	return fmt.Sprintf("%s → %s", format(w.From, "beginning"), format(w.To, "now"))
}
