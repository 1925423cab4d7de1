// Package filter classifies comments as bot-authored, out of window or low-information.
package filter

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
)

// Reason is the classification result of a comment.
type Reason int

// Classification reasons. The first matching reason wins.
const (
	OK Reason = iota
	Bot
	OutOfWindow
	Spam
)

// String returns a readable name for the reason.
func (r Reason) String() string {
	switch r {
	case OK:
		return "ok"
	case Bot:
		return "bot"
	case OutOfWindow:
		return "out-of-window"
	case Spam:
		return "spam"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

// Filter holds the compiled bot and spam rules plus the active time window.
// A Filter is read-only after construction and safe for concurrent use.
type Filter struct {
	bots      []string
	spam      []*regexp.Regexp
	threshold float64
	window    contract.TimeWindow
}

// New builds a filter from the validated configuration.
func New(cfg *contract.Config) (*Filter, error) {
	return NewWithRules(cfg.BotPatterns, cfg.SpamPatterns, cfg.SpamThreshold, cfg.Window)
}

// NewWithRules builds a filter from explicit rules. Spam patterns are matched lower-cased.
func NewWithRules(bots, spamPatterns []string, threshold float64, window contract.TimeWindow) (*Filter, error) {
	f := &Filter{
		bots:      make([]string, 0, len(bots)),
		spam:      make([]*regexp.Regexp, 0, len(spamPatterns)),
		threshold: threshold,
		window:    window,
	}
	for _, b := range bots {
		if b = strings.ToLower(strings.TrimSpace(b)); b != "" {
			f.bots = append(f.bots, b)
		}
	}
	for _, p := range spamPatterns {
		re, err := regexp.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid spam pattern %q: %w", p, err)
		}
		f.spam = append(f.spam, re)
	}
	return f, nil
}

// Window returns the time window the filter enforces.
func (f *Filter) Window() contract.TimeWindow {
	return f.window
}

// IsBot reports whether the author name contains any bot fragment.
func (f *Filter) IsBot(author string) bool {
	author = strings.ToLower(author)
	for _, b := range f.bots {
		if strings.Contains(author, b) {
			return true
		}
	}
	return false
}

// SpamScore is the share of the normalized message covered by the first match of each pattern.
func (f *Filter) SpamScore(body string) float64 {
	msg := normalize(body)
	if msg == "" {
		return 0
	}
	matched := 0
	for _, re := range f.spam {
		if loc := re.FindStringIndex(msg); loc != nil {
			matched += loc[1] - loc[0]
		}
	}
	return float64(matched) / float64(len(msg))
}

// IsSpam reports whether the body scores at or above the threshold.
func (f *Filter) IsSpam(body string) bool {
	return f.SpamScore(body) >= f.threshold
}

// Classify evaluates bot, then window (only when enforced), then spam.
func (f *Filter) Classify(c schema.Comment, enforceWindow bool) Reason {
	if f.IsBot(c.Author) {
		return Bot
	}
	if enforceWindow && !f.window.ContainsTime(c.EffectiveAt()) {
		return OutOfWindow
	}
	if f.IsSpam(c.Body) {
		return Spam
	}
	return OK
}

// normalize collapses whitespace runs to one space and lower-cases the text.
func normalize(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
