package gitclient

import (
	"net/http"
	"strconv"
	"time"
)

// RateLimitHeaders contains parsed GitHub rate-limit response headers.
type RateLimitHeaders struct {
	Present          bool
	Remaining        int
	Limit            int
	ResetUnix        int64
	Used             int
	RetryAfter       time.Duration
	SecondaryLimited bool
}

// ParseRateLimitHeaders parses rate-limit and retry headers.
func ParseRateLimitHeaders(header http.Header, statusCode int) RateLimitHeaders {
	parsed := RateLimitHeaders{}
	parsed.Present = header.Get("X-RateLimit-Remaining") != ""
	parsed.Remaining = parseInt(header.Get("X-RateLimit-Remaining"))
	parsed.Limit = parseInt(header.Get("X-RateLimit-Limit"))
	parsed.Used = parseInt(header.Get("X-RateLimit-Used"))
	parsed.ResetUnix = parseInt64(header.Get("X-RateLimit-Reset"))

	retryAfterSeconds := parseInt(header.Get("Retry-After"))
	if retryAfterSeconds > 0 {
		parsed.RetryAfter = time.Duration(retryAfterSeconds) * time.Second
	}

	if statusCode == http.StatusTooManyRequests {
		parsed.SecondaryLimited = true
	}
	if statusCode == http.StatusForbidden && parsed.RetryAfter > 0 {
		parsed.SecondaryLimited = true
	}

	return parsed
}

// Exhausted reports whether the response says no requests are left in the window.
func (h RateLimitHeaders) Exhausted() bool {
	return h.SecondaryLimited || (h.Present && h.Remaining == 0)
}

// ResetAt returns when the primary window resets, or the zero time if unknown.
func (h RateLimitHeaders) ResetAt() time.Time {
	if h.ResetUnix == 0 {
		return time.Time{}
	}
	return time.Unix(h.ResetUnix, 0)
}

func parseInt(raw string) int {
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

func parseInt64(raw string) int64 {
	parsed, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return parsed
}
