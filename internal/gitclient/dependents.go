package gitclient

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// Defaults of the dependents scraper.
const (
	DefaultDependentsTimeout    = 10 * time.Second
	DefaultDependentsRetries    = 3
	DefaultDependentsRetryDelay = 9 * time.Second
	githubWebURL                = "https://github.com"
)

// DependentsScraper collects the "Used by" listing from the GitHub web pages.
// The listing has no REST endpoint, so the HTML is parsed.
type DependentsScraper struct {
	client     *http.Client
	baseURL    string
	retries    int
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
}

// NewDependentsScraper creates a scraper against github.com.
func NewDependentsScraper(timeout time.Duration) *DependentsScraper {
	if timeout <= 0 {
		timeout = DefaultDependentsTimeout
	}
	return &DependentsScraper{
		client:     &http.Client{Timeout: timeout},
		baseURL:    githubWebURL,
		retries:    DefaultDependentsRetries,
		retryDelay: DefaultDependentsRetryDelay,
		sleep:      sleepContext,
	}
}

// Fetch walks every page of the dependents listing of repo.
// Unexpected pages and request failures are retried with a fixed delay;
// retries reset after every good page. Once retries run out the pages read so far are returned.
func (s *DependentsScraper) Fetch(ctx context.Context, repo string, scope schema.DependentScope) ([]schema.Dependent, error) {
	if _, _, ok := strings.Cut(repo, "/"); !ok {
		return nil, fmt.Errorf("invalid repository %q, expected owner/name", repo)
	}
	next := fmt.Sprintf("%s/%s/network/dependents?dependent_type=%s", s.baseURL, repo, url.QueryEscape(string(scope)))

	var all []schema.Dependent
	retries := 0
	for next != "" {
		page, nextLink, err := s.fetchPage(ctx, next)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			if retries >= s.retries {
				contract.LogWarn("Max retries reached, stopping", err)
				break
			}
			retries++
			contract.Logger().Warn("Retrying dependents page",
				zap.String("url", next), zap.Int("attempt", retries), zap.Int("max", s.retries), zap.Error(err))
			if err := s.sleep(ctx, s.retryDelay); err != nil {
				return all, err
			}
			continue
		}
		all = append(all, page...)
		retries = 0
		next = s.absolute(nextLink)
	}

	contract.Logger().Info("Fetched dependents", zap.String("scope", string(scope)), zap.Int("count", len(all)))
	return all, nil
}

func (s *DependentsScraper) fetchPage(ctx context.Context, pageURL string) ([]schema.Dependent, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, "", fmt.Errorf("unexpected status %d for %s", resp.StatusCode, pageURL)
	}
	return ParseDependentsPage(resp.Body)
}

// absolute resolves a pagination href against the web base URL.
func (s *DependentsScraper) absolute(link string) string {
	if strings.HasPrefix(link, "/") {
		return s.baseURL + link
	}
	return link
}

// ParseDependentsPage extracts the dependents of one listing page and the href of the next page.
// A page without a pagination container is treated as unexpected and returns an error.
func ParseDependentsPage(r io.Reader) ([]schema.Dependent, string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse dependents page: %w", err)
	}

	var deps []schema.Dependent
	for _, row := range findAll(doc, func(n *html.Node) bool { return isElement(n, "div") && hasClass(n, "Box-row") }) {
		dep, ok := parseDependentRow(row)
		if !ok {
			contract.Logger().Debug("Skipping unparseable dependent row")
			continue
		}
		deps = append(deps, dep)
	}

	pagination := findAll(doc, func(n *html.Node) bool { return isElement(n, "div") && hasClass(n, "paginate-container") })
	if len(pagination) == 0 {
		return nil, "", fmt.Errorf("no pagination found on dependents page")
	}
	for _, a := range findAll(pagination[0], func(n *html.Node) bool { return isElement(n, "a") }) {
		if strings.EqualFold(strings.TrimSpace(textOf(a)), "next") {
			return deps, attr(a, "href"), nil
		}
	}
	return deps, "", nil
}

func parseDependentRow(row *html.Node) (schema.Dependent, bool) {
	orgs := findAll(row, func(n *html.Node) bool { return isElement(n, "a") && hasAttr(n, "data-repository-hovercards-enabled") })
	repos := findAll(row, func(n *html.Node) bool { return isElement(n, "a") && attr(n, "data-hovercard-type") == "repository" })
	counts := findAll(row, func(n *html.Node) bool { return isElement(n, "span") && hasClass(n, "pl-3") })
	if len(orgs) == 0 || len(repos) == 0 || len(counts) < 2 {
		return schema.Dependent{}, false
	}
	stars, err := parseCount(textOf(counts[0]))
	if err != nil {
		return schema.Dependent{}, false
	}
	forks, err := parseCount(textOf(counts[1]))
	if err != nil {
		return schema.Dependent{}, false
	}
	org := strings.TrimSpace(textOf(orgs[0]))
	name := strings.TrimSpace(textOf(repos[0]))
	return schema.Dependent{Repo: org + "/" + name, Stars: stars, Forks: forks}, true
}

// SortDependents orders dependents by stars descending and drops repeated repositories.
func SortDependents(deps []schema.Dependent) []schema.Dependent {
	sorted := slices.Clone(deps)
	slices.SortStableFunc(sorted, func(a, b schema.Dependent) int {
		return cmp.Compare(b.Stars, a.Stars)
	})
	seen := make(map[string]struct{}, len(sorted))
	result := sorted[:0]
	for _, d := range sorted {
		if _, ok := seen[d.Repo]; ok {
			continue
		}
		seen[d.Repo] = struct{}{}
		result = append(result, d)
	}
	return result
}

func parseCount(s string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
}

func isElement(n *html.Node, tag string) bool {
	return n.Type == html.ElementNode && n.Data == tag
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Key == key {
			return true
		}
	}
	return false
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}

// findAll returns the descendants of n matching pred in document order.
func findAll(n *html.Node, pred func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if pred(c) {
			out = append(out, c)
		}
		out = append(out, findAll(c, pred)...)
	}
	return out
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
