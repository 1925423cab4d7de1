package gitclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/go-github/v75/github"
	"github.com/huangsam/repostats/internal/contract"
	"github.com/huangsam/repostats/schema"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// perPage is the page size of every listing call, the maximum GitHub allows.
const perPage = 100

// GitHubOptions configures a GitHub host bound to one repository.
type GitHubOptions struct {
	Repo       string // owner/name
	Token      string
	APIBaseURL string // empty for api.github.com
	Timeout    time.Duration
	HTTPClient *http.Client // optional, used as the transport base
}

// GitHub implements contract.Host on top of the GitHub REST API.
type GitHub struct {
	client  *github.Client
	owner   string
	name    string
	timeout time.Duration

	mu       sync.Mutex
	lastRate RateLimitHeaders
}

var _ Host = &GitHub{} // Compile-time check

// NewGitHub creates a GitHub host for the repository named in opts.
func NewGitHub(opts GitHubOptions) (*GitHub, error) {
	owner, name, ok := strings.Cut(opts.Repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("invalid repository %q, expected owner/name", opts.Repo)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = contract.DefaultRequestTimeout
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	if opts.Token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		tc := oauth2.NewClient(ctx, ts)
		tc.Timeout = opts.Timeout
		httpClient = tc
	}

	client := github.NewClient(httpClient)
	if base := strings.TrimSpace(opts.APIBaseURL); base != "" {
		parsedURL, err := url.Parse(base)
		if err != nil {
			return nil, fmt.Errorf("parse github api base url: %w", err)
		}
		if parsedURL.Scheme == "" || parsedURL.Host == "" {
			return nil, fmt.Errorf("parse github api base url: missing scheme or host")
		}
		if !strings.HasSuffix(parsedURL.Path, "/") {
			parsedURL.Path += "/"
		}
		client.BaseURL = parsedURL
	}

	return &GitHub{client: client, owner: owner, name: name, timeout: opts.Timeout}, nil
}

// NewGitHubFromConfig creates the GitHub host of a validated configuration.
func NewGitHubFromConfig(cfg *contract.Config) (*GitHub, error) {
	return NewGitHub(GitHubOptions{
		Repo:       cfg.Repo,
		Token:      cfg.Token,
		APIBaseURL: cfg.APIBaseURL,
		Timeout:    cfg.RequestTimeout,
	})
}

// Name implements the Host interface.
func (g *GitHub) Name() string {
	return contract.DefaultHost
}

// UserURL implements the Host interface.
func (g *GitHub) UserURL(user string) string {
	return fmt.Sprintf(UserURLTemplate, user, user)
}

// LastRateLimit returns the rate-limit headers of the most recent response.
func (g *GitHub) LastRateLimit() RateLimitHeaders {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastRate
}

// FetchInfo implements the Host interface.
func (g *GitHub) FetchInfo(ctx context.Context) (schema.RepoInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	repo, resp, err := g.client.Repositories.Get(ctx, g.owner, g.name)
	if err = g.check(resp, err); err != nil {
		return schema.RepoInfo{}, fmt.Errorf("failed to fetch info of %s/%s: %w", g.owner, g.name, err)
	}
	return schema.RepoInfo{
		Name:        repo.GetName(),
		FullName:    repo.GetFullName(),
		Description: repo.GetDescription(),
		Stars:       repo.GetStargazersCount(),
		Forks:       repo.GetForksCount(),
		OpenIssues:  repo.GetOpenIssuesCount(),
	}, nil
}

// FetchOverview implements the Host interface.
// It lists every issue and pull request of the repository in any state.
func (g *GitHub) FetchOverview(ctx context.Context) ([]schema.TicketSummary, error) {
	issues, err := collectPages(ctx, g, func(ctx context.Context, page int) ([]*github.Issue, *github.Response, error) {
		return g.client.Issues.ListByRepo(ctx, g.owner, g.name, &github.IssueListByRepoOptions{
			State:       "all",
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets of %s/%s: %w", g.owner, g.name, err)
	}

	result := make([]schema.TicketSummary, 0, len(issues))
	for _, issue := range issues {
		result = append(result, summaryFromIssue(issue))
	}
	contract.Logger().Debug("Fetched ticket overview",
		zap.String("repo", g.owner+"/"+g.name), zap.Int("tickets", len(result)))
	return result, nil
}

// FetchDetail implements the Host interface.
// Issues get their comments. Pull requests also get merge status and review comments.
func (g *GitHub) FetchDetail(ctx context.Context, summary schema.TicketSummary) (schema.Ticket, error) {
	ticket := schema.TicketFromSummary(summary)
	if ticket.UpdatedAt == nil {
		created := summary.CreatedAt
		ticket.UpdatedAt = &created
	}

	comments, err := collectPages(ctx, g, func(ctx context.Context, page int) ([]*github.IssueComment, *github.Response, error) {
		return g.client.Issues.ListComments(ctx, g.owner, g.name, summary.ID, &github.IssueListCommentsOptions{
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		})
	})
	if err != nil {
		return schema.Ticket{}, fmt.Errorf("failed to list comments of #%d: %w", summary.ID, err)
	}
	ticket.Comments = make([]schema.Comment, 0, len(comments))
	for _, c := range comments {
		ticket.Comments = append(ticket.Comments, newComment(c.GetUser().GetLogin(), c.GetBody(), c.CreatedAt, c.UpdatedAt))
	}

	ticket.ReviewComments = []schema.Comment{}
	if summary.Kind != schema.PullRequestKind {
		return ticket, nil
	}

	pr, err := g.fetchPullRequest(ctx, summary.ID)
	if err != nil {
		return schema.Ticket{}, err
	}
	if pr.MergedAt != nil {
		ticket.MergedAt = timestampPtr(pr.MergedAt)
		ticket.State = schema.MergedState
	}

	reviews, err := collectPages(ctx, g, func(ctx context.Context, page int) ([]*github.PullRequestComment, *github.Response, error) {
		return g.client.PullRequests.ListComments(ctx, g.owner, g.name, summary.ID, &github.PullRequestListCommentsOptions{
			ListOptions: github.ListOptions{Page: page, PerPage: perPage},
		})
	})
	if err != nil {
		return schema.Ticket{}, fmt.Errorf("failed to list review comments of #%d: %w", summary.ID, err)
	}
	for _, c := range reviews {
		ticket.ReviewComments = append(ticket.ReviewComments, newComment(c.GetUser().GetLogin(), c.GetBody(), c.CreatedAt, c.UpdatedAt))
	}
	return ticket, nil
}

func (g *GitHub) fetchPullRequest(ctx context.Context, id int) (*github.PullRequest, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	pr, resp, err := g.client.PullRequests.Get(ctx, g.owner, g.name, id)
	if err = g.check(resp, err); err != nil {
		return nil, fmt.Errorf("failed to fetch pull request #%d: %w", id, err)
	}
	return pr, nil
}

// check records the rate-limit state of a response and maps quota errors to ErrRateLimited.
func (g *GitHub) check(resp *github.Response, err error) error {
	var headers RateLimitHeaders
	if resp != nil && resp.Response != nil {
		headers = ParseRateLimitHeaders(resp.Header, resp.StatusCode)
		g.mu.Lock()
		g.lastRate = headers
		g.mu.Unlock()
	}
	if err == nil {
		return nil
	}

	var rateErr *github.RateLimitError
	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &rateErr) || errors.As(err, &abuseErr) || headers.Exhausted() {
		return fmt.Errorf("%w: %v", contract.ErrRateLimited, err)
	}
	return err
}

// collectPages calls fetch for every page of a listing, each call with its own timeout.
func collectPages[T any](ctx context.Context, g *GitHub, fetch func(ctx context.Context, page int) ([]T, *github.Response, error)) ([]T, error) {
	var all []T
	page := 1
	for {
		items, resp, err := func() ([]T, *github.Response, error) {
			pageCtx, cancel := context.WithTimeout(ctx, g.timeout)
			defer cancel()
			return fetch(pageCtx, page)
		}()
		if err = g.check(resp, err); err != nil {
			return nil, err
		}
		all = append(all, items...)
		if resp == nil || resp.NextPage == 0 {
			return all, nil
		}
		page = resp.NextPage
	}
}

// summaryFromIssue converts a listing record. Pull requests are recognized by
// their pull request links, never by URL matching.
func summaryFromIssue(issue *github.Issue) schema.TicketSummary {
	summary := schema.TicketSummary{
		ID:           issue.GetNumber(),
		Kind:         schema.IssueKind,
		State:        schema.OpenState,
		Author:       issue.GetUser().GetLogin(),
		Title:        issue.GetTitle(),
		HTMLURL:      issue.GetHTMLURL(),
		CreatedAt:    issue.GetCreatedAt().Time,
		ClosedAt:     timestampPtr(issue.ClosedAt),
		UpdatedAt:    timestampPtr(issue.UpdatedAt),
		CommentCount: issue.GetComments(),
	}
	if issue.GetState() == "closed" {
		summary.State = schema.ClosedState
	}
	if issue.PullRequestLinks != nil {
		summary.Kind = schema.PullRequestKind
		if issue.PullRequestLinks.MergedAt != nil {
			summary.State = schema.MergedState
		}
	}
	return summary
}

func newComment(author, body string, created, updated *github.Timestamp) schema.Comment {
	c := schema.Comment{Author: author, Body: body, UpdatedAt: timestampPtr(updated)}
	if created != nil {
		c.CreatedAt = created.Time
	}
	return c
}

func timestampPtr(ts *github.Timestamp) *time.Time {
	if ts == nil || ts.IsZero() {
		return nil
	}
	t := ts.Time
	return &t
}
