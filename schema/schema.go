// Package schema has configs, models and constants for all parts of repostats.
package schema

import "time"

// SnapshotTimeLayout is the layout of the snapshot updated_at stamp.
const SnapshotTimeLayout = "2006-01-02T15:04:05Z"

// ToolVersion is stamped into every saved snapshot.
const ToolVersion = "0.2.0"

// ReviewCommentsVersion is the first snapshot version that carries review comments.
const ReviewCommentsVersion = "0.1.4"

// Comment is a single discussion or review comment on a ticket.
type Comment struct {
	Author    string     `json:"author"`
	Body      string     `json:"body"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// EffectiveAt returns the update time of the comment, falling back to its creation time.
func (c Comment) EffectiveAt() time.Time {
	if c.UpdatedAt != nil {
		return *c.UpdatedAt
	}
	return c.CreatedAt
}

// TicketSummary is the lightweight overview record of an issue or pull request
// as returned by a listing call. It is only used to detect staleness.
type TicketSummary struct {
	ID           int         `json:"number"`
	Kind         TicketKind  `json:"kind"`
	State        TicketState `json:"state"`
	Author       string      `json:"author"`
	Title        string      `json:"title"`
	HTMLURL      string      `json:"html_url"`
	CreatedAt    time.Time   `json:"created_at"`
	ClosedAt     *time.Time  `json:"closed_at,omitempty"`
	UpdatedAt    *time.Time  `json:"updated_at"`
	CommentCount int         `json:"comment_count"`
}

// Ticket is one issue or pull request with its full discussion.
//
// A nil UpdatedAt marks a ticket whose detail fetch failed or is pending.
// Nil Comments or ReviewComments mark a ticket whose detail was never fetched.
type Ticket struct {
	ID             int         `json:"number"`
	Kind           TicketKind  `json:"kind"`
	State          TicketState `json:"state"`
	Author         string      `json:"author"`
	Title          string      `json:"title"`
	HTMLURL        string      `json:"html_url"`
	CreatedAt      time.Time   `json:"created_at"`
	ClosedAt       *time.Time  `json:"closed_at,omitempty"`
	MergedAt       *time.Time  `json:"merged_at,omitempty"`
	UpdatedAt      *time.Time  `json:"updated_at"`
	Comments       []Comment   `json:"comments"`
	ReviewComments []Comment   `json:"review_comments"`
}

// TicketFromSummary builds a bare ticket from an overview record.
// The result carries no comment lists and is therefore excluded from projections.
func TicketFromSummary(s TicketSummary) Ticket {
	return Ticket{
		ID:        s.ID,
		Kind:      s.Kind,
		State:     s.State,
		Author:    s.Author,
		Title:     s.Title,
		HTMLURL:   s.HTMLURL,
		CreatedAt: s.CreatedAt,
		ClosedAt:  s.ClosedAt,
		UpdatedAt: s.UpdatedAt,
	}
}

// HasDetail reports whether both comment lists were fetched.
func (t Ticket) HasDetail() bool {
	return t.Comments != nil && t.ReviewComments != nil
}

// RepoInfo holds general repository information.
type RepoInfo struct {
	Name        string `json:"name"`
	FullName    string `json:"full_name"`
	Description string `json:"description"`
	Stars       int    `json:"stargazers_count"`
	Forks       int    `json:"forks_count"`
	OpenIssues  int    `json:"open_issues_count"`
}

// SimplifiedTicket is the flat projection of a ticket used for aggregation.
type SimplifiedTicket struct {
	ID         int         `json:"number"`
	Type       TicketKind  `json:"type"`
	State      TicketState `json:"state"`
	Author     string      `json:"author"`
	CreatedAt  time.Time   `json:"created_at"`
	ClosedAt   *time.Time  `json:"closed_at"`
	Commenters []string    `json:"commenters"`
	CountAt    *time.Time  `json:"count_at"`
}

// CommentRecord is one valid comment placed on the repository timeline.
type CommentRecord struct {
	ParentType TicketKind `json:"parent_type"`
	ParentID   int        `json:"parent_idx"`
	Author     string     `json:"author"`
	CreatedAt  time.Time  `json:"created_at"`
	CountAt    time.Time  `json:"count_at"`
}

// Snapshot is the persisted unit per (host, repository).
// Simple and Timeline are nil until the snapshot has been preprocessed.
type Snapshot struct {
	Info      *RepoInfo          `json:"raw_info,omitempty"`
	Tickets   map[int]Ticket     `json:"raw_tickets"`
	Simple    []SimplifiedTicket `json:"simple_tickets"`
	Timeline  []CommentRecord    `json:"comments_timeline"`
	Version   string             `json:"version,omitempty"`
	UpdatedAt string             `json:"updated_at,omitempty"`
	Host      string             `json:"host-name"`
	Repo      string             `json:"repo-name"`
}

// NewSnapshot returns an empty snapshot for the given host and repository.
func NewSnapshot(host, repo string) *Snapshot {
	return &Snapshot{
		Tickets: make(map[int]Ticket),
		Host:    host,
		Repo:    repo,
	}
}

// Preprocessed reports whether the derived projections have been computed.
func (s *Snapshot) Preprocessed() bool {
	return s.Simple != nil && s.Timeline != nil
}
