package schema

// RepoOverview describes the cached state of one repository.
type RepoOverview struct {
	Host         string    `json:"host"`
	Repo         string    `json:"repo"`
	Location     string    `json:"location"`
	Info         *RepoInfo `json:"info,omitempty"`
	Version      string    `json:"version"`
	UpdatedAt    string    `json:"updated_at"`
	Tickets      int       `json:"tickets"`
	Issues       int       `json:"issues"`
	PullRequests int       `json:"pull_requests"`
	Open         int       `json:"open"`
	Closed       int       `json:"closed"`
	Merged       int       `json:"merged"`
	Outdated     int       `json:"outdated"`
	Comments     int       `json:"comments"`
	Preprocessed bool      `json:"preprocessed"`
}
