package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the backend used for snapshot caching.
	DatabaseBackend string

	// TicketKind distinguishes issues from pull requests.
	TicketKind string

	// TicketState is the normalized lifecycle state of a ticket.
	TicketState string

	// Frequency is the granularity of a timeline bucket.
	Frequency string

	// TypeFilter restricts timeline aggregation to one ticket kind.
	TypeFilter string

	// SummaryColumn names one metric column of the users summary.
	SummaryColumn string
)

// All output modes supported.
const (
	CSVOut     OutputMode = "csv"
	TextOut    OutputMode = "text" // default
	JSONOut    OutputMode = "json"
	ParquetOut OutputMode = "parquet"
)

// All cache backends supported.
const (
	JSONBackend       DatabaseBackend = "json" // default
	SQLiteBackend     DatabaseBackend = "sqlite"
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	RedisBackend      DatabaseBackend = "redis"
	NoneBackend       DatabaseBackend = "none"
)

// Ticket kinds. The values double as labels in summary column names.
const (
	IssueKind       TicketKind = "issue"
	PullRequestKind TicketKind = "PR"
)

// Ticket states. Merged is derived from the presence of a merge timestamp.
const (
	OpenState   TicketState = "open"
	ClosedState TicketState = "closed"
	MergedState TicketState = "merged"
)

// Timeline frequencies.
const (
	DailyFreq   Frequency = "D"
	WeeklyFreq  Frequency = "W"
	MonthlyFreq Frequency = "M"
	YearlyFreq  Frequency = "Y"
)

// Timeline type filters.
const (
	AllTypes   TypeFilter = "all"
	IssueTypes TypeFilter = "issue"
	PRTypes    TypeFilter = "pr"
)

// Users summary columns.
const (
	OpenedPRsColumn       SummaryColumn = "opened PRs"
	MergedPRsColumn       SummaryColumn = "merged PRs"
	CommentedPRsColumn    SummaryColumn = "commented PRs"
	OpenedIssuesColumn    SummaryColumn = "opened issues"
	MergedIssuesColumn    SummaryColumn = "merged issues"
	CommentedIssuesColumn SummaryColumn = "commented issues"
	AllOpenedColumn       SummaryColumn = "all opened"
)

// AllKinds lists ticket kinds in reporting order.
var AllKinds = []TicketKind{PullRequestKind, IssueKind}

// AllSummaryColumns lists every users summary column in display order.
var AllSummaryColumns = []SummaryColumn{
	OpenedPRsColumn,
	MergedPRsColumn,
	CommentedPRsColumn,
	OpenedIssuesColumn,
	MergedIssuesColumn,
	CommentedIssuesColumn,
	AllOpenedColumn,
}

// AllFrequencies lists the timeline frequencies in ascending granularity.
var AllFrequencies = []Frequency{DailyFreq, WeeklyFreq, MonthlyFreq, YearlyFreq}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:     {},
	TextOut:    {},
	JSONOut:    {},
	ParquetOut: {},
}

// ValidCacheBackends lists all valid snapshot cache backends.
var ValidCacheBackends = map[DatabaseBackend]struct{}{
	JSONBackend:       {},
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	RedisBackend:      {},
	NoneBackend:       {},
}

// ValidRunBackends lists the backends able to hold fetch run history.
var ValidRunBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidFrequencies lists all valid timeline frequencies.
var ValidFrequencies = map[Frequency]struct{}{
	DailyFreq:   {},
	WeeklyFreq:  {},
	MonthlyFreq: {},
	YearlyFreq:  {},
}

// ValidTypeFilters lists all valid timeline type filters.
var ValidTypeFilters = map[TypeFilter]struct{}{
	AllTypes:   {},
	IssueTypes: {},
	PRTypes:    {},
}

// Kind returns the ticket kind selected by the filter, or an empty kind for all.
func (f TypeFilter) Kind() TicketKind {
	switch f {
	case IssueTypes:
		return IssueKind
	case PRTypes:
		return PullRequestKind
	default:
		return ""
	}
}

// Label is the value used in generated file names.
func (f TypeFilter) Label() string {
	if f == "" {
		return string(AllTypes)
	}
	return string(f)
}
