package contract

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/repostats/schema"
	"go.uber.org/zap/zapcore"
)

// Default values for configuration.
const (
	DefaultHost            = "github"
	DefaultWorkers         = 7
	MaxWorkers             = 64
	DefaultRequestTimeout  = 15 * time.Second
	DefaultMinContribution = 3
	DefaultSpamThreshold   = 0.2
	DefaultRunHistoryLimit = 20
)

// TokenEnvFallback is the environment variable consulted when no token is configured.
const TokenEnvFallback = "GH_API_TOKEN"

// DateTimeFormat is the default date time representation.
var DateTimeFormat = time.RFC3339

// DefaultBotPatterns are author name fragments identifying bot accounts.
var DefaultBotPatterns = []string{"codecov", "pep8speaks", "stale", "[bot]"}

// DefaultSpamPatterns are low-information phrases scored by the spam filter.
var DefaultSpamPatterns = []string{
	"done",
	"LGTM",
	"looks good to me",
	`(Awesome|great|good|nice|well)\s+(work|job|done|neat)`,
	"Thank you",
	"Thanks",
}

// repoSlugRe matches an "owner/name" repository reference.
var repoSlugRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

// Config holds the runtime configuration for fetching and analysis.
// This struct remains the "final, validated" config.
type Config struct {
	Repo       string
	Host       string
	Token      string // Please use env var as this is plaintext
	APIBaseURL string
	Offline    bool

	Workers        int
	RequestTimeout time.Duration

	Window          TimeWindow
	MinContribution int
	SummaryColumns  []schema.SummaryColumn
	Frequencies     []schema.Frequency
	TypeFilters     []schema.TypeFilter

	BotPatterns   []string
	SpamPatterns  []string
	SpamThreshold float64

	Output     schema.OutputMode
	OutputDir  string
	OutputFile string
	Width      int // Terminal width override (0 = auto-detect)
	UseColors  bool
	LogLevel   zapcore.Level

	MetricsFile string

	CacheBackend   schema.DatabaseBackend
	CacheDir       string
	CacheDBConnect string // Please use env var as this is plaintext

	RunsBackend   schema.DatabaseBackend
	RunsDBConnect string // Please use env var as this is plaintext
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// This is set manually from positional args, so no tag
	RepoArg string

	// --- Fields from rootCmd.PersistentFlags() ---
	Repo           string `mapstructure:"repo"`
	Host           string `mapstructure:"host"`
	Token          string `mapstructure:"token"`
	APIBaseURL     string `mapstructure:"api-base-url"`
	Workers        int    `mapstructure:"workers"`
	RequestTimeout string `mapstructure:"request-timeout"`
	Output         string `mapstructure:"output"`
	OutputDir      string `mapstructure:"output-dir"`
	OutputFile     string `mapstructure:"output-file"`
	Width          int    `mapstructure:"width"`
	Color          string `mapstructure:"color"`
	LogLevel       string `mapstructure:"log-level"`
	CacheBackend   string `mapstructure:"cache-backend"`
	CacheDir       string `mapstructure:"cache-dir"`
	CacheDBConnect string `mapstructure:"cache-db-connect"`
	RunsBackend    string `mapstructure:"runs-backend"`
	RunsDBConnect  string `mapstructure:"runs-db-connect"`

	// --- Fields from fetchCmd.Flags() ---
	Offline     bool   `mapstructure:"offline"`
	MetricsFile string `mapstructure:"metrics-file"`

	// --- Fields from analyzeCmd.Flags() ---
	Start           string   `mapstructure:"start"`
	End             string   `mapstructure:"end"`
	MinContribution int      `mapstructure:"min-contribution"`
	UsersSummary    []string `mapstructure:"users-summary"`
	UserComments    []string `mapstructure:"user-comments"`

	// --- Filter tuning, usually from the config file ---
	BotPatterns   []string `mapstructure:"bot-patterns"`
	SpamPatterns  []string `mapstructure:"spam-patterns"`
	SpamThreshold *float64 `mapstructure:"spam-threshold"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	clone.SummaryColumns = slices.Clone(c.SummaryColumns)
	clone.Frequencies = slices.Clone(c.Frequencies)
	clone.TypeFilters = slices.Clone(c.TypeFilters)
	clone.BotPatterns = slices.Clone(c.BotPatterns)
	clone.SpamPatterns = slices.Clone(c.SpamPatterns)
	return &clone
}

// RepoFileName returns the repository name with slashes replaced, as used in file names.
func (c *Config) RepoFileName() string {
	return strings.ReplaceAll(c.Repo, "/", "-")
}

// ProcessAndValidate performs all complex parsing and validation on the raw inputs
// and updates the final Config struct.
func ProcessAndValidate(ctx context.Context, cfg *Config, detector RepoDetector, input *ConfigRawInput) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input); err != nil {
		return err
	}
	if err := processReportSelection(cfg, input); err != nil {
		return err
	}
	if err := processFilterTuning(cfg, input); err != nil {
		return err
	}
	if err := resolveRepository(ctx, cfg, detector, input); err != nil {
		return err
	}
	return nil
}

// RevalidateRepo replaces the repository of an already validated config.
func RevalidateRepo(cfg *Config, repo string) error {
	return resolveRepository(context.Background(), cfg, nil, &ConfigRawInput{RepoArg: repo})
}

// RevalidateWindow replaces the time window of an already validated config.
func RevalidateWindow(cfg *Config, start, end string) error {
	return processTimeRange(cfg, &ConfigRawInput{Start: start, End: end})
}

// RevalidateReportSelection replaces the summary columns and timeline selection of an
// already validated config.
func RevalidateReportSelection(cfg *Config, columns, comments []string) error {
	return processReportSelection(cfg, &ConfigRawInput{UsersSummary: columns, UserComments: comments})
}

// ValidateDatabaseConnectionString validates the format of connection strings
// for the database backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.JSONBackend, schema.SQLiteBackend, schema.NoneBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	case schema.RedisBackend:
		if connStr == "" {
			return fmt.Errorf("a connection string is required when using %s backend", backend)
		}
		if !strings.HasPrefix(connStr, "redis://") && !strings.HasPrefix(connStr, "rediss://") {
			return fmt.Errorf("Redis connection string must be a redis:// or rediss:// URL")
		}
	}
	return nil
}

// validateBackendConfigs validates snapshot cache and run history backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = schema.JSONBackend
	}
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be json, sqlite, mysql, postgresql, redis, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}
	cfg.CacheDir = input.CacheDir
	if cfg.CacheDir == "" {
		cfg.CacheDir = "."
	}
	cfg.CacheDir = expandHome(cfg.CacheDir)

	// --- Run History Backend Validation ---
	cfg.RunsBackend = schema.DatabaseBackend(strings.ToLower(input.RunsBackend))
	if cfg.RunsBackend == "" {
		return nil
	}
	if _, ok := schema.ValidRunBackends[cfg.RunsBackend]; !ok {
		return fmt.Errorf("invalid runs backend '%s'. must be sqlite, mysql, postgresql, none", input.RunsBackend)
	}
	cfg.RunsDBConnect = input.RunsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.RunsBackend, cfg.RunsDBConnect); err != nil {
		return err
	}

	// The snapshot table and the run tables must not share a SQLite file
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.RunsBackend == schema.SQLiteBackend {
		cachePath := cfg.CacheDBConnect
		if cachePath == "" {
			cachePath = GetCacheDBFilePath()
		}
		runsPath := cfg.RunsDBConnect
		if runsPath == "" {
			runsPath = GetRunsDBFilePath()
		}
		if cachePath == runsPath {
			return fmt.Errorf("cache and run history must use different SQLite database files. Both resolve to %q", cachePath)
		}
	}

	return nil
}

// validateSimpleInputs processes and validates all scalar fields.
func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	// --- 0. Transfer simple non-validated fields from input -> cfg ---
	cfg.Offline = input.Offline
	cfg.APIBaseURL = strings.TrimSpace(input.APIBaseURL)
	cfg.OutputFile = input.OutputFile
	cfg.MetricsFile = input.MetricsFile
	cfg.Width = input.Width

	cfg.Host = strings.ToLower(strings.TrimSpace(input.Host))
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Host != DefaultHost {
		return fmt.Errorf("unsupported host '%s'. must be github", input.Host)
	}

	cfg.Token = strings.TrimSpace(input.Token)
	if cfg.Token == "" {
		cfg.Token = strings.TrimSpace(os.Getenv(TokenEnvFallback))
	}

	// Parse color flag
	colors, err := ParseBoolString(input.Color)
	if err != nil {
		return fmt.Errorf("invalid --color value: %w", err)
	}
	cfg.UseColors = colors

	level, err := ParseLogLevel(input.LogLevel)
	if err != nil {
		return err
	}
	cfg.LogLevel = level

	// --- 1. Workers Validation ---
	if input.Workers <= 0 || input.Workers > MaxWorkers {
		return fmt.Errorf("workers must be greater than 0 and cannot exceed %d (received %d)", MaxWorkers, input.Workers)
	}
	cfg.Workers = input.Workers

	// --- 2. Request Timeout Validation ---
	cfg.RequestTimeout = DefaultRequestTimeout
	if input.RequestTimeout != "" {
		timeout, err := time.ParseDuration(input.RequestTimeout)
		if err != nil || timeout <= 0 {
			return fmt.Errorf("invalid request timeout '%s'. expected a positive duration like 15s", input.RequestTimeout)
		}
		cfg.RequestTimeout = timeout
	}

	// --- 3. Output Validation ---
	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if cfg.Output == "" {
		cfg.Output = schema.TextOut
	}
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json, parquet", input.Output)
	}

	// --- 4. Backend Validation ---
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}

	cfg.OutputDir = input.OutputDir
	if cfg.OutputDir == "" {
		cfg.OutputDir = cfg.CacheDir
	}
	cfg.OutputDir = expandHome(cfg.OutputDir)

	// --- 5. Min Contribution Validation ---
	if input.MinContribution < 0 {
		return fmt.Errorf("min-contribution cannot be negative (received %d)", input.MinContribution)
	}
	cfg.MinContribution = input.MinContribution

	return nil
}

// processTimeRange parses the optional time window. Unparseable bounds are dropped
// with a warning instead of failing the run.
func processTimeRange(cfg *Config, input *ConfigRawInput) error {
	cfg.Window = NewTimeWindow(input.Start, input.End)
	if cfg.Window.From != nil && cfg.Window.To != nil && cfg.Window.From.After(*cfg.Window.To) {
		return fmt.Errorf("start time (%s) cannot be after end time (%s)", cfg.Window.From.Format(DateTimeFormat), cfg.Window.To.Format(DateTimeFormat))
	}
	return nil
}

// processReportSelection resolves the requested summary columns and the timeline
// frequency/type combinations.
func processReportSelection(cfg *Config, input *ConfigRawInput) error {
	cfg.SummaryColumns = nil
	var unknown []string
	for _, raw := range splitList(input.UsersSummary) {
		col := schema.SummaryColumn(raw)
		if !slices.Contains(schema.AllSummaryColumns, col) {
			unknown = append(unknown, raw)
			continue
		}
		cfg.SummaryColumns = append(cfg.SummaryColumns, col)
	}
	if len(unknown) > 0 {
		LogWarn("Ignoring unknown users summary columns", fmt.Errorf("%q are not among %q", unknown, schema.AllSummaryColumns))
		if len(cfg.SummaryColumns) == 0 {
			LogWarn("No requested column was recognised", fmt.Errorf("showing all columns"))
			cfg.SummaryColumns = slices.Clone(schema.AllSummaryColumns)
		}
	}

	cfg.Frequencies = nil
	cfg.TypeFilters = nil
	tokens := splitList(input.UserComments)
	for _, raw := range tokens {
		freq := schema.Frequency(strings.ToUpper(raw))
		if _, ok := schema.ValidFrequencies[freq]; ok {
			if !slices.Contains(cfg.Frequencies, freq) {
				cfg.Frequencies = append(cfg.Frequencies, freq)
			}
			continue
		}
		tf := schema.TypeFilter(strings.ToLower(raw))
		if _, ok := schema.ValidTypeFilters[tf]; !ok {
			return fmt.Errorf("invalid user-comments value '%s'. must be D, W, M, Y, issue, pr, all", raw)
		}
		if !slices.Contains(cfg.TypeFilters, tf) {
			cfg.TypeFilters = append(cfg.TypeFilters, tf)
		}
	}
	if len(tokens) > 0 && len(cfg.Frequencies) == 0 {
		LogWarn("No timeline aggregation requested", fmt.Errorf("%q contains none of D, W, M, Y", tokens))
	}
	if len(cfg.TypeFilters) == 0 {
		cfg.TypeFilters = []schema.TypeFilter{schema.AllTypes}
	}
	return nil
}

// processFilterTuning validates the bot and spam filter settings.
func processFilterTuning(cfg *Config, input *ConfigRawInput) error {
	cfg.BotPatterns = splitList(input.BotPatterns)
	if len(cfg.BotPatterns) == 0 {
		cfg.BotPatterns = slices.Clone(DefaultBotPatterns)
	}

	cfg.SpamPatterns = slices.Clone(input.SpamPatterns)
	if len(cfg.SpamPatterns) == 0 {
		cfg.SpamPatterns = slices.Clone(DefaultSpamPatterns)
	}
	for _, p := range cfg.SpamPatterns {
		if _, err := regexp.Compile(strings.ToLower(p)); err != nil {
			return fmt.Errorf("invalid spam pattern %q: %w", p, err)
		}
	}

	cfg.SpamThreshold = DefaultSpamThreshold
	if input.SpamThreshold != nil {
		cfg.SpamThreshold = *input.SpamThreshold
	}
	if cfg.SpamThreshold < 0 || cfg.SpamThreshold > 1 {
		return fmt.Errorf("spam threshold must be between 0 and 1 (received %.2f)", cfg.SpamThreshold)
	}
	return nil
}

// resolveRepository picks the repository from the positional argument, the --repo flag,
// or the origin remote of the current Git checkout, in that order.
func resolveRepository(ctx context.Context, cfg *Config, detector RepoDetector, input *ConfigRawInput) error {
	repo := strings.TrimSpace(input.RepoArg)
	if repo == "" {
		repo = strings.TrimSpace(input.Repo)
	}
	if repo == "" && detector != nil {
		if detected, err := detector.DetectRepo(ctx, "."); err == nil {
			repo = detected
		}
	}
	if repo == "" {
		return ErrNoRepository
	}
	repo = strings.TrimSuffix(repo, ".git")
	if !repoSlugRe.MatchString(repo) {
		return fmt.Errorf("invalid repository '%s'. expected <owner>/<name>", repo)
	}
	cfg.Repo = repo
	return nil
}

// splitList flattens list values that may arrive comma separated from env or flags.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

// expandHome resolves a leading ~ to the user home directory.
func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
