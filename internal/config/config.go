// Package config loads and validates the gitpulse analysis configuration.
package config

import "errors"

// Cache compression codec names accepted in cache.compression.
const (
	CompressionNone = "none"
	CompressionLZ4  = "lz4"
)

// Config is the top-level configuration struct for gitpulse.
// Field tags use yaml for direct yaml.v3 unmarshalling, which preserves the
// case of map keys (person names, repository names).
type Config struct {
	Repositories    RepositoriesConfig    `yaml:"repositories"`
	Analysis        AnalysisConfig        `yaml:"analysis"`
	Metrics         MetricsConfig         `yaml:"metrics"`
	Exclusions      ExclusionsConfig      `yaml:"exclusions"`
	EmailMapping    map[string][]string   `yaml:"email_mapping"`
	Elasticsearch   ElasticsearchConfig   `yaml:"elasticsearch"`
	Parallelization ParallelizationConfig `yaml:"parallelization"`
	Cache           CacheConfig           `yaml:"cache"`
}

// RepositoriesConfig selects which repositories are analyzed.
type RepositoriesConfig struct {
	// BaseDirectory is the directory holding local clones.
	BaseDirectory string `yaml:"base_directory"`

	// ReposToAnalyze is an explicit allow-list of repository directory names.
	// Empty means every subdirectory of BaseDirectory containing a .git marker.
	ReposToAnalyze []string `yaml:"repositories_to_analyze"`

	// IncludeAllFiles lists repositories whose files bypass all exclusion rules.
	IncludeAllFiles []string `yaml:"include_all_files"`
}

// AnalysisConfig holds history-walk scope knobs and the output location.
type AnalysisConfig struct {
	OutputDirectory     string `yaml:"output_directory"`
	AllBranches         bool   `yaml:"all_branches"`
	ExcludeMergeCommits bool   `yaml:"exclude_merge_commits"`
	StartDate           string `yaml:"start_date"`
	EndDate             string `yaml:"end_date"`
}

// MetricsConfig holds per-metric toggles.
type MetricsConfig struct {
	Commits CommitMetricsConfig `yaml:"commits"`
}

// CommitMetricsConfig holds commit-record shaping toggles.
type CommitMetricsConfig struct {
	// NormalizeMessage collapses whitespace runs in commit messages to single spaces.
	NormalizeMessage bool `yaml:"normalize_message"`
}

// RuleConfig is one exclusion or inclusion pattern as written in YAML.
type RuleConfig struct {
	Pattern     string `yaml:"pattern"`
	Description string `yaml:"description"`
}

// RepoRulesConfig holds the per-repository pattern layers.
type RepoRulesConfig struct {
	IncludePatterns []RuleConfig `yaml:"include_patterns"`
	ExcludePatterns []RuleConfig `yaml:"exclude_patterns"`
}

// ExclusionsConfig holds all four pattern layers.
type ExclusionsConfig struct {
	Patterns           []RuleConfig               `yaml:"patterns"`
	AlwaysInclude      []RuleConfig               `yaml:"always_include"`
	RepositorySpecific map[string]RepoRulesConfig `yaml:"repository_specific"`
}

// ElasticsearchConfig names the target index for the bulk export. Host and
// batch settings are consumed by the upload scripts via `gitpulse config get`.
type ElasticsearchConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port"`
	CommitIndex   string `yaml:"commit_index"`
	BulkBatchSize int    `yaml:"bulk_batch_size"`
}

// ParallelizationConfig bounds the analysis worker pool.
type ParallelizationConfig struct {
	// MaxWorkers is the worker pool size. Zero means available parallelism.
	MaxWorkers int `yaml:"max_workers"`
}

// CacheConfig holds result cache settings.
type CacheConfig struct {
	// Compression selects the per-repository data file codec: "none" or "lz4".
	Compression string `yaml:"compression"`
}

// Sentinel errors for configuration validation.
var (
	// ErrMissingBaseDirectory indicates repositories.base_directory is empty.
	ErrMissingBaseDirectory = errors.New("repositories.base_directory is required")
	// ErrMissingOutputDirectory indicates analysis.output_directory is empty.
	ErrMissingOutputDirectory = errors.New("analysis.output_directory is required")
	// ErrMissingCommitIndex indicates elasticsearch.commit_index is empty.
	ErrMissingCommitIndex = errors.New("elasticsearch.commit_index is required")
	// ErrInvalidMaxWorkers indicates the workers value is negative.
	ErrInvalidMaxWorkers = errors.New("parallelization.max_workers must be non-negative")
	// ErrInvalidCompression indicates an unknown cache compression codec.
	ErrInvalidCompression = errors.New(`cache.compression must be "none" or "lz4"`)
)

// Default returns a Config with defaults applied. Unmarshalling YAML on top
// of it overrides only the keys present in the file.
func Default() Config {
	return Config{
		Analysis: AnalysisConfig{
			OutputDirectory:     "output",
			AllBranches:         true,
			ExcludeMergeCommits: true,
		},
		Metrics: MetricsConfig{
			Commits: CommitMetricsConfig{NormalizeMessage: true},
		},
		Elasticsearch: ElasticsearchConfig{
			CommitIndex: "git-commits",
		},
		Cache: CacheConfig{
			Compression: CompressionNone,
		},
	}
}

// Validate checks Config invariants and returns the first error found.
func (c *Config) Validate() error {
	if c.Repositories.BaseDirectory == "" {
		return ErrMissingBaseDirectory
	}

	if c.Analysis.OutputDirectory == "" {
		return ErrMissingOutputDirectory
	}

	if c.Elasticsearch.CommitIndex == "" {
		return ErrMissingCommitIndex
	}

	if c.Parallelization.MaxWorkers < 0 {
		return ErrInvalidMaxWorkers
	}

	switch c.Cache.Compression {
	case "", CompressionNone, CompressionLZ4:
	default:
		return ErrInvalidCompression
	}

	return nil
}
