package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
repositories:
  base_directory: /srv/repos
  repositories_to_analyze:
    - backend
    - frontend

analysis:
  output_directory: out
  all_branches: false

exclusions:
  patterns:
    - pattern: "vendor/"
      description: "vendored dependencies"
  repository_specific:
    BackendService:
      exclude_patterns:
        - pattern: "generated/"

email_mapping:
  Bob Smith:
    - bob@old.co
    - bob@new.co

elasticsearch:
  host: es.internal
  port: 9200
  commit_index: git-commits
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "/srv/repos", cfg.Repositories.BaseDirectory)
	assert.Equal(t, []string{"backend", "frontend"}, cfg.Repositories.ReposToAnalyze)
	assert.Equal(t, "out", cfg.Analysis.OutputDirectory)
	assert.Equal(t, "es.internal", cfg.Elasticsearch.Host)
	assert.Equal(t, "git-commits", cfg.Elasticsearch.CommitIndex)
}

func TestLoad_PreservesMapKeyCase(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	// Person names and repository names are map keys and must keep their case.
	assert.Contains(t, cfg.EmailMapping, "Bob Smith")
	assert.Contains(t, cfg.Exclusions.RepositorySpecific, "BackendService")
}

func TestLoad_DefaultsSurviveUnmentionedKeys(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	// all_branches was set explicitly, the rest fall back to defaults.
	assert.False(t, cfg.Analysis.AllBranches)
	assert.True(t, cfg.Analysis.ExcludeMergeCommits)
	assert.True(t, cfg.Metrics.Commits.NormalizeMessage)
	assert.Equal(t, CompressionNone, cfg.Cache.Compression)
}

func TestLoad_MissingFileIsFatal(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	require.Error(t, err)
}

func TestLoad_ValidationFailure(t *testing.T) {
	t.Parallel()

	_, err := Load(writeConfig(t, "analysis:\n  output_directory: out\n"))

	require.ErrorIs(t, err, ErrMissingBaseDirectory)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.Repositories.BaseDirectory = "/srv/repos"

	require.NoError(t, cfg.Validate())

	cfg.Parallelization.MaxWorkers = -1
	require.ErrorIs(t, cfg.Validate(), ErrInvalidMaxWorkers)

	cfg.Parallelization.MaxWorkers = 0
	cfg.Cache.Compression = "zstd"
	require.ErrorIs(t, cfg.Validate(), ErrInvalidCompression)
}

func TestLookup(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, validYAML)

	host, err := Lookup(path, "elasticsearch.host")
	require.NoError(t, err)
	assert.Equal(t, "es.internal", host)

	port, err := Lookup(path, "elasticsearch.port")
	require.NoError(t, err)
	assert.Equal(t, 9200, port)
}

func TestLookup_KeyNotFound(t *testing.T) {
	t.Parallel()

	_, err := Lookup(writeConfig(t, validYAML), "elasticsearch.nope")

	require.ErrorIs(t, err, ErrKeyNotFound)
}
