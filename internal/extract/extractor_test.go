package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitpulse/gitpulse/internal/config"
	"github.com/gitpulse/gitpulse/internal/gitexec"
	"github.com/gitpulse/gitpulse/internal/identity"
	"github.com/gitpulse/gitpulse/internal/rules"
)

// fakeGit serves canned log and numstat output keyed by commit ID.
type fakeGit struct {
	logOut     string
	logErr     error
	numstats   map[string]string
	numstatErr map[string]error
}

func (f *fakeGit) Log(_ context.Context, _ string, _ gitexec.LogOptions) (string, error) {
	return f.logOut, f.logErr
}

func (f *fakeGit) Numstat(_ context.Context, _ string, commitID string) (string, error) {
	if err := f.numstatErr[commitID]; err != nil {
		return "", err
	}

	return f.numstats[commitID], nil
}

func (f *fakeGit) ShowRef(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (f *fakeGit) AuthorEmails(_ context.Context, _ string) (string, error) {
	return "", nil
}

func testExtractor(t *testing.T, git gitexec.Git) *Extractor {
	t.Helper()

	cfg := config.Default()
	cfg.Exclusions.Patterns = []config.RuleConfig{{Pattern: `vendor/`}}
	cfg.EmailMapping = map[string][]string{
		"Bob Smith": {"bob@old.co", "bob@new.co"},
	}

	return NewExtractor(
		git,
		rules.NewEngine(&cfg, nil),
		identity.NewResolver(cfg.EmailMapping),
		Options{NormalizeMessage: true},
		nil,
	)
}

func TestExtractor_Extract_FiltersExcludedFiles(t *testing.T) {
	t.Parallel()

	git := &fakeGit{
		logOut: "abc123|||bob@old.co|||bobby|||2024-03-01T10:00:00+01:00|||Add parser\n",
		numstats: map[string]string{
			"abc123": "10\t2\tsrc/parser.go\n100\t50\tvendor/lib.js\n",
		},
	}

	records, err := testExtractor(t, git).Extract(context.Background(), "/repos/backend", "backend")
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "backend", record.Repository)
	assert.Equal(t, "abc123", record.CommitID)
	assert.Equal(t, "bob@old.co", record.AuthorEmail)
	assert.Equal(t, "Bob Smith", record.AuthorName)
	assert.Equal(t, "2024-03-01T10:00:00+01:00", record.CommitTimestamp)
	assert.Equal(t, 1, record.FilesChanged)
	assert.Equal(t, 10, record.Insertions)
	assert.Equal(t, 2, record.Deletions)
	assert.Equal(t, 12, record.LinesChanged)
}

func TestExtractor_Extract_SkipsBinaryFiles(t *testing.T) {
	t.Parallel()

	git := &fakeGit{
		logOut: "abc123|||ann@corp.io|||Ann|||2024-03-01T10:00:00Z|||Add logo\n",
		numstats: map[string]string{
			"abc123": "-\t-\tassets/logo.png\n3\t1\tREADME.md\n",
		},
	}

	records, err := testExtractor(t, git).Extract(context.Background(), "/repos/backend", "backend")
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, 1, records[0].FilesChanged)
	assert.Equal(t, 3, records[0].Insertions)
	assert.Equal(t, 1, records[0].Deletions)
}

func TestExtractor_Extract_LowercasesEmail(t *testing.T) {
	t.Parallel()

	git := &fakeGit{
		logOut: "abc123|||Bob@OLD.co|||bobby|||2024-03-01T10:00:00Z|||Fix\n",
		numstats: map[string]string{
			"abc123": "1\t0\tmain.go\n",
		},
	}

	records, err := testExtractor(t, git).Extract(context.Background(), "/repos/backend", "backend")
	require.NoError(t, err)
	require.Len(t, records, 1)

	assert.Equal(t, "bob@old.co", records[0].AuthorEmail)
	assert.Equal(t, "Bob Smith", records[0].AuthorName)
}

func TestExtractor_Extract_SkipsMalformedLogLines(t *testing.T) {
	t.Parallel()

	git := &fakeGit{
		logOut: "garbage line without separators\n" +
			"abc123|||ann@corp.io|||Ann|||2024-03-01T10:00:00Z|||Fix\n",
		numstats: map[string]string{
			"abc123": "1\t0\tmain.go\n",
		},
	}

	records, err := testExtractor(t, git).Extract(context.Background(), "/repos/backend", "backend")
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "abc123", records[0].CommitID)
}

func TestExtractor_Extract_ZeroStatsOnNumstatFailure(t *testing.T) {
	t.Parallel()

	git := &fakeGit{
		logOut: "bad111|||ann@corp.io|||Ann|||2024-03-01T10:00:00Z|||Broken\n" +
			"good22|||ann@corp.io|||Ann|||2024-03-02T10:00:00Z|||Fine\n",
		numstats: map[string]string{
			"good22": "2\t1\tmain.go\n",
		},
		numstatErr: map[string]error{
			"bad111": errors.New("git show: exit status 128"),
		},
	}

	records, err := testExtractor(t, git).Extract(context.Background(), "/repos/backend", "backend")
	require.NoError(t, err)
	require.Len(t, records, 2)

	// The failing commit survives as a zero-stat record.
	assert.Equal(t, "bad111", records[0].CommitID)
	assert.Equal(t, 0, records[0].FilesChanged)
	assert.Equal(t, 0, records[0].LinesChanged)

	assert.Equal(t, "good22", records[1].CommitID)
	assert.Equal(t, 3, records[1].LinesChanged)
}

func TestExtractor_Extract_LogFailureAbortsRepository(t *testing.T) {
	t.Parallel()

	git := &fakeGit{logErr: errors.New("not a git repository")}

	_, err := testExtractor(t, git).Extract(context.Background(), "/repos/broken", "broken")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}

func TestExtractor_Extract_SeparatorInMessageIsHarmless(t *testing.T) {
	t.Parallel()

	// The subject is the last field; SplitN keeps any separator-looking
	// content inside it intact.
	git := &fakeGit{
		logOut: "abc123|||ann@corp.io|||Ann|||2024-03-01T10:00:00Z|||weird ||| subject\n",
		numstats: map[string]string{
			"abc123": "1\t0\tmain.go\n",
		},
	}

	records, err := testExtractor(t, git).Extract(context.Background(), "/repos/backend", "backend")
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "abc123", records[0].CommitID)
}

func TestParseLogLine_NormalizesMessage(t *testing.T) {
	t.Parallel()

	extractor := testExtractor(t, &fakeGit{})

	info, ok := extractor.parseLogLine("abc|||a@b.co|||Ann|||2024-03-01T10:00:00Z|||fix   multiple\t\tspaces")
	require.True(t, ok)

	assert.Equal(t, "fix multiple spaces", info.message)
}

func TestCollapseWhitespace(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "a b c", collapseWhitespace("a\n b\t\tc"))
	assert.Equal(t, "", collapseWhitespace("   "))
}
