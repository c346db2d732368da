package export

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitpulse/gitpulse/internal/extract"
)

func TestSummarize(t *testing.T) {
	t.Parallel()

	records := []extract.CommitRecord{
		{Repository: "backend", AuthorName: "Bob Smith", Insertions: 10, Deletions: 2, LinesChanged: 12},
		{Repository: "backend", AuthorName: "Ann Lee", Insertions: 3, Deletions: 1, LinesChanged: 4},
		{Repository: "frontend", AuthorName: "Bob Smith", Insertions: 5, Deletions: 5, LinesChanged: 10},
	}

	summary := Summarize(records)

	assert.Equal(t, 3, summary.TotalCommits)
	assert.Equal(t, 18, summary.Insertions)
	assert.Equal(t, 8, summary.Deletions)
	assert.Equal(t, 26, summary.LinesChanged)
	assert.Equal(t, 2, summary.Repositories)
	assert.Equal(t, 2, summary.Contributors)
}

func TestSummarize_Empty(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Summary{}, Summarize(nil))
}

func TestSummarize_OrderIndependent(t *testing.T) {
	t.Parallel()

	records := make([]extract.CommitRecord, 0, 50)
	for i := range 50 {
		records = append(records, extract.CommitRecord{
			Repository:   []string{"backend", "frontend", "infra"}[i%3],
			AuthorName:   []string{"Bob Smith", "Ann Lee"}[i%2],
			CommitID:     string(rune('a' + i%26)),
			Insertions:   i,
			Deletions:    i % 7,
			LinesChanged: i + i%7,
		})
	}

	want := Summarize(records)

	rng := rand.New(rand.NewSource(1))

	for range 10 {
		rng.Shuffle(len(records), func(i, j int) {
			records[i], records[j] = records[j], records[i]
		})

		assert.Equal(t, want, Summarize(records))
	}
}

func TestWriteSummaryFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	path, err := WriteSummaryFile(dir, Summary{TotalCommits: 5, Repositories: 2})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "commits-summary.json"), path)

	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(contents), `"total_commits": 5`)
}

func TestSummary_Table(t *testing.T) {
	t.Parallel()

	rendered := Summary{TotalCommits: 1234567, Repositories: 3}.Table()

	assert.Contains(t, rendered, "1,234,567")
	assert.Contains(t, rendered, "Total commits")
	assert.Contains(t, rendered, "Repositories")
}
