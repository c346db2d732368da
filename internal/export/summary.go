package export

import (
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/gitpulse/gitpulse/internal/extract"
	"github.com/gitpulse/gitpulse/pkg/persist"
)

// summaryBasename is the summary artifact basename (codec adds .json).
const summaryBasename = "commits-summary"

// Summary holds the run's aggregate statistics.
type Summary struct {
	TotalCommits int `json:"total_commits"`
	Insertions   int `json:"insertions"`
	Deletions    int `json:"deletions"`
	LinesChanged int `json:"lines_changed"`
	Repositories int `json:"repositories"`
	Contributors int `json:"contributors"`
}

// Summarize reduces the batch to summary statistics. Plain sums and
// distinct-value counts, so the result is independent of record order.
func Summarize(records []extract.CommitRecord) Summary {
	repos := make(map[string]struct{})
	authors := make(map[string]struct{})

	var summary Summary

	for _, record := range records {
		summary.TotalCommits++
		summary.Insertions += record.Insertions
		summary.Deletions += record.Deletions
		summary.LinesChanged += record.LinesChanged

		repos[record.Repository] = struct{}{}
		authors[record.AuthorName] = struct{}{}
	}

	summary.Repositories = len(repos)
	summary.Contributors = len(authors)

	return summary
}

// WriteSummaryFile writes the summary document into outputDir and returns
// its path.
func WriteSummaryFile(outputDir string, summary Summary) (string, error) {
	err := persist.SaveState(outputDir, summaryBasename, persist.NewJSONCodec(), summary)
	if err != nil {
		return "", err
	}

	return filepath.Join(outputDir, summaryBasename+persist.NewJSONCodec().Extension()), nil
}

// Table renders the summary as a console table.
func (s Summary) Table() string {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)

	tbl.AppendHeader(table.Row{"Metric", "Value"})
	tbl.AppendRows([]table.Row{
		{"Total commits", humanize.Comma(int64(s.TotalCommits))},
		{"Repositories", humanize.Comma(int64(s.Repositories))},
		{"Contributors", humanize.Comma(int64(s.Contributors))},
		{"Insertions", humanize.Comma(int64(s.Insertions))},
		{"Deletions", humanize.Comma(int64(s.Deletions))},
		{"Lines changed", humanize.Comma(int64(s.LinesChanged))},
	})

	return tbl.Render()
}
