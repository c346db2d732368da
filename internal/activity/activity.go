// Package activity renders per-repository commit activity charts from a
// previously written bulk export.
package activity

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/gitpulse/gitpulse/internal/extract"
)

// maxLineBytes bounds a single bulk line; commit documents are small but
// bufio's default token size is too tight for long subjects.
const maxLineBytes = 1 << 20

// ReadBulkRecords parses the newline-delimited action/document stream back
// into records. Action lines are recognized by their "index" key and
// skipped; malformed lines are skipped as well.
func ReadBulkRecords(path string) ([]extract.CommitRecord, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bulk file: %w", err)
	}
	defer file.Close()

	return parseBulk(file)
}

func parseBulk(r io.Reader) ([]extract.CommitRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), maxLineBytes)

	var records []extract.CommitRecord

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var probe struct {
			Index *json.RawMessage `json:"index"`
		}

		if json.Unmarshal([]byte(line), &probe) == nil && probe.Index != nil {
			continue
		}

		var record extract.CommitRecord
		if json.Unmarshal([]byte(line), &record) != nil || record.CommitID == "" {
			continue
		}

		records = append(records, record)
	}

	err := scanner.Err()
	if err != nil {
		return nil, fmt.Errorf("read bulk file: %w", err)
	}

	return records, nil
}

// RepoTally is one repository's aggregated activity.
type RepoTally struct {
	Repository string
	Commits    int
	Insertions int
	Deletions  int
}

// TallyByRepository reduces records to per-repository totals, sorted by
// commit count descending (ties broken by name for stable output).
func TallyByRepository(records []extract.CommitRecord) []RepoTally {
	byRepo := make(map[string]*RepoTally)

	for _, record := range records {
		tally, ok := byRepo[record.Repository]
		if !ok {
			tally = &RepoTally{Repository: record.Repository}
			byRepo[record.Repository] = tally
		}

		tally.Commits++
		tally.Insertions += record.Insertions
		tally.Deletions += record.Deletions
	}

	tallies := make([]RepoTally, 0, len(byRepo))
	for _, tally := range byRepo {
		tallies = append(tallies, *tally)
	}

	sort.Slice(tallies, func(i, j int) bool {
		if tallies[i].Commits != tallies[j].Commits {
			return tallies[i].Commits > tallies[j].Commits
		}

		return tallies[i].Repository < tallies[j].Repository
	})

	return tallies
}

// WriteChartPage renders an HTML page with commit-count and line-delta bar
// charts per repository.
func WriteChartPage(w io.Writer, tallies []RepoTally, title string) error {
	labels := make([]string, len(tallies))
	commitData := make([]opts.BarData, len(tallies))
	insertionData := make([]opts.BarData, len(tallies))
	deletionData := make([]opts.BarData, len(tallies))

	for i, tally := range tallies {
		labels[i] = tally.Repository
		commitData[i] = opts.BarData{Value: tally.Commits}
		insertionData[i] = opts.BarData{Value: tally.Insertions}
		deletionData[i] = opts.BarData{Value: tally.Deletions}
	}

	commitBar := charts.NewBar()
	commitBar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: "Commits per repository"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	commitBar.SetXAxis(labels)
	commitBar.AddSeries("Commits", commitData)

	linesBar := charts.NewBar()
	linesBar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Subtitle: "Line deltas per repository"}),
		charts.WithTooltipOpts(opts.Tooltip{Trigger: "axis"}),
	)
	linesBar.SetXAxis(labels)
	linesBar.AddSeries("Insertions", insertionData)
	linesBar.AddSeries("Deletions", deletionData)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(commitBar, linesBar)

	err := page.Render(w)
	if err != nil {
		return fmt.Errorf("render activity page: %w", err)
	}

	return nil
}
