// Package extract walks a repository's commit history through the git
// command boundary and reduces it to filtered CommitRecords.
package extract

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/gitpulse/gitpulse/internal/gitexec"
	"github.com/gitpulse/gitpulse/internal/identity"
	"github.com/gitpulse/gitpulse/internal/rules"
)

// minLogFields is the required field count of a parseable git log line.
const minLogFields = 5

// numstatFields is the required field count of a numstat line (added, removed, path).
const numstatFields = 3

// binaryMarker is the numstat sentinel for binary files.
const binaryMarker = "-"

// Options holds the extraction scope and shaping knobs from config.
type Options struct {
	Log              gitexec.LogOptions
	NormalizeMessage bool
}

// Extractor produces CommitRecords for one repository at a time.
// Safe for concurrent use across repositories: all fields are read-only.
type Extractor struct {
	git      gitexec.Git
	rules    *rules.Engine
	identity *identity.Resolver
	opts     Options
	logger   *slog.Logger
}

// NewExtractor creates an extractor over the given git boundary, rule engine,
// and identity resolver.
func NewExtractor(
	git gitexec.Git,
	ruleEngine *rules.Engine,
	resolver *identity.Resolver,
	opts Options,
	logger *slog.Logger,
) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}

	return &Extractor{
		git:      git,
		rules:    ruleEngine,
		identity: resolver,
		opts:     opts,
		logger:   logger,
	}
}

// Extract enumerates the repository's commits and returns one record per
// commit. A commit-list failure aborts only this repository: the error is
// returned for the orchestrator to report as a soft failure. A per-commit
// stats failure degrades that commit to a zero-stat record.
func (e *Extractor) Extract(ctx context.Context, repoPath, repoName string) ([]CommitRecord, error) {
	logOut, err := e.git.Log(ctx, repoPath, e.opts.Log)
	if err != nil {
		return nil, fmt.Errorf("list commits for %s: %w", repoName, err)
	}

	var records []CommitRecord

	for line := range strings.Lines(logOut) {
		line = strings.TrimRight(line, "\n")
		if line == "" {
			continue
		}

		info, ok := e.parseLogLine(line)
		if !ok {
			continue
		}

		stats := e.commitStats(ctx, repoPath, repoName, info.id)

		records = append(records, CommitRecord{
			Repository:      repoName,
			CommitID:        info.id,
			AuthorEmail:     info.email,
			AuthorName:      e.identity.Resolve(info.email, info.name),
			CommitTimestamp: info.timestamp,
			FilesChanged:    stats.filesChanged,
			Insertions:      stats.insertions,
			Deletions:       stats.deletions,
			LinesChanged:    stats.insertions + stats.deletions,
		})
	}

	return records, nil
}

// parseLogLine splits one formatted log line into commit fields.
// Lines with fewer than the required fields are skipped, not fatal.
func (e *Extractor) parseLogLine(line string) (commitInfo, bool) {
	parts := strings.SplitN(line, gitexec.Separator, minLogFields)
	if len(parts) < minLogFields {
		return commitInfo{}, false
	}

	message := strings.TrimSpace(parts[4])
	if e.opts.NormalizeMessage {
		message = collapseWhitespace(message)
	}

	return commitInfo{
		id:        strings.TrimSpace(parts[0]),
		email:     strings.ToLower(strings.TrimSpace(parts[1])),
		name:      strings.TrimSpace(parts[2]),
		timestamp: strings.TrimSpace(parts[3]),
		message:   message,
	}, true
}

// commitStats obtains per-file change counts for a single commit and folds in
// only the files that pass the exclusion filters. Binary files (numstat "-"
// sentinels) contribute to neither counts nor filesChanged.
func (e *Extractor) commitStats(ctx context.Context, repoPath, repoName, commitID string) fileStats {
	out, err := e.git.Numstat(ctx, repoPath, commitID)
	if err != nil {
		e.logger.Error("commit stats failed, recording zero stats",
			slog.String("repository", repoName),
			slog.String("commit", commitID),
			slog.String("error", err.Error()))

		return fileStats{}
	}

	var stats fileStats

	for line := range strings.Lines(out) {
		line = strings.TrimRight(line, "\n")
		if line == "" {
			continue
		}

		parts := strings.SplitN(line, "\t", numstatFields)
		if len(parts) < numstatFields {
			continue
		}

		added, removed, filePath := parts[0], parts[1], parts[2]

		if added == binaryMarker || removed == binaryMarker {
			continue
		}

		addedCount, addedErr := strconv.Atoi(added)

		removedCount, removedErr := strconv.Atoi(removed)
		if addedErr != nil || removedErr != nil {
			continue
		}

		if e.rules.ShouldExclude(filePath, repoName) {
			continue
		}

		stats.insertions += addedCount
		stats.deletions += removedCount
		stats.filesChanged++
	}

	return stats
}

// collapseWhitespace replaces all whitespace runs, including line breaks,
// with single spaces.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
