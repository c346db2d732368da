// Package emails scans repository history for author emails that are not
// covered by the configured email mapping.
package emails

import (
	"context"
	"log/slog"
	"path/filepath"
	"slices"
	"sort"
	"strings"

	"github.com/gitpulse/gitpulse/internal/gitexec"
	"github.com/gitpulse/gitpulse/internal/identity"
)

// Finder walks repositories read-only; it never touches the result cache.
type Finder struct {
	git      gitexec.Git
	resolver *identity.Resolver
	logger   *slog.Logger
}

// NewFinder creates a finder over the git boundary and the identity mapping.
func NewFinder(git gitexec.Git, resolver *identity.Resolver, logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.Default()
	}

	return &Finder{git: git, resolver: resolver, logger: logger}
}

// Unmapped is one unmapped email and the repositories it appears in.
type Unmapped struct {
	Email        string
	Repositories []string
}

// Find returns all unmapped author emails across the given repositories,
// sorted by email. A repository whose log cannot be read is logged and
// skipped; the scan itself always completes.
func (f *Finder) Find(ctx context.Context, repoPaths []string) []Unmapped {
	emailRepos := make(map[string][]string)

	for _, repoPath := range repoPaths {
		repoName := filepath.Base(repoPath)

		out, err := f.git.AuthorEmails(ctx, repoPath)
		if err != nil {
			f.logger.Error("could not read author emails",
				slog.String("repository", repoName),
				slog.String("error", err.Error()))

			continue
		}

		for _, email := range distinctEmails(out) {
			if f.resolver.Mapped(email) {
				continue
			}

			if !slices.Contains(emailRepos[email], repoName) {
				emailRepos[email] = append(emailRepos[email], repoName)
			}
		}
	}

	unmapped := make([]Unmapped, 0, len(emailRepos))
	for email, repos := range emailRepos {
		unmapped = append(unmapped, Unmapped{Email: email, Repositories: repos})
	}

	sort.Slice(unmapped, func(i, j int) bool { return unmapped[i].Email < unmapped[j].Email })

	return unmapped
}

// distinctEmails lowercases and dedupes one repository's author-email log.
func distinctEmails(logOutput string) []string {
	seen := make(map[string]struct{})

	var emails []string

	for line := range strings.Lines(logOutput) {
		email := strings.ToLower(strings.TrimSpace(line))
		if email == "" {
			continue
		}

		if _, dup := seen[email]; dup {
			continue
		}

		seen[email] = struct{}{}

		emails = append(emails, email)
	}

	return emails
}
