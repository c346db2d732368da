// Package gitexec is the narrow command boundary to the version-control tool.
// The git object model is never parsed; everything goes through porcelain
// commands with machine-friendly formats.
package gitexec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Separator is the git log field separator. Chosen to avoid collision with
// natural commit-message content.
const Separator = "|||"

// logFormat yields: hash|||author-email|||author-name|||iso-timestamp|||subject.
const logFormat = "%H" + Separator + "%ae" + Separator + "%an" + Separator + "%cI" + Separator + "%s"

// emailFormat yields one author email per commit line.
const emailFormat = "%ae"

// LogOptions are the history-walk scope knobs passed through from config.
type LogOptions struct {
	AllBranches   bool
	ExcludeMerges bool
	Since         string
	Until         string
}

// Git is the command interface consumed by extraction and fingerprinting.
type Git interface {
	// Log lists commits in the machine format, newest first.
	Log(ctx context.Context, repoPath string, opts LogOptions) (string, error)

	// Numstat returns per-file added/removed counts for a single commit.
	Numstat(ctx context.Context, repoPath, commitID string) (string, error)

	// ShowRef returns all refs (branches and tags) with their commit hashes.
	ShowRef(ctx context.Context, repoPath string) (string, error)

	// AuthorEmails returns the raw author-email log across all branches.
	AuthorEmails(ctx context.Context, repoPath string) (string, error)
}

// ExecRunner runs git as an external process.
type ExecRunner struct {
	// GitPath is the git executable. Empty means "git" from PATH.
	GitPath string
}

// NewRunner creates an ExecRunner using git from PATH.
func NewRunner() *ExecRunner {
	return &ExecRunner{}
}

// Log implements [Git.Log] via `git log --format=...`.
func (r *ExecRunner) Log(ctx context.Context, repoPath string, opts LogOptions) (string, error) {
	args := []string{"log", "--format=" + logFormat}

	if opts.AllBranches {
		args = append(args, "--all")
	}

	if opts.ExcludeMerges {
		args = append(args, "--no-merges")
	}

	if opts.Since != "" {
		args = append(args, "--since="+opts.Since)
	}

	if opts.Until != "" {
		args = append(args, "--until="+opts.Until)
	}

	return r.output(ctx, repoPath, args...)
}

// Numstat implements [Git.Numstat] via `git show --numstat --format=`.
func (r *ExecRunner) Numstat(ctx context.Context, repoPath, commitID string) (string, error) {
	return r.output(ctx, repoPath, "show", "--numstat", "--format=", commitID)
}

// ShowRef implements [Git.ShowRef].
func (r *ExecRunner) ShowRef(ctx context.Context, repoPath string) (string, error) {
	return r.output(ctx, repoPath, "show-ref")
}

// AuthorEmails implements [Git.AuthorEmails].
func (r *ExecRunner) AuthorEmails(ctx context.Context, repoPath string) (string, error) {
	return r.output(ctx, repoPath, "log", "--format="+emailFormat, "--all")
}

// output runs `git -C repoPath args...` and returns stdout.
// A non-zero exit is an error carrying the stderr tail, not a crash.
func (r *ExecRunner) output(ctx context.Context, repoPath string, args ...string) (string, error) {
	gitPath := r.GitPath
	if gitPath == "" {
		gitPath = "git"
	}

	fullArgs := append([]string{"-C", repoPath}, args...)
	cmd := exec.CommandContext(ctx, gitPath, fullArgs...)

	var stdout, stderr bytes.Buffer

	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		return "", fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}

	return stdout.String(), nil
}

// DiscoverRepositories resolves the repository list for a run. A non-empty
// allow-list selects those directory names under baseDir; otherwise every
// subdirectory containing a .git marker is picked up.
func DiscoverRepositories(baseDir string, allowList []string) ([]string, error) {
	if len(allowList) > 0 {
		paths := make([]string, 0, len(allowList))
		for _, name := range allowList {
			paths = append(paths, filepath.Join(baseDir, name))
		}

		return paths, nil
	}

	entries, err := os.ReadDir(baseDir)
	if err != nil {
		return nil, fmt.Errorf("read repositories directory: %w", err)
	}

	var paths []string

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		candidate := filepath.Join(baseDir, entry.Name())
		if _, statErr := os.Stat(filepath.Join(candidate, ".git")); statErr == nil {
			paths = append(paths, candidate)
		}
	}

	return paths, nil
}
