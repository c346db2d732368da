// Package rules implements the layered file-exclusion rule engine.
//
// Four pattern layers are evaluated per file path: global always-include,
// per-repository include, per-repository exclude, and global exclude.
// Include layers always win over exclude layers.
package rules

import (
	"log/slog"
	"regexp"

	"github.com/gitpulse/gitpulse/internal/config"
)

// Rule is one compiled inclusion or exclusion pattern.
type Rule struct {
	Pattern     *regexp.Regexp
	Description string
}

// Policy is the immutable per-repository view of the rule layers.
// Shared read-only across all concurrent workers.
type Policy struct {
	// IncludeAll disables all exclusion for the repository.
	IncludeAll bool

	// Include patterns override both exclude layers.
	Include []Rule

	// Exclude patterns apply before the global exclude layer.
	Exclude []Rule
}

// Engine evaluates the exclusion layers for file paths.
// Built once from config at startup; safe for concurrent use.
type Engine struct {
	includeAllRepos map[string]struct{}
	alwaysInclude   []Rule
	globalExclude   []Rule
	repoPolicies    map[string]Policy
}

// Compile turns rule configs into compiled rules. Patterns are anchored to
// the start of the path, mirroring path-glob-as-regex semantics. Invalid
// patterns are dropped with a warning; a bad rule must not abort analysis.
func Compile(items []config.RuleConfig, logger *slog.Logger) []Rule {
	if logger == nil {
		logger = slog.Default()
	}

	compiled := make([]Rule, 0, len(items))

	for _, item := range items {
		re, err := regexp.Compile("^(?:" + item.Pattern + ")")
		if err != nil {
			logger.Warn("invalid rule pattern, dropping",
				slog.String("pattern", item.Pattern),
				slog.String("error", err.Error()))

			continue
		}

		compiled = append(compiled, Rule{Pattern: re, Description: item.Description})
	}

	return compiled
}

// NewEngine compiles every pattern layer from config into an immutable rule
// table. Per-repository layers are compiled once here, not per evaluation.
func NewEngine(cfg *config.Config, logger *slog.Logger) *Engine {
	includeAll := make(map[string]struct{}, len(cfg.Repositories.IncludeAllFiles))
	for _, name := range cfg.Repositories.IncludeAllFiles {
		includeAll[name] = struct{}{}
	}

	policies := make(map[string]Policy, len(cfg.Exclusions.RepositorySpecific))
	for name, repoRules := range cfg.Exclusions.RepositorySpecific {
		policies[name] = Policy{
			Include: Compile(repoRules.IncludePatterns, logger),
			Exclude: Compile(repoRules.ExcludePatterns, logger),
		}
	}

	return &Engine{
		includeAllRepos: includeAll,
		alwaysInclude:   Compile(cfg.Exclusions.AlwaysInclude, logger),
		globalExclude:   Compile(cfg.Exclusions.Patterns, logger),
		repoPolicies:    policies,
	}
}

// PolicyFor returns the per-repository policy, resolving the include-all flag.
func (e *Engine) PolicyFor(repoName string) Policy {
	policy := e.repoPolicies[repoName]

	_, policy.IncludeAll = e.includeAllRepos[repoName]

	return policy
}

// ShouldExclude reports whether a file path is excluded from analysis for the
// given repository. Each step short-circuits on first match:
// include-all repo, global always-include, repo include, repo exclude,
// global exclude, then default include.
func (e *Engine) ShouldExclude(filePath, repoName string) bool {
	policy := e.PolicyFor(repoName)

	if policy.IncludeAll {
		return false
	}

	if matchAny(e.alwaysInclude, filePath) {
		return false
	}

	if matchAny(policy.Include, filePath) {
		return false
	}

	if matchAny(policy.Exclude, filePath) {
		return true
	}

	return matchAny(e.globalExclude, filePath)
}

func matchAny(ruleSet []Rule, path string) bool {
	for _, rule := range ruleSet {
		if rule.Pattern.MatchString(path) {
			return true
		}
	}

	return false
}
