package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitpulse/gitpulse/internal/config"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Repositories.IncludeAllFiles = []string{"docs-site"}
	cfg.Exclusions.Patterns = []config.RuleConfig{
		{Pattern: `vendor/`, Description: "vendored dependencies"},
		{Pattern: `.*\.min\.js$`, Description: "minified bundles"},
	}
	cfg.Exclusions.AlwaysInclude = []config.RuleConfig{
		{Pattern: `vendor/ours/`, Description: "first-party vendored code"},
	}
	cfg.Exclusions.RepositorySpecific = map[string]config.RepoRulesConfig{
		"backend": {
			IncludePatterns: []config.RuleConfig{{Pattern: `generated/keep\.go$`}},
			ExcludePatterns: []config.RuleConfig{{Pattern: `generated/`}},
		},
	}

	return &cfg
}

func TestCompile_DropsInvalidPattern(t *testing.T) {
	t.Parallel()

	compiled := Compile([]config.RuleConfig{
		{Pattern: `good/`},
		{Pattern: `[unclosed`},
		{Pattern: `also-good/`},
	}, nil)

	require.Len(t, compiled, 2)
	assert.True(t, compiled[0].Pattern.MatchString("good/file.go"))
	assert.True(t, compiled[1].Pattern.MatchString("also-good/file.go"))
}

func TestCompile_AnchorsToPathStart(t *testing.T) {
	t.Parallel()

	compiled := Compile([]config.RuleConfig{{Pattern: `vendor/`}}, nil)
	require.Len(t, compiled, 1)

	assert.True(t, compiled[0].Pattern.MatchString("vendor/lib.js"))
	assert.False(t, compiled[0].Pattern.MatchString("src/vendor/lib.js"))
}

func TestEngine_GlobalExclude(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), nil)

	assert.True(t, engine.ShouldExclude("vendor/lib.js", "backend"))
	assert.True(t, engine.ShouldExclude("dist/app.min.js", "backend"))
	assert.False(t, engine.ShouldExclude("src/main.go", "backend"))
}

func TestEngine_AlwaysIncludeWinsOverExclude(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), nil)

	assert.False(t, engine.ShouldExclude("vendor/ours/util.go", "backend"))
	assert.True(t, engine.ShouldExclude("vendor/theirs/util.go", "backend"))
}

func TestEngine_RepoIncludeWinsOverRepoExclude(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), nil)

	assert.False(t, engine.ShouldExclude("generated/keep.go", "backend"))
	assert.True(t, engine.ShouldExclude("generated/other.go", "backend"))
}

func TestEngine_RepoRulesScopedToRepo(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), nil)

	// The backend-only exclude layer does not leak into other repositories.
	assert.False(t, engine.ShouldExclude("generated/other.go", "frontend"))
}

func TestEngine_IncludeAllRepoBypassesEverything(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), nil)

	assert.False(t, engine.ShouldExclude("vendor/lib.js", "docs-site"))
	assert.False(t, engine.ShouldExclude("dist/app.min.js", "docs-site"))
}

func TestEngine_PolicyFor(t *testing.T) {
	t.Parallel()

	engine := NewEngine(testConfig(), nil)

	backend := engine.PolicyFor("backend")
	assert.False(t, backend.IncludeAll)
	assert.Len(t, backend.Include, 1)
	assert.Len(t, backend.Exclude, 1)

	docs := engine.PolicyFor("docs-site")
	assert.True(t, docs.IncludeAll)
}
