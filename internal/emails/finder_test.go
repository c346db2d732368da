package emails

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gitpulse/gitpulse/internal/gitexec"
	"github.com/gitpulse/gitpulse/internal/identity"
)

// emailGit serves canned author-email logs keyed by repository name.
type emailGit struct {
	emails map[string]string
	errs   map[string]error
}

func (g *emailGit) Log(_ context.Context, _ string, _ gitexec.LogOptions) (string, error) {
	return "", nil
}

func (g *emailGit) Numstat(_ context.Context, _, _ string) (string, error) {
	return "", nil
}

func (g *emailGit) ShowRef(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (g *emailGit) AuthorEmails(_ context.Context, repoPath string) (string, error) {
	name := filepath.Base(repoPath)
	if err := g.errs[name]; err != nil {
		return "", err
	}

	return g.emails[name], nil
}

func testResolver() *identity.Resolver {
	return identity.NewResolver(map[string][]string{
		"Bob Smith": {"bob@old.co", "bob@new.co"},
	})
}

func TestFinder_Find(t *testing.T) {
	t.Parallel()

	git := &emailGit{emails: map[string]string{
		"backend":  "bob@old.co\nghost@nowhere.dev\n",
		"frontend": "ghost@nowhere.dev\nann@corp.io\n",
	}}

	finder := NewFinder(git, testResolver(), nil)

	unmapped := finder.Find(context.Background(), []string{"/repos/backend", "/repos/frontend"})

	require.Len(t, unmapped, 2)
	assert.Equal(t, "ann@corp.io", unmapped[0].Email)
	assert.Equal(t, []string{"frontend"}, unmapped[0].Repositories)
	assert.Equal(t, "ghost@nowhere.dev", unmapped[1].Email)
	assert.ElementsMatch(t, []string{"backend", "frontend"}, unmapped[1].Repositories)
}

func TestFinder_Find_AllMapped(t *testing.T) {
	t.Parallel()

	git := &emailGit{emails: map[string]string{
		"backend": "bob@old.co\nBOB@NEW.CO\n",
	}}

	finder := NewFinder(git, testResolver(), nil)

	assert.Empty(t, finder.Find(context.Background(), []string{"/repos/backend"}))
}

func TestFinder_Find_SkipsUnreadableRepository(t *testing.T) {
	t.Parallel()

	git := &emailGit{
		emails: map[string]string{"healthy": "ghost@nowhere.dev\n"},
		errs:   map[string]error{"broken": errors.New("not a git repository")},
	}

	finder := NewFinder(git, testResolver(), nil)

	unmapped := finder.Find(context.Background(), []string{"/repos/broken", "/repos/healthy"})

	require.Len(t, unmapped, 1)
	assert.Equal(t, "ghost@nowhere.dev", unmapped[0].Email)
}

func TestDistinctEmails(t *testing.T) {
	t.Parallel()

	emails := distinctEmails("Bob@Old.Co\nbob@old.co\n\nann@corp.io\n")

	assert.Equal(t, []string{"bob@old.co", "ann@corp.io"}, emails)
}
