package repocache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"

	"github.com/gitpulse/gitpulse/internal/gitexec"
)

// Fingerprint computes a stable digest over the repository's current ref
// state (all branch and tag tips). It changes iff any ref moved, appeared,
// or disappeared. The empty string means the state could not be determined;
// callers must treat that as unknown and force re-analysis, never cache it.
func Fingerprint(ctx context.Context, git gitexec.Git, repoPath string) string {
	refs, err := git.ShowRef(ctx, repoPath)
	if err != nil {
		return ""
	}

	sum := sha256.Sum256([]byte(refs))

	return hex.EncodeToString(sum[:])
}
