package anchor

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/merkletree"
)

// GitTagPublisher witnesses a batch's Merkle root as an annotated git tag
// in a local repository clone, grounded on the teacher lineage's own use of
// exec.LookPath/exec.Command to shell out to external binaries rather than
// linking a git library.
type GitTagPublisher struct {
	// RepoDir is the working directory of the git repository to tag.
	RepoDir string
	// TagPrefix namespaces tags from this ledger, e.g. "accountabilityme".
	TagPrefix string
}

func (g GitTagPublisher) Publish(ctx context.Context, batch domain.AnchorBatch, leaves []merkletree.Leaf) (string, error) {
	if _, err := exec.LookPath("git"); err != nil {
		return "", fmt.Errorf("anchor: git binary not found: %w", err)
	}

	prefix := g.TagPrefix
	if prefix == "" {
		prefix = "accountabilityme"
	}
	tag := fmt.Sprintf("%s/batch-%s", prefix, batch.BatchID)
	message := fmt.Sprintf("merkle_root=%s start=%d end=%d", batch.MerkleRoot, batch.StartSequence, batch.EndSequence)

	cmd := exec.CommandContext(ctx, "git", "tag", "-a", tag, "-m", message)
	cmd.Dir = g.RepoDir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("anchor: git tag failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return tag, nil
}
