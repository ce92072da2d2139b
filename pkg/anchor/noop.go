package anchor

import (
	"context"

	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/merkletree"
)

// NoopPublisher records no external witness; it returns the batch's own
// Merkle root as its reference. Useful for tests and for operators running
// without an external witness configured.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, batch domain.AnchorBatch, leaves []merkletree.Leaf) (string, error) {
	return batch.MerkleRoot, nil
}
