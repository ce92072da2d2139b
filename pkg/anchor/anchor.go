// Package anchor implements the Anchor Service (§4.9): periodic Merkle
// batching of contiguous event ranges, an external witness publisher, and
// inclusion-proof serving against the batch an event landed in.
package anchor

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore"
	"github.com/tedy97123/accountabiltyme/pkg/merkletree"
	"github.com/tedy97123/accountabiltyme/pkg/metrics"
)

// Publisher posts a batch's Merkle root to an out-of-band witness and
// returns the reference to record against the batch (a git tag name, an S3
// object version id, a transaction hash). A Publisher returning an error
// flips the batch to AnchorFailed; the batch is retried without rebuilding
// the tree.
type Publisher interface {
	Publish(ctx context.Context, batch domain.AnchorBatch, leaves []merkletree.Leaf) (reference string, err error)
}

// Service selects unclosed event ranges, builds Merkle trees over them, and
// drives them through a Publisher.
type Service struct {
	Store     eventstore.Store
	Publisher Publisher
	BatchSize int // maximum number of events per batch

	mu      sync.Mutex
	batches []storedBatch
}

type storedBatch struct {
	domain.AnchorBatch
	tree *merkletree.Tree
}

// New builds an Anchor Service over store, publishing through pub in
// batches of at most batchSize events.
func New(store eventstore.Store, pub Publisher, batchSize int) *Service {
	if batchSize <= 0 {
		batchSize = 1000
	}
	return &Service{Store: store, Publisher: pub, BatchSize: batchSize}
}

// nextRange returns the start_sequence of the next contiguous unclosed
// range: the first sequence number after the highest end_sequence of any
// recorded batch (0 when no batch is recorded).
func (s *Service) nextRange() uint64 {
	var next uint64
	for _, b := range s.batches {
		if b.EndSequence+1 > next {
			next = b.EndSequence + 1
		}
	}
	return next
}

// RunOnce selects the next contiguous unclosed range (up to BatchSize
// events), builds its Merkle tree, records a pending batch, and attempts
// publication. It returns (nil, nil) when there is nothing new to anchor.
func (s *Service) RunOnce(ctx context.Context) (*domain.AnchorBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := s.nextRange()
	tail, ok, err := s.Store.Tail(ctx)
	if err != nil {
		return nil, fmt.Errorf("anchor: read tail: %w", err)
	}
	if !ok || tail.SequenceNumber < start {
		return nil, nil
	}

	end := tail.SequenceNumber
	if end-start+1 > uint64(s.BatchSize) {
		end = start + uint64(s.BatchSize) - 1
	}

	events, err := s.Store.Range(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("anchor: range [%d,%d]: %w", start, end, err)
	}
	if len(events) == 0 {
		return nil, nil
	}

	leaves := make([]merkletree.Leaf, len(events))
	for i, ev := range events {
		leaves[i] = merkletree.Leaf{EventID: ev.EventID, Hash: ev.EventHash}
	}

	tree, err := merkletree.Build(leaves)
	if err != nil {
		return nil, fmt.Errorf("anchor: build tree: %w", err)
	}

	batch := domain.AnchorBatch{
		BatchID:       uuid.NewString(),
		StartSequence: start,
		EndSequence:   end,
		MerkleRoot:    tree.Root,
		Status:        domain.AnchorPending,
		CreatedAt:     events[len(events)-1].CreatedAt,
	}

	sb := storedBatch{AnchorBatch: batch, tree: tree}
	s.batches = append(s.batches, sb)
	idx := len(s.batches) - 1

	ref, pubErr := s.Publisher.Publish(ctx, batch, leaves)
	if pubErr != nil {
		s.batches[idx].Status = domain.AnchorFailed
		metrics.IncAnchorBatch(string(domain.AnchorFailed))
		return &s.batches[idx].AnchorBatch, fmt.Errorf("anchor: publish batch %s: %w", batch.BatchID, pubErr)
	}

	s.batches[idx].Status = domain.AnchorAnchored
	s.batches[idx].ExternalReference = ref
	metrics.IncAnchorBatch(string(domain.AnchorAnchored))
	return &s.batches[idx].AnchorBatch, nil
}

// Retry re-attempts publication for every batch currently in AnchorFailed
// status, without rebuilding their Merkle trees (§4.9: "the batch remains
// and can be retried without rebuilding").
func (s *Service) Retry(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.batches {
		b := &s.batches[i]
		if b.Status != domain.AnchorFailed {
			continue
		}
		leaves := make([]merkletree.Leaf, len(b.tree.Leaves))
		copy(leaves, b.tree.Leaves)

		ref, err := s.Publisher.Publish(ctx, b.AnchorBatch, leaves)
		if err != nil {
			metrics.IncAnchorBatch(string(domain.AnchorFailed))
			continue
		}
		b.Status = domain.AnchorAnchored
		b.ExternalReference = ref
		metrics.IncAnchorBatch(string(domain.AnchorAnchored))
	}
	return nil
}

// Batches returns a snapshot of every recorded batch, most recent last.
func (s *Service) Batches() []domain.AnchorBatch {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.AnchorBatch, len(s.batches))
	for i, b := range s.batches {
		out[i] = b.AnchorBatch
	}
	return out
}

// ProofFor locates the batch containing eventID and returns its inclusion
// proof against that batch's Merkle root (§4.9, §4.2).
func (s *Service) ProofFor(eventID string) (merkletree.Proof, domain.AnchorBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.batches {
		for i, leaf := range b.tree.Leaves {
			if leaf.EventID != eventID {
				continue
			}
			proof, err := b.tree.ProofFor(i)
			if err != nil {
				return merkletree.Proof{}, domain.AnchorBatch{}, err
			}
			return proof, b.AnchorBatch, nil
		}
	}
	return merkletree.Proof{}, domain.AnchorBatch{}, fmt.Errorf("anchor: event %s is not in any recorded batch", eventID)
}
