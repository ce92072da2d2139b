package anchor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tedy97123/accountabiltyme/pkg/canon"
	"github.com/tedy97123/accountabiltyme/pkg/chainhash"
	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore/memstore"
	"github.com/tedy97123/accountabiltyme/pkg/merkletree"
)

func mustAppend(t *testing.T, s *memstore.Store, eventID string, prev chainhash.Hash) domain.Event {
	t.Helper()
	payload := map[string]interface{}{"statement": eventID}
	canonical, err := canon.Canonicalize(payload)
	require.NoError(t, err)
	hash := chainhash.EventHash(canonical, prev)
	ev := domain.Event{
		EventID:           eventID,
		EventType:         domain.EventClaimDeclared,
		ClaimID:           "c1",
		Payload:           payload,
		PreviousEventHash: string(prev),
		EventHash:         string(hash),
		CreatedBy:         "editor-1",
		CreatedAt:         time.Now().UTC(),
		EditorSignature:   "sig",
	}
	stored, err := s.Append(context.Background(), ev)
	require.NoError(t, err)
	return stored
}

type recordingPublisher struct {
	fail      bool
	published []domain.AnchorBatch
}

func (p *recordingPublisher) Publish(ctx context.Context, batch domain.AnchorBatch, leaves []merkletree.Leaf) (string, error) {
	if p.fail {
		return "", errors.New("publish failed")
	}
	p.published = append(p.published, batch)
	return "witness://" + batch.BatchID, nil
}

func TestRunOnce_BuildsBatchAndPublishes(t *testing.T) {
	store := memstore.New()
	var prev chainhash.Hash
	for i := 0; i < 5; i++ {
		ev := mustAppend(t, store, "e"+string(rune('0'+i)), prev)
		prev = chainhash.Hash(ev.EventHash)
	}

	pub := &recordingPublisher{}
	svc := New(store, pub, 10)

	batch, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, batch)
	require.Equal(t, domain.AnchorAnchored, batch.Status)
	require.Equal(t, uint64(0), batch.StartSequence)
	require.Equal(t, uint64(4), batch.EndSequence)
	require.NotEmpty(t, batch.MerkleRoot)
	require.Len(t, pub.published, 1)

	// Nothing new to anchor.
	again, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Nil(t, again)
}

func TestRunOnce_RespectsBatchSize(t *testing.T) {
	store := memstore.New()
	var prev chainhash.Hash
	for i := 0; i < 5; i++ {
		ev := mustAppend(t, store, "e"+string(rune('0'+i)), prev)
		prev = chainhash.Hash(ev.EventHash)
	}

	svc := New(store, &recordingPublisher{}, 2)

	first, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(0), first.StartSequence)
	require.Equal(t, uint64(1), first.EndSequence)

	second, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(2), second.StartSequence)
	require.Equal(t, uint64(3), second.EndSequence)
}

func TestRunOnce_FailedPublishCanRetryWithoutRebuilding(t *testing.T) {
	store := memstore.New()
	var prev chainhash.Hash
	for i := 0; i < 3; i++ {
		ev := mustAppend(t, store, "e"+string(rune('0'+i)), prev)
		prev = chainhash.Hash(ev.EventHash)
	}

	pub := &recordingPublisher{fail: true}
	svc := New(store, pub, 10)

	batch, err := svc.RunOnce(context.Background())
	require.Error(t, err)
	require.Equal(t, domain.AnchorFailed, batch.Status)
	originalRoot := batch.MerkleRoot

	pub.fail = false
	require.NoError(t, svc.Retry(context.Background()))

	batches := svc.Batches()
	require.Len(t, batches, 1)
	require.Equal(t, domain.AnchorAnchored, batches[0].Status)
	require.Equal(t, originalRoot, batches[0].MerkleRoot, "retry must not rebuild the tree")
	require.NotEmpty(t, batches[0].ExternalReference)
}

func TestProofFor_VerifiesAgainstBatchRoot(t *testing.T) {
	store := memstore.New()
	var prev chainhash.Hash
	var last domain.Event
	for i := 0; i < 4; i++ {
		last = mustAppend(t, store, "e"+string(rune('0'+i)), prev)
		prev = chainhash.Hash(last.EventHash)
	}

	svc := New(store, &recordingPublisher{}, 10)
	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	proof, batch, err := svc.ProofFor(last.EventID)
	require.NoError(t, err)
	require.Equal(t, batch.MerkleRoot, proof.Root)
	require.True(t, proof.Verify(batch.MerkleRoot))
}

func TestProofFor_UnknownEvent(t *testing.T) {
	store := memstore.New()
	mustAppend(t, store, "e0", "")

	svc := New(store, &recordingPublisher{}, 10)
	_, err := svc.RunOnce(context.Background())
	require.NoError(t, err)

	_, _, err = svc.ProofFor("does-not-exist")
	require.Error(t, err)
}

func TestNoopPublisher_ReturnsMerkleRootAsReference(t *testing.T) {
	store := memstore.New()
	mustAppend(t, store, "e0", "")

	svc := New(store, NoopPublisher{}, 10)
	batch, err := svc.RunOnce(context.Background())
	require.NoError(t, err)
	require.Equal(t, batch.MerkleRoot, batch.ExternalReference)
}
