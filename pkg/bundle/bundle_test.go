package bundle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tedy97123/accountabiltyme/pkg/canon"
	"github.com/tedy97123/accountabiltyme/pkg/chainhash"
	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore/memstore"
	"github.com/tedy97123/accountabiltyme/pkg/ledgersvc"
	"github.com/tedy97123/accountabiltyme/pkg/projector"
	"github.com/tedy97123/accountabiltyme/pkg/query"
	"github.com/tedy97123/accountabiltyme/pkg/registry"
	"github.com/tedy97123/accountabiltyme/pkg/signer"
)

type passThroughChecker struct{ store *memstore.Store }

func (c passThroughChecker) VerifyIntegrity(ctx context.Context) (ledgersvc.IntegrityStatus, error) {
	status, err := c.store.VerifyChain(ctx)
	if err != nil {
		return ledgersvc.IntegrityStatus{}, err
	}
	return ledgersvc.IntegrityStatus{Valid: status.Valid, EventCount: status.EventCount, LastEventHash: status.LastEventHash, FailedAtSequence: status.FailedAtSequence}, nil
}

func buildExporter(t *testing.T) (*Exporter, *memstore.Store, *signer.Signer) {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	p := projector.New()

	kp, err := signer.GenerateKeyPair()
	require.NoError(t, err)
	s := signer.NewSigner(kp)

	appendSigned := func(eventID, claimID string, eventType domain.EventType, payload map[string]interface{}, prev chainhash.Hash) domain.Event {
		canonical, err := canon.Canonicalize(payload)
		require.NoError(t, err)
		hash := chainhash.EventHash(canonical, prev)
		sig, err := s.Sign(hash)
		require.NoError(t, err)
		ev := domain.Event{
			EventID: eventID, EventType: eventType, ClaimID: claimID, Payload: payload,
			PreviousEventHash: string(prev), EventHash: string(hash),
			CreatedBy: "ed1", CreatedAt: time.Now().UTC(), EditorSignature: sig,
		}
		stored, err := store.Append(ctx, ev)
		require.NoError(t, err)
		require.NoError(t, p.Apply(ctx, stored))
		return stored
	}

	e0 := appendSigned("e0", "", domain.EventEditorRegistered, map[string]interface{}{
		"editor_id": "ed1", "username": "alice", "display_name": "Alice", "public_key": kp.PublicKeyB64, "role": "editor",
	}, "")
	e1 := appendSigned("e1", "c1", domain.EventClaimDeclared, map[string]interface{}{"statement": "Median rent will fall"}, chainhash.Hash(e0.EventHash))
	e2 := appendSigned("e2", "c1", domain.EventClaimOperationalized, map[string]interface{}{"outcome_description": "x"}, chainhash.Hash(e1.EventHash))
	e3 := appendSigned("e3", "c1", domain.EventEvidenceAdded, map[string]interface{}{"source_url": "http://x", "summary": "supports the claim", "supports_claim": true}, chainhash.Hash(e2.EventHash))
	appendSigned("e4", "c1", domain.EventClaimResolved, map[string]interface{}{"resolution": "met"}, chainhash.Hash(e3.EventHash))

	reg := registry.New(p)
	q := query.New(p, store, reg, passThroughChecker{store: store})
	return NewExporter(q), store, s
}

func TestExportAndVerify_VerifiedOnCleanChain(t *testing.T) {
	exporter, _, _ := buildExporter(t)
	b, err := exporter.Export(context.Background(), "c1")
	require.NoError(t, err)
	require.True(t, b.Meta.ChainValidAtExport)
	require.Len(t, b.Events, 4)

	result := Verify(b)
	require.Equal(t, Verified, result.Status)
}

func TestExportAndVerify_TamperedPayloadDetected(t *testing.T) {
	exporter, _, _ := buildExporter(t)
	b, err := exporter.Export(context.Background(), "c1")
	require.NoError(t, err)

	b.Events[2].Payload["summary"] = "a completely different story"

	result := Verify(b)
	require.Equal(t, Tampered, result.Status)
	require.Equal(t, b.Events[2].EventID, result.FailedEventID)
}

func TestVerify_MissingEditorIsIncomplete(t *testing.T) {
	exporter, _, _ := buildExporter(t)
	b, err := exporter.Export(context.Background(), "c1")
	require.NoError(t, err)

	delete(b.Editors, "ed1")
	result := Verify(b)
	require.Equal(t, Incomplete, result.Status)
}

func TestVerify_EmptyBundleIsInvalidFormat(t *testing.T) {
	result := Verify(&Bundle{})
	require.Equal(t, InvalidFormat, result.Status)
}

func TestRenderMarkdown_ContainsClaimAndTimeline(t *testing.T) {
	exporter, _, _ := buildExporter(t)
	b, err := exporter.Export(context.Background(), "c1")
	require.NoError(t, err)

	md := RenderMarkdown(b)
	require.Contains(t, md, "# Claim c1")
	require.Contains(t, md, "CLAIM_DECLARED")
	require.Contains(t, md, "alice")
}
