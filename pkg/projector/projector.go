// Package projector implements the Projector (§4.6): a pure, idempotent
// fold over the event stream into the claim/evidence read models the
// Query Layer serves. It is grounded on the wider stack's
// append-then-notify pattern (the audit store's handler-on-append hook)
// generalized into the ledger's own per-event_type dispatch and full
// rebuild-from-sequence-0 support.
package projector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/errs"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore"
)

// EvidenceRecord is one EVIDENCE_ADDED projection row (§4.6, §6).
type EvidenceRecord struct {
	EvidenceID      string    `json:"evidence_id"`
	ClaimID         string    `json:"claim_id"`
	SourceURL       string    `json:"source_url"`
	SourceTitle     string    `json:"source_title"`
	SourceType      string    `json:"source_type"`
	EvidenceType    string    `json:"evidence_type"`
	Summary         string    `json:"summary"`
	SupportsClaim   bool      `json:"supports_claim"`
	ConfidenceScore string    `json:"confidence_score,omitempty"`
	CreatedBy       string    `json:"created_by"`
	CreatedAt       time.Time `json:"created_at"`
}

// Projector holds the in-memory read models built by folding the event
// stream. It is the only writer of these models (§4.6: "Projector writes
// never originate outside the ledger service's notification path").
type Projector struct {
	mu sync.RWMutex

	claims    map[string]domain.Claim
	lifecycle map[string]domain.ClaimLifecycleState
	editors   map[string]domain.Editor
	evidence  map[string][]EvidenceRecord

	lastProcessedSequence int64 // -1 means nothing has been processed yet
}

// New returns an empty Projector, ready to receive events from sequence 0.
func New() *Projector {
	return &Projector{
		claims:                make(map[string]domain.Claim),
		lifecycle:             make(map[string]domain.ClaimLifecycleState),
		editors:               make(map[string]domain.Editor),
		evidence:              make(map[string][]EvidenceRecord),
		lastProcessedSequence: -1,
	}
}

// Apply folds one event into the read models (§4.6). Idempotent given
// sequence_number: reapplying an already-processed sequence is a no-op,
// so replay-from-the-last-checkpoint and at-least-once delivery are both
// safe.
func (p *Projector) Apply(_ context.Context, ev domain.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if int64(ev.SequenceNumber) <= p.lastProcessedSequence {
		return nil // already applied
	}

	switch ev.EventType {
	case domain.EventClaimDeclared:
		p.applyClaimDeclared(ev)
	case domain.EventClaimOperationalized:
		p.applyClaimOperationalized(ev)
	case domain.EventEvidenceAdded:
		p.applyEvidenceAdded(ev)
	case domain.EventClaimResolved:
		p.applyClaimResolved(ev)
	case domain.EventEditorRegistered:
		p.applyEditorRegistered(ev)
	case domain.EventEditorDeactivated:
		p.applyEditorDeactivated(ev)
	default:
		return fmt.Errorf("projector: unrecognized event_type %q", ev.EventType)
	}

	p.lastProcessedSequence = int64(ev.SequenceNumber)
	return nil
}

func (p *Projector) applyClaimDeclared(ev domain.Event) {
	statement, _ := ev.Payload["statement"].(string)
	p.claims[ev.ClaimID] = domain.Claim{
		ClaimID:     ev.ClaimID,
		Status:      domain.ClaimDeclared,
		Statement:   statement,
		CreatedBy:   ev.CreatedBy,
		CreatedAt:   ev.CreatedAt,
		LastUpdated: ev.CreatedAt,
		EventCount:  1,
	}
	p.lifecycle[ev.ClaimID] = domain.LifecycleDeclared
}

func (p *Projector) applyClaimOperationalized(ev domain.Event) {
	c := p.claims[ev.ClaimID]
	c.Status = domain.ClaimOperationalized
	c.LastUpdated = ev.CreatedAt
	c.EventCount++
	p.claims[ev.ClaimID] = c
	p.lifecycle[ev.ClaimID] = domain.LifecycleOperationalized
}

func (p *Projector) applyEvidenceAdded(ev domain.Event) {
	c := p.claims[ev.ClaimID]
	if c.Status == domain.ClaimOperationalized {
		c.Status = domain.ClaimObserving
	}
	c.EvidenceCount++
	c.EventCount++
	c.LastUpdated = ev.CreatedAt
	p.claims[ev.ClaimID] = c

	record := EvidenceRecord{
		EvidenceID:    ev.EventID,
		ClaimID:       ev.ClaimID,
		CreatedBy:     ev.CreatedBy,
		CreatedAt:     ev.CreatedAt,
	}
	record.SourceURL, _ = ev.Payload["source_url"].(string)
	record.SourceTitle, _ = ev.Payload["source_title"].(string)
	record.SourceType, _ = ev.Payload["source_type"].(string)
	record.EvidenceType, _ = ev.Payload["evidence_type"].(string)
	record.Summary, _ = ev.Payload["summary"].(string)
	record.SupportsClaim, _ = ev.Payload["supports_claim"].(bool)
	record.ConfidenceScore, _ = ev.Payload["confidence_score"].(string)
	p.evidence[ev.ClaimID] = append(p.evidence[ev.ClaimID], record)

	// The lifecycle graph does not advance on evidence; "observing" is a
	// view-model label layered on top of the unchanged operationalized
	// lifecycle state.
}

func (p *Projector) applyClaimResolved(ev domain.Event) {
	c := p.claims[ev.ClaimID]
	c.Status = domain.ClaimResolved
	c.EventCount++
	resolvedAt := ev.CreatedAt
	c.ResolvedAt = &resolvedAt
	c.Resolution, _ = ev.Payload["resolution"].(string)
	c.LastUpdated = ev.CreatedAt
	p.claims[ev.ClaimID] = c
	p.lifecycle[ev.ClaimID] = domain.LifecycleResolved
}

func (p *Projector) applyEditorRegistered(ev domain.Event) {
	editorID, _ := ev.Payload["editor_id"].(string)
	username, _ := ev.Payload["username"].(string)
	displayName, _ := ev.Payload["display_name"].(string)
	pubKey, _ := ev.Payload["public_key"].(string)
	role, _ := ev.Payload["role"].(string)

	p.editors[editorID] = domain.Editor{
		EditorID:     editorID,
		Username:     username,
		DisplayName:  displayName,
		Role:         domain.EditorRole(role),
		PublicKeyB64: pubKey,
		IsActive:     true,
		RegisteredAt: ev.CreatedAt,
		RegisteredBy: ev.CreatedBy,
	}
}

func (p *Projector) applyEditorDeactivated(ev domain.Event) {
	editorID, _ := ev.Payload["editor_id"].(string)
	e, ok := p.editors[editorID]
	if !ok {
		return
	}
	e.IsActive = false
	deactivatedAt := ev.CreatedAt
	e.DeactivatedAt = &deactivatedAt
	p.editors[editorID] = e
}

// ClaimLifecycleState implements ledgersvc.LifecycleLookup.
func (p *Projector) ClaimLifecycleState(claimID string) domain.ClaimLifecycleState {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lifecycle[claimID]
}

// GetEditor implements ledgersvc.EditorLookup and registry.Lookup.
func (p *Projector) GetEditor(editorID string) (domain.Editor, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.editors[editorID]
	return e, ok
}

// GetClaim returns the projected claim row, or errs.ErrNotFound.
func (p *Projector) GetClaim(claimID string) (domain.Claim, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	c, ok := p.claims[claimID]
	if !ok {
		return domain.Claim{}, fmt.Errorf("projector: claim %s: %w", claimID, errs.ErrNotFound)
	}
	return c, nil
}

// ListClaims returns a snapshot of every projected claim, unordered; the
// Query Layer applies filter/order/limit on top of this.
func (p *Projector) ListClaims() []domain.Claim {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]domain.Claim, 0, len(p.claims))
	for _, c := range p.claims {
		out = append(out, c)
	}
	return out
}

// EvidenceForClaim returns the evidence rows attached to a claim, in the
// order they were appended.
func (p *Projector) EvidenceForClaim(claimID string) []EvidenceRecord {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]EvidenceRecord, len(p.evidence[claimID]))
	copy(out, p.evidence[claimID])
	return out
}

// LastProcessedSequence returns the sequence number of the most recently
// applied event, or -1 if none has been applied.
func (p *Projector) LastProcessedSequence() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastProcessedSequence
}

// Rebuild implements the full-rebuild operation (§4.6): truncate every
// projection, reset the checkpoint to -1, and replay the entire event
// store in order.
func (p *Projector) Rebuild(ctx context.Context, store eventstore.Store) error {
	p.mu.Lock()
	p.claims = make(map[string]domain.Claim)
	p.lifecycle = make(map[string]domain.ClaimLifecycleState)
	p.editors = make(map[string]domain.Editor)
	p.evidence = make(map[string][]EvidenceRecord)
	p.lastProcessedSequence = -1
	p.mu.Unlock()

	return store.Iterate(ctx, func(ev domain.Event) error {
		return p.Apply(ctx, ev)
	})
}
