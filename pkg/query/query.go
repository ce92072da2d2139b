// Package query implements the Query Layer (§4.7): read-only access to
// projections and timelines for adapters outside the core. It never
// writes — all mutation flows through the Ledger Service — and composes
// the Projector, Event Store, and Editor Registry behind small local
// interfaces so this package stays a pure consumer of the others.
package query

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore"
	"github.com/tedy97123/accountabiltyme/pkg/ledgersvc"
	"github.com/tedy97123/accountabiltyme/pkg/projector"
)

// ClaimReader is the subset of *projector.Projector that list_claims and
// get_claim_detail need.
type ClaimReader interface {
	GetClaim(claimID string) (domain.Claim, error)
	ListClaims() []domain.Claim
	EvidenceForClaim(claimID string) []projector.EvidenceRecord
}

// EditorReader is the subset of *registry.Registry that get_editor needs.
type EditorReader interface {
	GetEditor(editorID string) (domain.Editor, error)
}

// IntegrityChecker is the subset of *ledgersvc.Service that get_integrity
// refreshes from.
type IntegrityChecker interface {
	VerifyIntegrity(ctx context.Context) (ledgersvc.IntegrityStatus, error)
}

// claimIndexed is implemented by stores (e.g. memstore.Store) that keep a
// fast secondary index by claim_id; when absent, GetClaimDetail falls back
// to eventstore.RangeByClaim's portable full scan.
type claimIndexed interface {
	EventsByClaim(claimID string) []domain.Event
}

// Order selects list_claims' sort direction over created_at.
type Order string

const (
	OrderCreatedAtAsc  Order = "created_at_asc"
	OrderCreatedAtDesc Order = "created_at_desc"
)

// Filter narrows list_claims (§4.7).
type Filter struct {
	Status    domain.ClaimStatus // zero value matches any status
	CreatedBy string             // zero value matches any editor
}

func (f Filter) matches(c domain.Claim) bool {
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.CreatedBy != "" && c.CreatedBy != f.CreatedBy {
		return false
	}
	return true
}

// ClaimDetail merges a projected claim with its full event timeline and
// evidence rows (§4.7).
type ClaimDetail struct {
	Claim    domain.Claim
	Events   []domain.Event
	Evidence []projector.EvidenceRecord
}

// Query is the Query Layer.
type Query struct {
	claims  ClaimReader
	store   eventstore.Store
	editors EditorReader
	checker IntegrityChecker

	mu     sync.RWMutex
	cached ledgersvc.IntegrityStatus
}

// New builds a Query layer over the given collaborators.
func New(claims ClaimReader, store eventstore.Store, editors EditorReader, checker IntegrityChecker) *Query {
	return &Query{claims: claims, store: store, editors: editors, checker: checker}
}

// ListClaims implements list_claims (§4.7).
func (q *Query) ListClaims(filter Filter, order Order, limit int) []domain.Claim {
	all := q.claims.ListClaims()
	out := make([]domain.Claim, 0, len(all))
	for _, c := range all {
		if filter.matches(c) {
			out = append(out, c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if order == OrderCreatedAtDesc {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// GetClaimDetail implements get_claim_detail (§4.7): the projection fields
// merged with the timeline reconstructed from the event store.
func (q *Query) GetClaimDetail(ctx context.Context, claimID string) (ClaimDetail, error) {
	claim, err := q.claims.GetClaim(claimID)
	if err != nil {
		return ClaimDetail{}, err
	}

	var events []domain.Event
	if ci, ok := q.store.(claimIndexed); ok {
		events = ci.EventsByClaim(claimID)
	} else {
		events, err = eventstore.RangeByClaim(ctx, q.store, claimID)
		if err != nil {
			return ClaimDetail{}, fmt.Errorf("query: reconstruct timeline for claim %s: %w", claimID, err)
		}
	}

	return ClaimDetail{
		Claim:    claim,
		Events:   events,
		Evidence: q.claims.EvidenceForClaim(claimID),
	}, nil
}

// GetEditor implements get_editor (§4.7).
func (q *Query) GetEditor(editorID string) (domain.Editor, error) {
	e, err := q.editors.GetEditor(editorID)
	if err != nil {
		return domain.Editor{}, fmt.Errorf("query: %w", err)
	}
	return e, nil
}

// RefreshIntegrity runs a fresh verify_chain pass and caches the result for
// GetIntegrity. Callers (the Bundle Exporter, or a background ticker) drive
// this; the Query layer itself never schedules it.
func (q *Query) RefreshIntegrity(ctx context.Context) (ledgersvc.IntegrityStatus, error) {
	status, err := q.checker.VerifyIntegrity(ctx)
	q.mu.Lock()
	q.cached = status
	q.mu.Unlock()
	if err != nil {
		return status, err
	}
	return status, nil
}

// GetIntegrity implements get_integrity (§4.7): the last cached chain
// status, event count, and tail hash. It never re-scans; call
// RefreshIntegrity for that.
func (q *Query) GetIntegrity() ledgersvc.IntegrityStatus {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.cached
}
