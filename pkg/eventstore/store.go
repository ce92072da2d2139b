// Package eventstore defines the Event Store contract (§4.4): an
// append-only, sequenced log of domain.Event records with a single logical
// appender and many concurrent readers. Two implementations satisfy it: an
// in-memory store (pkg/eventstore/memstore) and a relational store
// (pkg/eventstore/sqlstore) usable against Postgres or SQLite.
package eventstore

import (
	"context"

	"github.com/tedy97123/accountabiltyme/pkg/domain"
)

// ChainStatus is the result of a full-scan verify_chain pass.
type ChainStatus struct {
	Valid            bool
	EventCount       uint64
	FailedAtSequence *uint64
	LastEventHash    string
}

// Store is the Event Store contract. Implementations must guarantee that a
// reader never observes a partially appended event, and that Append is
// atomic with respect to sequence assignment and chain-linkage checking.
type Store interface {
	// Append assigns the next sequence_number and persists ev, after
	// checking that ev.PreviousEventHash matches the store's current tail
	// hash and that ev.EventID has not been used before. The returned event
	// carries the assigned SequenceNumber. Fails with errs.ErrHashChainBroken,
	// errs.ErrDuplicateEventID, or errs.ErrStorageUnavailable.
	Append(ctx context.Context, ev domain.Event) (domain.Event, error)

	// Get returns the event with the given event_id, or errs.ErrNotFound.
	Get(ctx context.Context, eventID string) (domain.Event, error)

	// GetBySequence returns the event at the given sequence_number, or
	// errs.ErrNotFound.
	GetBySequence(ctx context.Context, seq uint64) (domain.Event, error)

	// Range returns events with sequence_number in [start, end], inclusive,
	// in ascending order.
	Range(ctx context.Context, start, end uint64) ([]domain.Event, error)

	// Tail returns the most recently appended event. ok is false on an
	// empty store.
	Tail(ctx context.Context) (ev domain.Event, ok bool, err error)

	// Count returns the number of appended events.
	Count(ctx context.Context) (uint64, error)

	// Iterate calls fn once per event in ascending sequence order, stopping
	// at the first error fn returns.
	Iterate(ctx context.Context, fn func(domain.Event) error) error

	// VerifyChain re-derives every event_hash and checks linkage across the
	// full log, returning the sequence number of the first failure if any.
	VerifyChain(ctx context.Context) (ChainStatus, error)
}

// RangeByClaim returns, via Iterate, all events whose claim_id field equals
// claimID; payload contents are not searched. Implementations may optimize this with a
// claim_id index; the default here is the portable O(n) fallback used by
// stores that don't maintain one.
func RangeByClaim(ctx context.Context, s Store, claimID string) ([]domain.Event, error) {
	var out []domain.Event
	err := s.Iterate(ctx, func(ev domain.Event) error {
		if ev.ClaimID == claimID {
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}
