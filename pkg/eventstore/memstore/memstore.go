// Package memstore is the in-memory Event Store implementation (§4.4):
// an ordered slice guarded by a single append mutex, with secondary
// indices by event_id and claim_id. It is grounded on the audit log
// pattern in the wider stack (mutex-guarded slice + id/hash indices,
// handler notification on append) but sheds the free-form entry-type
// model for the ledger's fixed six event types.
//
// The claim_id index is sharded across a fixed number of buckets using
// murmur3, so that lookups on a large ledger with many distinct claims
// don't serialize on one giant map under the read lock.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/spaolacci/murmur3"

	"github.com/tedy97123/accountabiltyme/pkg/canon"
	"github.com/tedy97123/accountabiltyme/pkg/chainhash"
	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/errs"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore"
)

const claimShardCount = 16

// Store is the in-memory Event Store.
type Store struct {
	mu         sync.RWMutex
	events     []domain.Event
	byEventID  map[string]int // event_id -> index into events
	claimShard [claimShardCount]map[string][]int
	tailHash   chainhash.Hash
}

// New creates an empty in-memory Event Store.
func New() *Store {
	s := &Store{
		byEventID: make(map[string]int),
	}
	for i := range s.claimShard {
		s.claimShard[i] = make(map[string][]int)
	}
	return s
}

func claimShard(claimID string) uint32 {
	return murmur3.Sum32([]byte(claimID)) % claimShardCount
}

// Append implements eventstore.Store.
func (s *Store) Append(_ context.Context, ev domain.Event) (domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEventID[ev.EventID]; exists {
		return domain.Event{}, fmt.Errorf("memstore: event_id %s already appended: %w", ev.EventID, errs.ErrDuplicateEventID)
	}
	if !chainhash.Hash(ev.PreviousEventHash).Equal(s.tailHash) {
		return domain.Event{}, fmt.Errorf("memstore: previous_event_hash %q does not match tail %q: %w", ev.PreviousEventHash, s.tailHash, errs.ErrHashChainBroken)
	}

	ev.SequenceNumber = uint64(len(s.events))
	idx := len(s.events)
	s.events = append(s.events, ev.Clone())
	s.byEventID[ev.EventID] = idx

	if ev.ClaimID != "" {
		shard := claimShard(ev.ClaimID)
		s.claimShard[shard][ev.ClaimID] = append(s.claimShard[shard][ev.ClaimID], idx)
	}

	s.tailHash = chainhash.Hash(ev.EventHash)
	return s.events[idx].Clone(), nil
}

// Get implements eventstore.Store.
func (s *Store) Get(_ context.Context, eventID string) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.byEventID[eventID]
	if !ok {
		return domain.Event{}, fmt.Errorf("memstore: event %s: %w", eventID, errs.ErrNotFound)
	}
	return s.events[idx].Clone(), nil
}

// GetBySequence implements eventstore.Store.
func (s *Store) GetBySequence(_ context.Context, seq uint64) (domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if seq >= uint64(len(s.events)) {
		return domain.Event{}, fmt.Errorf("memstore: sequence %d: %w", seq, errs.ErrNotFound)
	}
	return s.events[seq].Clone(), nil
}

// Range implements eventstore.Store.
func (s *Store) Range(_ context.Context, start, end uint64) ([]domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := uint64(len(s.events))
	if n == 0 || start > end {
		return nil, nil
	}
	if end >= n {
		end = n - 1
	}
	if start >= n {
		return nil, nil
	}
	out := make([]domain.Event, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, s.events[i].Clone())
	}
	return out, nil
}

// Tail implements eventstore.Store.
func (s *Store) Tail(_ context.Context) (domain.Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.events) == 0 {
		return domain.Event{}, false, nil
	}
	return s.events[len(s.events)-1].Clone(), true, nil
}

// Count implements eventstore.Store.
func (s *Store) Count(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return uint64(len(s.events)), nil
}

// Iterate implements eventstore.Store.
func (s *Store) Iterate(_ context.Context, fn func(domain.Event) error) error {
	s.mu.RLock()
	snapshot := make([]domain.Event, len(s.events))
	for i, e := range s.events {
		snapshot[i] = e.Clone()
	}
	s.mu.RUnlock()

	for _, e := range snapshot {
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

// EventsByClaim returns all events for a claim_id using the sharded index,
// in ascending sequence order. This is the fast path RangeByClaim's
// portable fallback exists for.
func (s *Store) EventsByClaim(claimID string) []domain.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	shard := claimShard(claimID)
	idxs := s.claimShard[shard][claimID]
	out := make([]domain.Event, 0, len(idxs))
	for _, i := range idxs {
		out = append(out, s.events[i].Clone())
	}
	return out
}

// VerifyChain implements eventstore.Store.
func (s *Store) VerifyChain(_ context.Context) (eventstore.ChainStatus, error) {
	s.mu.RLock()
	snapshot := make([]domain.Event, len(s.events))
	for i, e := range s.events {
		snapshot[i] = e.Clone()
	}
	s.mu.RUnlock()

	status := eventstore.ChainStatus{Valid: true, EventCount: uint64(len(snapshot))}
	var prev chainhash.Hash
	for i, e := range snapshot {
		if !chainhash.Hash(e.PreviousEventHash).Equal(prev) {
			seq := uint64(i)
			status.Valid = false
			status.FailedAtSequence = &seq
			return status, nil
		}

		canonical, err := canon.Canonicalize(e.Payload)
		if err != nil {
			seq := uint64(i)
			status.Valid = false
			status.FailedAtSequence = &seq
			return status, nil
		}
		recomputed := chainhash.EventHash(canonical, prev)
		if !recomputed.Equal(chainhash.Hash(e.EventHash)) {
			seq := uint64(i)
			status.Valid = false
			status.FailedAtSequence = &seq
			return status, nil
		}

		prev = chainhash.Hash(e.EventHash)
		status.LastEventHash = e.EventHash
	}
	return status, nil
}
