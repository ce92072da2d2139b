// Package ledgersvc implements the Ledger Service (§4.5): the single
// orchestrator through which every command flows — validate, lifecycle
// check, authorize, hash, sign, append, notify. It is grounded on the
// wider stack's append-path shape (acquire tail, compute a chained hash,
// insert, report) but generalizes it with the retry-on-race and
// fatal-halt-on-corruption semantics this ledger specifically requires.
package ledgersvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tedy97123/accountabiltyme/pkg/canon"
	"github.com/tedy97123/accountabiltyme/pkg/chainhash"
	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/errs"
	"github.com/tedy97123/accountabiltyme/pkg/eventstore"
	"github.com/tedy97123/accountabiltyme/pkg/metrics"
	"github.com/tedy97123/accountabiltyme/pkg/signer"
)

// maxHashChainRetries bounds the retry loop for a moved tail (§4.5 step 6).
const maxHashChainRetries = 3

// EditorLookup resolves registered editors for authorization checks. The
// Editor Registry (§4.10) implements this; ledgersvc depends only on the
// interface to avoid an import cycle back to pkg/registry.
type EditorLookup interface {
	GetEditor(editorID string) (domain.Editor, bool)
}

// LifecycleLookup resolves a claim's current projected lifecycle state.
// The Projector (§4.6) implements this.
type LifecycleLookup interface {
	ClaimLifecycleState(claimID string) domain.ClaimLifecycleState
}

// Notifier is the synchronous post-append hook (§4.5 step 7, §5: "updated
// synchronously before a write-command returns"). The Projector implements
// this.
type Notifier interface {
	Apply(ctx context.Context, ev domain.Event) error
}

// Command is one ingress command (§6): a payload plus the authenticated
// editor submitting it and the signer holding that editor's (or the
// system's) private key.
type Command struct {
	EventType domain.EventType
	ClaimID   string // empty for CLAIM_DECLARED (a fresh id is generated) and editor commands
	Payload   map[string]interface{}
	EditorID  string
	Signer    *signer.Signer
}

// Result is what a successful command returns to its caller (§6).
type Result struct {
	EventID        string
	EventHash      string
	SequenceNumber uint64
	ClaimID        string
}

// IntegrityStatus is the result of a verify_chain pass (§4.7 get_integrity).
type IntegrityStatus struct {
	Valid            bool    `json:"ledger_integrity_valid"`
	EventCount       uint64  `json:"event_count"`
	LastEventHash    string  `json:"last_event_hash"`
	FailedAtSequence *uint64 `json:"failed_at_sequence,omitempty"`
}

// Service is the Ledger Service.
type Service struct {
	Store     eventstore.Store
	Editors   EditorLookup
	Lifecycle LifecycleLookup
	Projector Notifier
	System    *signer.SystemSigner
	Logger    *slog.Logger

	corrupted atomic.Bool
}

// New builds a Service. logger may be nil, in which case a discarding
// logger is used.
func New(store eventstore.Store, editors EditorLookup, lifecycle LifecycleLookup, projector Notifier, system *signer.SystemSigner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
	}
	return &Service{
		Store:     store,
		Editors:   editors,
		Lifecycle: lifecycle,
		Projector: projector,
		System:    system,
		Logger:    logger,
	}
}

// Submit runs one command through the full pipeline (§4.5).
func (s *Service) Submit(ctx context.Context, cmd Command) (Result, error) {
	start := time.Now()
	metrics.Init()

	if s.corrupted.Load() {
		return Result{}, fmt.Errorf("ledgersvc: ledger halted pending operator recovery: %w", errs.ErrLedgerCorruption)
	}

	if !cmd.EventType.Valid() {
		return Result{}, fmt.Errorf("ledgersvc: unrecognized event_type %q: %w", cmd.EventType, errs.ErrValidation)
	}
	if err := domain.ValidatePayload(cmd.EventType, cmd.Payload); err != nil {
		return Result{}, fmt.Errorf("ledgersvc: %w: %w", errs.ErrValidation, err)
	}

	claimID := cmd.ClaimID
	if cmd.EventType == domain.EventClaimDeclared {
		claimID = uuid.NewString()
	} else if cmd.EventType.IsClaimRelated() && claimID == "" {
		return Result{}, fmt.Errorf("ledgersvc: claim_id is required for %s: %w", cmd.EventType, errs.ErrValidation)
	}

	if cmd.EventType.IsClaimRelated() {
		current := s.Lifecycle.ClaimLifecycleState(claimID)
		if cmd.EventType != domain.EventClaimDeclared && current == domain.LifecycleNone {
			return Result{}, fmt.Errorf("ledgersvc: claim %s: %w", claimID, errs.ErrUnknownEntity)
		}
		if _, err := domain.NextLifecycleState(current, cmd.EventType); err != nil {
			return Result{}, fmt.Errorf("ledgersvc: claim %s: %w", claimID, err)
		}
	}

	switch cmd.EventType {
	case domain.EventEditorRegistered:
		targetID, _ := cmd.Payload["editor_id"].(string)
		if _, exists := s.Editors.GetEditor(targetID); exists {
			return Result{}, fmt.Errorf("ledgersvc: editor %s is already registered; public keys are immutable: %w", targetID, errs.ErrValidation)
		}
	case domain.EventEditorDeactivated:
		targetID, _ := cmd.Payload["editor_id"].(string)
		if _, exists := s.Editors.GetEditor(targetID); !exists {
			return Result{}, fmt.Errorf("ledgersvc: editor %s: %w", targetID, errs.ErrUnknownEntity)
		}
	}

	signerKey, err := s.authorize(cmd)
	if err != nil {
		return Result{}, err
	}

	canonicalPayload, err := canon.Canonicalize(cmd.Payload)
	if err != nil {
		return Result{}, fmt.Errorf("ledgersvc: canonicalize payload: %w", err)
	}

	eventID := uuid.NewString()
	var stored domain.Event

	for attempt := 0; ; attempt++ {
		tail, hasTail, err := s.Store.Tail(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("ledgersvc: read tail: %w", err)
		}
		var previous chainhash.Hash
		if hasTail {
			previous = chainhash.Hash(tail.EventHash)
		}

		hash := chainhash.EventHash(canonicalPayload, previous)
		sig, err := signerKey.Sign(hash)
		if err != nil {
			return Result{}, fmt.Errorf("ledgersvc: sign event_hash: %w", err)
		}

		candidate := domain.Event{
			EventID:           eventID,
			EventType:         cmd.EventType,
			ClaimID:           claimID,
			Payload:           cmd.Payload,
			PreviousEventHash: string(previous),
			EventHash:         string(hash),
			CreatedBy:         cmd.EditorID,
			CreatedAt:         time.Now().UTC(),
			EditorSignature:   sig,
		}

		stored, err = s.Store.Append(ctx, candidate)
		if err == nil {
			break
		}
		if errors.Is(err, errs.ErrHashChainBroken) && attempt < maxHashChainRetries {
			metrics.IncHashChainRetry()
			s.Logger.Warn("hash chain moved during append, retrying", "attempt", attempt+1, "event_type", cmd.EventType)
			continue
		}
		if errors.Is(err, errs.ErrDuplicateEventID) && attempt < maxHashChainRetries {
			s.Logger.Warn("event_id collision on append, regenerating and retrying", "attempt", attempt+1, "event_type", cmd.EventType)
			eventID = uuid.NewString()
			continue
		}
		return Result{}, err
	}

	if err := s.Projector.Apply(ctx, stored); err != nil {
		s.Logger.Error("projector failed to apply appended event; projections may now lag", "event_id", stored.EventID, "error", err)
	}

	metrics.IncEventsAppended(string(cmd.EventType))
	metrics.ObserveAppendDuration(time.Since(start))

	return Result{
		EventID:        stored.EventID,
		EventHash:      stored.EventHash,
		SequenceNumber: stored.SequenceNumber,
		ClaimID:        claimID,
	}, nil
}

// authorize resolves which signer.Signer must sign this command's event
// and verifies it is entitled to (§7 Unauthorized).
func (s *Service) authorize(cmd Command) (*signer.Signer, error) {
	if cmd.Signer == nil {
		return nil, fmt.Errorf("ledgersvc: command carries no signer: %w", errs.ErrUnauthorized)
	}

	editor, found := s.Editors.GetEditor(cmd.EditorID)
	if !found {
		// The only legal case of an unknown editor is an EDITOR_REGISTERED
		// command signed by the system signer (the genesis bootstrap); whether
		// other editors are already registered is not checked.
		if cmd.EventType == domain.EventEditorRegistered && s.System != nil && cmd.Signer == s.System.Signer {
			return cmd.Signer, nil
		}
		return nil, fmt.Errorf("ledgersvc: editor %s: %w", cmd.EditorID, errs.ErrUnauthorized)
	}
	if !editor.IsActive {
		return nil, fmt.Errorf("ledgersvc: editor %s is deactivated: %w", cmd.EditorID, errs.ErrUnauthorized)
	}
	if editor.PublicKeyB64 != cmd.Signer.PublicKeyB64 {
		return nil, fmt.Errorf("ledgersvc: signer does not match editor %s's registered key: %w", cmd.EditorID, errs.ErrUnauthorized)
	}
	return cmd.Signer, nil
}

// VerifyIntegrity runs a full-scan verify_chain pass (§4.5, §4.7). A
// failure flips the service into a halted state: further Submit calls fail
// with errs.ErrLedgerCorruption until MarkRecovered is called by an
// operator.
func (s *Service) VerifyIntegrity(ctx context.Context) (IntegrityStatus, error) {
	status, err := s.Store.VerifyChain(ctx)
	if err != nil {
		return IntegrityStatus{}, fmt.Errorf("ledgersvc: verify_chain: %w", err)
	}

	result := IntegrityStatus{
		Valid:            status.Valid,
		EventCount:       status.EventCount,
		LastEventHash:    status.LastEventHash,
		FailedAtSequence: status.FailedAtSequence,
	}

	if !status.Valid {
		metrics.IncVerifyFailure()
		s.corrupted.Store(true)
		s.Logger.Error("ledger corruption detected; halting writes", "failed_at_sequence", *status.FailedAtSequence)
		return result, fmt.Errorf("ledgersvc: chain verification failed at sequence %d: %w", *status.FailedAtSequence, errs.ErrLedgerCorruption)
	}
	return result, nil
}

// MarkRecovered clears the halted-writes state after an operator has
// confirmed and resolved a corruption incident (§4.5, §7).
func (s *Service) MarkRecovered() {
	s.corrupted.Store(false)
}

// Halted reports whether the service is currently refusing writes.
func (s *Service) Halted() bool {
	return s.corrupted.Load()
}
