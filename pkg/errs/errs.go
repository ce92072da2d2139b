// Package errs defines the ledger's error kinds (§7) as sentinel errors.
// Callers use errors.Is against these to branch on recovery strategy; the
// Ledger Service wraps them with context via fmt.Errorf("...: %w", ...).
package errs

import "errors"

var (
	// ErrValidation means a payload failed its event_type's schema. Reject;
	// caller fixes input.
	ErrValidation = errors.New("validation error")

	// ErrIllegalTransition means the lifecycle graph (§4.5) was violated.
	// Reject; caller chooses the correct command.
	ErrIllegalTransition = errors.New("illegal transition")

	// ErrUnknownEntity means a referenced claim_id or editor_id does not
	// exist in the projections.
	ErrUnknownEntity = errors.New("unknown entity")

	// ErrUnauthorized means the editor is deactivated or unknown.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrHashChainBroken means the tail moved between read and append; the
	// Ledger Service retries internally up to 3 times.
	ErrHashChainBroken = errors.New("hash chain broken")

	// ErrDuplicateEventID means an event_id collision occurred; the caller
	// regenerates the id and retries.
	ErrDuplicateEventID = errors.New("duplicate event id")

	// ErrStorageUnavailable means the backend is down. Surfaced; caller
	// decides.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrLedgerCorruption means chain verification failed. Fatal; writes
	// stop until an operator marks the ledger recovered.
	ErrLedgerCorruption = errors.New("ledger corruption")

	// ErrSignatureInvalid means a signature failed verification on read or
	// in a bundle; the artifact is flagged TAMPERED.
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrNotFound means a lookup (event, editor, claim) found nothing.
	ErrNotFound = errors.New("not found")
)
