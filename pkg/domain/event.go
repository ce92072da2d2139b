// Package domain holds the ledger's core data model (§3) and the
// payload-validation rules the Ledger Service enforces before an event is
// hashed and signed (§6). It has no knowledge of storage, hashing
// mechanics, or transport — those live in sibling packages.
package domain

import "time"

// EventType enumerates the six event types the ledger recognizes (§3).
type EventType string

const (
	EventClaimDeclared       EventType = "CLAIM_DECLARED"
	EventClaimOperationalized EventType = "CLAIM_OPERATIONALIZED"
	EventEvidenceAdded       EventType = "EVIDENCE_ADDED"
	EventClaimResolved       EventType = "CLAIM_RESOLVED"
	EventEditorRegistered    EventType = "EDITOR_REGISTERED"
	EventEditorDeactivated   EventType = "EDITOR_DEACTIVATED"
)

// Valid reports whether t is one of the six recognized event types.
func (t EventType) Valid() bool {
	switch t {
	case EventClaimDeclared, EventClaimOperationalized, EventEvidenceAdded,
		EventClaimResolved, EventEditorRegistered, EventEditorDeactivated:
		return true
	default:
		return false
	}
}

// IsClaimRelated reports whether events of this type require a claim_id.
func (t EventType) IsClaimRelated() bool {
	switch t {
	case EventClaimDeclared, EventClaimOperationalized, EventEvidenceAdded, EventClaimResolved:
		return true
	default:
		return false
	}
}

// Event is the atomic, immutable unit of the ledger (§3).
type Event struct {
	EventID            string                 `json:"event_id"`
	SequenceNumber     uint64                 `json:"sequence_number"`
	EventType          EventType              `json:"event_type"`
	ClaimID            string                 `json:"claim_id,omitempty"`
	Payload            map[string]interface{} `json:"payload"`
	PreviousEventHash  string                 `json:"previous_event_hash,omitempty"`
	EventHash          string                 `json:"event_hash"`
	CreatedBy          string                 `json:"created_by"`
	CreatedAt          time.Time              `json:"created_at"`
	EditorSignature    string                 `json:"editor_signature"`
}

// Clone returns a deep-enough copy of e for safe return-by-value across the
// store/projector boundary (payload maps are cloned shallowly, which is
// sufficient since payloads are never mutated in place after append).
func (e Event) Clone() Event {
	clonedPayload := make(map[string]interface{}, len(e.Payload))
	for k, v := range e.Payload {
		clonedPayload[k] = v
	}
	e.Payload = clonedPayload
	return e
}
