package domain

import "time"

// ClaimStatus is the projected lifecycle state of a claim (§3, §4.6).
// "observing" is never emitted as its own event; it is a pure view-model
// state computed by the Projector (§9 Open Question 2).
type ClaimStatus string

const (
	ClaimDeclared       ClaimStatus = "declared"
	ClaimOperationalized ClaimStatus = "operationalized"
	ClaimObserving       ClaimStatus = "observing"
	ClaimResolved        ClaimStatus = "resolved"
)

// Claim is the projected, denormalized read-model for a claim (§3).
type Claim struct {
	ClaimID       string      `json:"claim_id"`
	Status        ClaimStatus `json:"status"`
	Statement     string      `json:"statement,omitempty"`
	CreatedBy     string      `json:"created_by"`
	CreatedAt     time.Time   `json:"created_at"`
	LastUpdated   time.Time   `json:"last_updated"`
	ResolvedAt    *time.Time  `json:"resolved_at,omitempty"`
	Resolution    string      `json:"resolution,omitempty"`
	EvidenceCount int         `json:"evidence_count"`
	EventCount    int         `json:"event_count"`
}

// AnchorBatchStatus is the lifecycle state of a Merkle anchor batch (§3,
// §4.9).
type AnchorBatchStatus string

const (
	AnchorPending  AnchorBatchStatus = "pending"
	AnchorAnchored AnchorBatchStatus = "anchored"
	AnchorFailed   AnchorBatchStatus = "failed"
)

// AnchorBatch records one Merkle-anchored contiguous range of events.
type AnchorBatch struct {
	BatchID          string            `json:"batch_id"`
	StartSequence    uint64            `json:"start_sequence"`
	EndSequence      uint64            `json:"end_sequence"`
	MerkleRoot       string            `json:"merkle_root"`
	Status           AnchorBatchStatus `json:"status"`
	ExternalReference string           `json:"external_reference,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}
