// Package bundle implements the Bundle Exporter (§4.8): a self-contained,
// independently verifiable export of one claim's full event history, plus
// the verifier a third party with no ledger access can run against it. It
// is grounded on the audit log's export/verify pair (marshal the entry
// slice, hash it, check chain linkage on verify) generalized to the
// ledger's own signature- and editor-key-aware verification classes.
package bundle

import (
	"context"
	"fmt"
	"time"

	"github.com/tedy97123/accountabiltyme/pkg/canon"
	"github.com/tedy97123/accountabiltyme/pkg/chainhash"
	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/query"
	"github.com/tedy97123/accountabiltyme/pkg/signer"
)

// BundleVersion is the exported artifact's own format version, distinct
// from the canonicalization scheme version carried inside it.
const BundleVersion = 1

// SpecVersion identifies the data model version the exporter was built
// against.
const SpecVersion = 1

// Meta is the bundle's `_meta` block (§4.8).
type Meta struct {
	BundleVersion      int       `json:"bundle_version"`
	SpecVersion        int       `json:"spec_version"`
	ExportedAt         time.Time `json:"exported_at"`
	ClaimID            string    `json:"claim_id"`
	ChainValidAtExport bool      `json:"chain_valid_at_export"`
}

// Verification is the bundle's `_verification` block (§4.8).
type Verification struct {
	CanonicalizationVersion int    `json:"canonicalization_version"`
	HashAlgorithm           string `json:"hash_algorithm"`
	SignatureAlgorithm      string `json:"signature_algorithm"`
}

// ClaimSummary is the bundle's `claim` block (§4.8).
type ClaimSummary struct {
	ClaimID    string             `json:"claim_id"`
	Status     domain.ClaimStatus `json:"status"`
	EventCount int                `json:"event_count"`
}

// EditorInfo is one entry of the bundle's `editors` map (§4.8).
type EditorInfo struct {
	PublicKey string `json:"public_key"`
	Username  string `json:"username"`
}

// Bundle is the exported artifact (§4.8).
type Bundle struct {
	Meta         Meta                  `json:"_meta"`
	Verification Verification          `json:"_verification"`
	Claim        ClaimSummary          `json:"claim"`
	Events       []domain.Event        `json:"events"`
	Editors      map[string]EditorInfo `json:"editors"`
}

// Exporter builds bundles from the Query Layer.
type Exporter struct {
	Query *query.Query
}

// NewExporter wraps a Query layer as an Exporter.
func NewExporter(q *query.Query) *Exporter {
	return &Exporter{Query: q}
}

// Export produces a verifiable bundle for claimID (§4.8). It runs a fresh
// integrity check so chain_valid_at_export reflects the chain's state at
// export time, not a stale cached value.
func (e *Exporter) Export(ctx context.Context, claimID string) (*Bundle, error) {
	detail, err := e.Query.GetClaimDetail(ctx, claimID)
	if err != nil {
		return nil, fmt.Errorf("bundle: export claim %s: %w", claimID, err)
	}

	chainValid := false
	if status, err := e.Query.RefreshIntegrity(ctx); err == nil {
		chainValid = status.Valid
	}

	editors := make(map[string]EditorInfo)
	for _, ev := range detail.Events {
		if _, known := editors[ev.CreatedBy]; known {
			continue
		}
		if ed, err := e.Query.GetEditor(ev.CreatedBy); err == nil {
			editors[ev.CreatedBy] = EditorInfo{PublicKey: ed.PublicKeyB64, Username: ed.Username}
		}
	}

	return &Bundle{
		Meta: Meta{
			BundleVersion:      BundleVersion,
			SpecVersion:        SpecVersion,
			ExportedAt:         time.Now().UTC(),
			ClaimID:            claimID,
			ChainValidAtExport: chainValid,
		},
		Verification: Verification{
			CanonicalizationVersion: canon.Version,
			HashAlgorithm:           "SHA-256",
			SignatureAlgorithm:      "Ed25519",
		},
		Claim: ClaimSummary{
			ClaimID:    detail.Claim.ClaimID,
			Status:     detail.Claim.Status,
			EventCount: detail.Claim.EventCount,
		},
		Events:  detail.Events,
		Editors: editors,
	}, nil
}

// Status classifies the outcome of Verify (§4.8).
type Status string

const (
	Verified      Status = "VERIFIED"
	Tampered      Status = "TAMPERED"
	Incomplete    Status = "INCOMPLETE"
	InvalidFormat Status = "INVALID_FORMAT"
)

// Result is the outcome of verifying a bundle.
type Result struct {
	Status       Status
	FailedEventID string
	Reason       string
}

// Verify checks a bundle with no access to the live ledger (§4.8): for
// each event, it recomputes canonical bytes and event_hash from the
// payload and chain linkage, checks linkage between successive events,
// and verifies the signature against the listed editor's public key.
func Verify(b *Bundle) Result {
	if b == nil || len(b.Events) == 0 || b.Verification.HashAlgorithm == "" || b.Verification.SignatureAlgorithm == "" {
		return Result{Status: InvalidFormat, Reason: "bundle is missing required fields or has no events"}
	}

	var prev chainhash.Hash
	for i, ev := range b.Events {
		if i > 0 && !chainhash.Hash(ev.PreviousEventHash).Equal(prev) {
			return Result{Status: Incomplete, FailedEventID: ev.EventID, Reason: "chain linkage broken"}
		}

		canonical, err := canon.Canonicalize(ev.Payload)
		if err != nil {
			return Result{Status: InvalidFormat, FailedEventID: ev.EventID, Reason: "payload does not canonicalize"}
		}
		recomputed := chainhash.EventHash(canonical, chainhash.Hash(ev.PreviousEventHash))
		if !recomputed.Equal(chainhash.Hash(ev.EventHash)) {
			return Result{Status: Tampered, FailedEventID: ev.EventID, Reason: "event_hash does not match recomputed hash"}
		}

		editorInfo, ok := b.Editors[ev.CreatedBy]
		if !ok {
			return Result{Status: Incomplete, FailedEventID: ev.EventID, Reason: "missing editor public key"}
		}

		valid, err := signer.Verify(editorInfo.PublicKey, recomputed, ev.EditorSignature)
		if err != nil || !valid {
			return Result{Status: Tampered, FailedEventID: ev.EventID, Reason: "signature invalid"}
		}

		prev = chainhash.Hash(ev.EventHash)
	}

	return Result{Status: Verified}
}
