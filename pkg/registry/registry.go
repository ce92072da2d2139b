// Package registry implements the Editor Registry (§4.10): a thin,
// read-mostly API over the Projector's editor rows, plus historical
// signature verification against registered keys — public keys never change after EDITOR_REGISTERED, so a signature from a
// now-deactivated editor must still verify against that original key. It
// is grounded on the wider stack's registry pattern (verify-before-trust
// lookups over a projected entry map), generalized from pack publishing
// to editor identity.
package registry

import (
	"fmt"

	"github.com/tedy97123/accountabiltyme/pkg/chainhash"
	"github.com/tedy97123/accountabiltyme/pkg/domain"
	"github.com/tedy97123/accountabiltyme/pkg/errs"
	"github.com/tedy97123/accountabiltyme/pkg/signer"
)

// Lookup resolves editor rows from the Projector's read model.
type Lookup interface {
	GetEditor(editorID string) (domain.Editor, bool)
}

// Registry is the Editor Registry API.
type Registry struct {
	lookup Lookup
}

// New wraps a Lookup (normally *projector.Projector) as a Registry.
func New(lookup Lookup) *Registry {
	return &Registry{lookup: lookup}
}

// GetEditor returns the projected editor row, or errs.ErrNotFound.
func (r *Registry) GetEditor(editorID string) (domain.Editor, error) {
	e, ok := r.lookup.GetEditor(editorID)
	if !ok {
		return domain.Editor{}, fmt.Errorf("registry: editor %s: %w", editorID, errs.ErrNotFound)
	}
	return e, nil
}

// IsActive reports whether editorID is registered and currently active.
func (r *Registry) IsActive(editorID string) bool {
	e, ok := r.lookup.GetEditor(editorID)
	return ok && e.IsActive
}

// VerifySignature checks sigB64 against editorID's registered public key,
// regardless of whether that editor is currently active. Deactivation
// sets is_active=false but never revokes the key (§4.10): a signature on a
// historical event signed before deactivation must remain verifiable.
func (r *Registry) VerifySignature(editorID string, hash chainhash.Hash, sigB64 string) (bool, error) {
	e, ok := r.lookup.GetEditor(editorID)
	if !ok {
		return false, fmt.Errorf("registry: editor %s: %w", editorID, errs.ErrUnknownEntity)
	}
	return signer.Verify(e.PublicKeyB64, hash, sigB64)
}
