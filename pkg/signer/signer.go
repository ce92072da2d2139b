// Package signer implements the Ed25519 signing discipline described in
// §4.3: keys are base64-encoded at rest, and the message signed is always
// the raw 32 bytes of an event_hash digest — never its hex string.
package signer

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"

	"github.com/tedy97123/accountabiltyme/pkg/chainhash"
)

// KeyPair holds an Ed25519 private/public key pair, base64-encoded at rest.
type KeyPair struct {
	PublicKeyB64  string
	PrivateKeyB64 string

	priv ed25519.PrivateKey
	pub  ed25519.PublicKey
}

// GenerateKeyPair creates a fresh Ed25519 keypair.
func GenerateKeyPair() (KeyPair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return KeyPair{}, fmt.Errorf("signer: generate keypair: %w", err)
	}
	return KeyPair{
		PublicKeyB64:  base64.StdEncoding.EncodeToString(pub),
		PrivateKeyB64: base64.StdEncoding.EncodeToString(priv),
		priv:          priv,
		pub:           pub,
	}, nil
}

// LoadKeyPair reconstructs a KeyPair from base64-encoded key material (e.g.
// loaded from LEDGER_SYSTEM_PRIVATE_KEY).
func LoadKeyPair(privB64 string) (KeyPair, error) {
	priv, err := base64.StdEncoding.DecodeString(privB64)
	if err != nil {
		return KeyPair{}, fmt.Errorf("signer: decode private key: %w", err)
	}
	if len(priv) != ed25519.PrivateKeySize {
		return KeyPair{}, fmt.Errorf("signer: private key has wrong size %d", len(priv))
	}
	pk := ed25519.PrivateKey(priv)
	pub := pk.Public().(ed25519.PublicKey)
	return KeyPair{
		PublicKeyB64:  base64.StdEncoding.EncodeToString(pub),
		PrivateKeyB64: privB64,
		priv:          pk,
		pub:           pub,
	}, nil
}

// Signer signs event hashes on behalf of one editor (or the system key).
type Signer struct {
	KeyPair
}

// NewSigner wraps a keypair as a Signer.
func NewSigner(kp KeyPair) *Signer { return &Signer{KeyPair: kp} }

// Sign signs the raw bytes of h and returns a base64-encoded signature.
func (s *Signer) Sign(h chainhash.Hash) (string, error) {
	raw, err := h.Bytes()
	if err != nil {
		return "", err
	}
	sig := ed25519.Sign(s.priv, raw)
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify verifies a base64 signature of h against a base64-encoded public
// key.
func Verify(pubKeyB64 string, h chainhash.Hash, signatureB64 string) (bool, error) {
	pub, err := base64.StdEncoding.DecodeString(pubKeyB64)
	if err != nil {
		return false, fmt.Errorf("signer: decode public key: %w", err)
	}
	if len(pub) != ed25519.PublicKeySize {
		return false, fmt.Errorf("signer: public key has wrong size %d", len(pub))
	}
	sig, err := base64.StdEncoding.DecodeString(signatureB64)
	if err != nil {
		return false, fmt.Errorf("signer: decode signature: %w", err)
	}
	raw, err := h.Bytes()
	if err != nil {
		return false, err
	}
	return ed25519.Verify(ed25519.PublicKey(pub), raw, sig), nil
}

// SystemSigner is the process-wide fallback signer for events not directly
// attributable to a human editor (§4.3). If no key is supplied at startup an
// ephemeral keypair is generated and a warning is logged.
type SystemSigner struct {
	*Signer
	Ephemeral bool
}

// NewSystemSigner builds the system signer. privB64 may be empty, in which
// case an ephemeral keypair is generated.
func NewSystemSigner(privB64 string, logger *slog.Logger) (*SystemSigner, error) {
	if privB64 != "" {
		kp, err := LoadKeyPair(privB64)
		if err != nil {
			return nil, err
		}
		return &SystemSigner{Signer: NewSigner(kp)}, nil
	}

	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	if logger != nil {
		logger.Warn("no system signing key supplied; generated an ephemeral keypair that will not survive a restart")
	}
	return &SystemSigner{Signer: NewSigner(kp), Ephemeral: true}, nil
}
