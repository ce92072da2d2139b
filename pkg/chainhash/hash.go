// Package chainhash computes the event_hash field of a ledger event per
// §4.2: SHA-256 of the canonical payload bytes, composed with the previous
// event's hash when one exists. It is deliberately independent of
// pkg/merkletree, which covers the Anchor Service's batch hashing instead.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Hash is a lowercase-hex-encoded SHA-256 digest, compared case-insensitively
// per §3.
type Hash string

// Equal compares two hex hashes case-insensitively.
func (h Hash) Equal(other Hash) bool {
	return strings.EqualFold(string(h), string(other))
}

// Bytes decodes the hex string to raw bytes. This is what the Signer signs
// and verifies — never the hex string itself (§4.3, Open Question 3).
func (h Hash) Bytes() ([]byte, error) {
	b, err := hex.DecodeString(strings.ToLower(string(h)))
	if err != nil {
		return nil, fmt.Errorf("chainhash: invalid hex hash %q: %w", h, err)
	}
	return b, nil
}

func (h Hash) String() string { return string(h) }

// IsZero reports whether h is the empty hash (used for sequence 0's nil
// previous_event_hash).
func (h Hash) IsZero() bool { return h == "" }

// EventHash computes event_hash from the canonical payload bytes and the
// previous event's hash, per §4.2:
//
//	previous == "" : SHA256(canonical_bytes)
//	otherwise      : SHA256(lowercase_hex(previous) || ":" || canonical_bytes)
func EventHash(canonicalPayload []byte, previous Hash) Hash {
	var sum [32]byte
	if previous.IsZero() {
		sum = sha256.Sum256(canonicalPayload)
	} else {
		input := make([]byte, 0, len(previous)+1+len(canonicalPayload))
		input = append(input, []byte(strings.ToLower(string(previous)))...)
		input = append(input, ':')
		input = append(input, canonicalPayload...)
		sum = sha256.Sum256(input)
	}
	return Hash(hex.EncodeToString(sum[:]))
}

// HashBytes is a small helper for hashing arbitrary raw bytes into a
// lowercase-hex Hash.
func HashBytes(data []byte) Hash {
	sum := sha256.Sum256(data)
	return Hash(hex.EncodeToString(sum[:]))
}
