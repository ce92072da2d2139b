package merkletree

import (
	"strings"
)

// ProofStep is one sibling hash with its position relative to the path
// currently being recomputed (§4.2, §6 egress Merkle proof shape).
type ProofStep struct {
	SiblingHash string `json:"sibling_hash"`
	Side        string `json:"position"` // "L" or "R"
}

// Proof is an inclusion proof for a single leaf against a batch's Merkle
// root.
type Proof struct {
	LeafIndex int         `json:"leaf_index"`
	LeafHash  string      `json:"leaf_hash"`
	Root      string      `json:"merkle_root"`
	Path      []ProofStep `json:"path"`
}

// Verify recomputes the root from LeafHash and Path and compares it against
// Root (or, if expectedRoot is non-empty, against that trusted root).
func (p Proof) Verify(expectedRoot string) bool {
	if expectedRoot != "" && !strings.EqualFold(p.Root, expectedRoot) {
		return false
	}

	current := p.LeafHash
	for _, step := range p.Path {
		if step.Side == "L" {
			current = nodeHash(step.SiblingHash, current)
		} else {
			current = nodeHash(current, step.SiblingHash)
		}
	}
	return strings.EqualFold(current, p.Root)
}
