//go:build property

package chainhash

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestProperty_EventHashIsDeterministic exercises §8 invariant 2: the same
// canonical payload and previous hash always produce the same event_hash.
func TestProperty_EventHashIsDeterministic(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("event_hash is deterministic", prop.ForAll(
		func(payload, previous string) bool {
			a := EventHash([]byte(payload), Hash(previous))
			b := EventHash([]byte(payload), Hash(previous))
			return a == b
		},
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestProperty_EventHashChangesWithPreviousHash exercises §8 invariant 3:
// changing the previous event's hash (holding the payload fixed) changes
// the resulting event_hash, so a tampered predecessor cannot be spliced in
// silently. Previous hashes that differ only in letter case are the same
// hash (EventHash lowercases them), so such pairs are not counted as
// different.
func TestProperty_EventHashChangesWithPreviousHash(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("different previous hashes diverge", prop.ForAll(
		func(payload, p1, p2 string) bool {
			if strings.EqualFold(p1, p2) {
				return true
			}
			a := EventHash([]byte(payload), Hash(p1))
			b := EventHash([]byte(payload), Hash(p2))
			return a != b
		},
		gen.AlphaString(),
		gen.AlphaString(),
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

// TestProperty_HashEqualityIsCaseInsensitive exercises §3's requirement
// that stored hex hashes compare case-insensitively.
func TestProperty_HashEqualityIsCaseInsensitive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("upper and lower hex forms are equal", prop.ForAll(
		func(payload string) bool {
			h := EventHash([]byte(payload), "")
			upper := Hash(toUpper(string(h)))
			return h.Equal(upper)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}

func toUpper(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
