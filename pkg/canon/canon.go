// Package canon provides deterministic, byte-exact serialization of event
// payloads so that two semantically equal payloads hash identically on any
// implementation. It layers two domain rules on top of RFC 8785 JSON
// Canonicalization: null-valued keys are pruned before marshaling so that an
// absent key and an explicit null hash identically, and a version tag is
// woven into the sorted key set rather than special-cased as a prefix. The
// canonical byte production itself is delegated to gowebpki/jcs.
package canon

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Version is the canonicalization scheme version embedded as __canon_v.
const Version = 1

const versionKey = "__canon_v"

// Canonicalize returns the canonical byte representation of v.
//
// v must decode to one of: map[string]interface{}, []interface{}, string,
// number, bool, or nil, possibly nested. A Go struct works too, since
// Canonicalize first round-trips v through encoding/json to normalize it to
// that shape.
func Canonicalize(v interface{}) ([]byte, error) {
	generic, err := toGeneric(v)
	if err != nil {
		return nil, fmt.Errorf("canon: normalize: %w", err)
	}

	pruned := pruneNulls(generic)

	top, ok := pruned.(map[string]interface{})
	if !ok {
		// Top-level non-object payloads still get canonicalized, but the
		// version tag only applies to object payloads per §4.1.
		return jcsMarshal(pruned)
	}
	tagged := make(map[string]interface{}, len(top)+1)
	for k, val := range top {
		tagged[k] = val
	}
	tagged[versionKey] = Version

	return jcsMarshal(tagged)
}

// CanonicalizeString is a convenience wrapper returning the canonical form
// as a string.
func CanonicalizeString(v interface{}) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func jcsMarshal(v interface{}) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canon: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canon: jcs transform: %w", err)
	}
	return canonical, nil
}

func toGeneric(v interface{}) (interface{}, error) {
	intermediate, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(intermediate))
	dec.UseNumber()
	var generic interface{}
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}
	return generic, nil
}

// pruneNulls drops null values and keys whose value is null, recursively.
// Absent keys and null-valued keys must hash identically (§9).
func pruneNulls(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = pruneNulls(val)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(t))
		for i, val := range t {
			out[i] = pruneNulls(val)
		}
		return out
	default:
		return v
	}
}
