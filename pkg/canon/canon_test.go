package canon

import (
	"encoding/json"
	"testing"
)

func TestCanonicalize_KeyOrderIndependent(t *testing.T) {
	p1 := map[string]interface{}{"b": 2, "a": 1, "c": 3}
	p2 := map[string]interface{}{"c": 3, "a": 1, "b": 2}

	b1, err := Canonicalize(p1)
	if err != nil {
		t.Fatalf("canonicalize p1: %v", err)
	}
	b2, err := Canonicalize(p2)
	if err != nil {
		t.Fatalf("canonicalize p2: %v", err)
	}
	if string(b1) != string(b2) {
		t.Fatalf("expected identical canonical bytes, got %q vs %q", b1, b2)
	}
}

func TestCanonicalize_NullKeysDropped(t *testing.T) {
	withNull := map[string]interface{}{"a": 1, "b": nil}
	withoutB := map[string]interface{}{"a": 1}

	b1, err := Canonicalize(withNull)
	if err != nil {
		t.Fatalf("canonicalize withNull: %v", err)
	}
	b2, err := Canonicalize(withoutB)
	if err != nil {
		t.Fatalf("canonicalize withoutB: %v", err)
	}
	if string(b1) != string(b2) {
		t.Fatalf("null-valued key should hash identically to absent key: %q vs %q", b1, b2)
	}
}

func TestCanonicalize_VersionTagPresent(t *testing.T) {
	b, err := Canonicalize(map[string]interface{}{"z": "last", "a": "first"})
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	got := string(b)
	want := `{"__canon_v":1,"a":"first","z":"last"}`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestCanonicalize_SequenceOrderPreserved(t *testing.T) {
	p := map[string]interface{}{
		"success_conditions": []interface{}{"cond_b", "cond_a"},
	}
	b, err := Canonicalize(p)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"__canon_v":1,"success_conditions":["cond_b","cond_a"]}`
	if string(b) != want {
		t.Fatalf("got %q, want %q", b, want)
	}
}

func TestCanonicalize_DecimalStringsPreserved(t *testing.T) {
	p := map[string]interface{}{"confidence_score": "0.80"}
	b, err := Canonicalize(p)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	want := `{"__canon_v":1,"confidence_score":"0.80"}`
	if string(b) != want {
		t.Fatalf("got %q, want %q (decimal strings must survive verbatim)", b, want)
	}
}

func TestCanonicalize_Idempotent(t *testing.T) {
	p := map[string]interface{}{"b": nil, "a": []interface{}{1, 2, "x"}, "nested": map[string]interface{}{"z": 1, "y": nil}}

	b1, err := Canonicalize(p)
	if err != nil {
		t.Fatalf("first canonicalize: %v", err)
	}

	b2, err := Canonicalize(mustDecode(t, b1))
	if err != nil {
		t.Fatalf("second canonicalize: %v", err)
	}
	if string(b1) != string(b2) {
		t.Fatalf("canonicalize(canonicalize(p)) != canonicalize(p): %q vs %q", b1, b2)
	}
}

func mustDecode(t *testing.T, b []byte) interface{} {
	t.Helper()
	var v interface{}
	if err := json.Unmarshal(b, &v); err != nil {
		t.Fatalf("decode canonical bytes: %v", err)
	}
	return v
}
