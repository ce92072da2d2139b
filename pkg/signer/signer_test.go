package signer

import (
	"testing"

	"github.com/tedy97123/accountabiltyme/pkg/chainhash"
)

func TestSignVerify_RoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	s := NewSigner(kp)

	h := chainhash.EventHash([]byte(`{"a":1}`), "")
	sig, err := s.Sign(h)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	ok, err := Verify(kp.PublicKeyB64, h, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected signature to verify")
	}
}

func TestVerify_TamperedHashFailsSignature(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	s := NewSigner(kp)

	h := chainhash.EventHash([]byte(`{"a":1}`), "")
	sig, err := s.Sign(h)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	tampered := chainhash.EventHash([]byte(`{"a":2}`), "")
	ok, err := Verify(kp.PublicKeyB64, tampered, sig)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("signature must not verify against a different hash")
	}
}

func TestLoadKeyPair_RoundTrip(t *testing.T) {
	kp, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	loaded, err := LoadKeyPair(kp.PrivateKeyB64)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if loaded.PublicKeyB64 != kp.PublicKeyB64 {
		t.Fatal("loaded public key does not match original")
	}
}

func TestNewSystemSigner_EphemeralWhenNoKeySupplied(t *testing.T) {
	s, err := NewSystemSigner("", nil)
	if err != nil {
		t.Fatalf("new system signer: %v", err)
	}
	if !s.Ephemeral {
		t.Fatal("expected ephemeral system signer when no key supplied")
	}
}
