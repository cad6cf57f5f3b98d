package internal

import (
	"encoding/base64"
	"testing"
)

func TestNewResetTokenEntropyAndEncoding(t *testing.T) {
	seen := make(map[string]struct{}, 64)
	for i := 0; i < 64; i++ {
		tok, err := NewResetToken()
		if err != nil {
			t.Fatalf("NewResetToken error: %v", err)
		}
		raw, err := base64.RawURLEncoding.DecodeString(tok)
		if err != nil {
			t.Fatalf("token is not base64url: %v", err)
		}
		if len(raw) != 32 {
			t.Fatalf("token carries %d bytes, want 32", len(raw))
		}
		if _, dup := seen[tok]; dup {
			t.Fatal("duplicate reset token")
		}
		seen[tok] = struct{}{}
	}
}

func TestDigestResetToken(t *testing.T) {
	// sha256("abc")
	const want = "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got := DigestResetToken("abc"); got != want {
		t.Fatalf("DigestResetToken = %s, want %s", got, want)
	}
	if DigestResetToken("abc") != DigestResetToken("abc") {
		t.Fatal("digest is not deterministic")
	}
	if DigestResetToken("abc") == DigestResetToken("abd") {
		t.Fatal("distinct tokens share a digest")
	}
}
