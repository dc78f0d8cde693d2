package services

import (
	"bytes"
	"encoding/base64"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plaintexts := []string{
		"hello",
		"",
		"a longer message with spaces, punctuation! and ünïcödé 学校",
	}
	for _, plaintext := range plaintexts {
		encrypted, err := EncryptMessage(plaintext)
		if err != nil {
			t.Fatalf("encrypt failed for %q: %v", plaintext, err)
		}
		if encrypted == plaintext && plaintext != "" {
			t.Fatalf("ciphertext equals plaintext for %q", plaintext)
		}

		decrypted, err := DecryptMessage(encrypted)
		if err != nil {
			t.Fatalf("decrypt failed for %q: %v", plaintext, err)
		}
		if decrypted != plaintext {
			t.Fatalf("round trip mismatch: got %q want %q", decrypted, plaintext)
		}
	}
}

func TestEncryptProducesFreshNonce(t *testing.T) {
	a, err := EncryptMessage("same message")
	if err != nil {
		t.Fatal(err)
	}
	b, err := EncryptMessage("same message")
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("two encryptions of the same plaintext produced identical blobs")
	}
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	encrypted, err := EncryptMessage("do not touch")
	if err != nil {
		t.Fatal(err)
	}

	raw, err := base64.StdEncoding.DecodeString(encrypted)
	if err != nil {
		t.Fatal(err)
	}
	// Flip one bit past the nonce so the GCM tag no longer authenticates.
	raw[len(raw)-1] ^= 0x01
	tampered := base64.StdEncoding.EncodeToString(raw)

	if _, err := DecryptMessage(tampered); err == nil {
		t.Fatal("expected decryption of tampered blob to fail")
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	cases := []string{
		"not base64 at all!!!",
		base64.StdEncoding.EncodeToString([]byte("short")),
		"",
	}
	for _, c := range cases {
		if _, err := DecryptMessage(c); err == nil {
			t.Fatalf("expected decrypt to fail for %q", c)
		}
	}
}

func TestDecryptRejectsWrongKey(t *testing.T) {
	keyA := DeriveKey("secret-a")
	keyB := DeriveKey("secret-b")

	encrypted, err := EncryptWithKey("confidential", keyA)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecryptWithKey(encrypted, keyB); err == nil {
		t.Fatal("expected decryption with the wrong key to fail")
	}
}

func TestDeriveKeyDeterministic(t *testing.T) {
	a := DeriveKey("the same secret")
	b := DeriveKey("the same secret")
	c := DeriveKey("a different secret")

	if len(a) != 32 {
		t.Fatalf("expected a 32-byte key, got %d", len(a))
	}
	if !bytes.Equal(a, b) {
		t.Fatal("same secret derived different keys")
	}
	if bytes.Equal(a, c) {
		t.Fatal("different secrets derived the same key")
	}
}
