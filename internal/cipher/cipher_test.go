package cipher

import (
	"encoding/base64"
	"testing"
)

func TestDeriveKeyLength(t *testing.T) {
	key := DeriveKey("tSdGtmwh49BcR1irt18mxG41dGsBuGKS")
	if len(key) != 16 {
		t.Fatalf("Expected 16-byte key, got %d bytes", len(key))
	}

	// Different secrets must yield different keys.
	other := DeriveKey("another-secret")
	if string(key) == string(other) {
		t.Fatal("Expected distinct keys for distinct secrets")
	}
}

func TestEncryptIsDeterministic(t *testing.T) {
	c := NewCodec("test-secret")

	a, err := c.Encrypt("2025-12-20 00:00:00")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	b, err := c.Encrypt("2025-12-20 00:00:00")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if a != b {
		t.Fatalf("Expected deterministic ciphertext, got %q and %q", a, b)
	}
}

func TestRoundTrip(t *testing.T) {
	c := NewCodec("test-secret")

	token, err := c.Encrypt(`["hello", 1, 2]`)
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	value, ok := c.Decrypt(token)
	if !ok {
		t.Fatal("Decrypt reported failure for valid ciphertext")
	}

	list, ok := value.([]any)
	if !ok {
		t.Fatalf("Expected decrypted list, got %T", value)
	}
	if len(list) != 3 || list[0] != "hello" {
		t.Fatalf("Unexpected decrypted value: %v", list)
	}
}

func TestDecryptFailures(t *testing.T) {
	c := NewCodec("test-secret")

	cases := []struct {
		name  string
		input string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"empty", ""},
		{"not block aligned", base64.StdEncoding.EncodeToString([]byte("short"))},
		{"garbage blocks", base64.StdEncoding.EncodeToString(make([]byte, 32))},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, ok := c.Decrypt(tc.input); ok {
				t.Fatalf("Expected decode failure for %q", tc.input)
			}
		})
	}
}

func TestDecryptStringRoundTrip(t *testing.T) {
	c := NewCodec("test-secret")

	token, err := c.Encrypt("2025-12-20 00:00:00")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}

	plaintext, ok := c.DecryptString(token)
	if !ok {
		t.Fatal("DecryptString reported failure for valid ciphertext")
	}
	if plaintext != "2025-12-20 00:00:00" {
		t.Fatalf("Unexpected plaintext: %q", plaintext)
	}
}

func TestDecryptRejectsNonJSONPlaintext(t *testing.T) {
	c := NewCodec("test-secret")

	token, err := c.Encrypt("not json at all")
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if _, ok := c.Decrypt(token); ok {
		t.Fatal("Expected decode failure for non-JSON plaintext")
	}
}

func TestWrongKeyFailsDecode(t *testing.T) {
	a := NewCodec("secret-a")
	b := NewCodec("secret-b")

	token, err := a.Encrypt(`{"k": 1}`)
	if err != nil {
		t.Fatalf("Encrypt returned error: %v", err)
	}
	if _, ok := b.Decrypt(token); ok {
		t.Fatal("Expected decode failure with mismatched key")
	}
}
