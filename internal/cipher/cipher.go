// Package cipher implements the symmetric codec used by the weibotop API.
// The remote expects deterministic AES-ECB with PKCS#7 padding and no IV;
// any deviation makes it reject the request.
package cipher

import (
	"bytes"
	"crypto/aes"
	"crypto/sha1"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// DeriveKey derives the 16-byte AES key from the shared secret: the first
// 32 hex characters of the secret's SHA-1 digest, decoded to bytes. A
// decode failure falls back to an all-zero key.
func DeriveKey(secret string) []byte {
	sum := sha1.Sum([]byte(secret))
	keyHex := hex.EncodeToString(sum[:])[:32]
	key, err := hex.DecodeString(keyHex)
	if err != nil {
		return make([]byte, 16)
	}
	return key
}

// Codec encrypts and decrypts short strings and JSON payloads with a key
// derived from a shared secret.
type Codec struct {
	key []byte
}

func NewCodec(secret string) *Codec {
	return &Codec{key: DeriveKey(secret)}
}

// Encrypt returns the base64 AES-ECB ciphertext of plaintext. Encryption is
// deterministic: the same plaintext always yields the same token.
func (c *Codec) Encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", fmt.Errorf("cipher: failed to initialize AES: %w", err)
	}

	padded := pad([]byte(plaintext), aes.BlockSize)
	encrypted := make([]byte, len(padded))
	for i := 0; i < len(padded); i += aes.BlockSize {
		block.Encrypt(encrypted[i:i+aes.BlockSize], padded[i:i+aes.BlockSize])
	}

	return base64.StdEncoding.EncodeToString(encrypted), nil
}

// Decrypt decodes a base64 ciphertext token and unmarshals the plaintext as
// JSON. It never fails outward: malformed base64, bad padding, non-UTF8 or
// non-JSON plaintext all report ok=false, which callers treat as "no data".
func (c *Codec) Decrypt(ciphertext string) (any, bool) {
	plaintext, ok := c.DecryptString(ciphertext)
	if !ok {
		return nil, false
	}

	var value any
	if err := json.Unmarshal([]byte(plaintext), &value); err != nil {
		return nil, false
	}
	return value, true
}

// DecryptString decodes a base64 ciphertext token into its UTF-8 plaintext
// without interpreting it as JSON.
func (c *Codec) DecryptString(ciphertext string) (string, bool) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", false
	}
	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", false
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", false
	}

	decrypted := make([]byte, len(raw))
	for i := 0; i < len(raw); i += aes.BlockSize {
		block.Decrypt(decrypted[i:i+aes.BlockSize], raw[i:i+aes.BlockSize])
	}

	plaintext, ok := unpad(decrypted, aes.BlockSize)
	if !ok {
		return "", false
	}
	if !utf8.Valid(plaintext) {
		return "", false
	}
	return string(plaintext), true
}

// pad applies PKCS#7 padding up to blockSize.
func pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

// unpad strips and validates PKCS#7 padding.
func unpad(data []byte, blockSize int) ([]byte, bool) {
	if len(data) == 0 || len(data)%blockSize != 0 {
		return nil, false
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, false
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, false
		}
	}
	return data[:len(data)-n], true
}
