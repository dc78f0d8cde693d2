package services

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"os"
)

// Message bodies are encrypted at rest with AES-256-GCM. The key is
// derived from MESSAGE_ENCRYPTION_SECRET; the default only exists so
// development works out of the box.
const defaultEncryptionSecret = "educore-dev-message-secret"

var ErrDecryptFailed = errors.New("message decryption failed")

// DeriveKey maps a shared secret to a fixed-length AES-256 key.
func DeriveKey(secret string) []byte {
	sum := sha256.Sum256([]byte(secret))
	return sum[:]
}

func messageKey() []byte {
	secret := os.Getenv("MESSAGE_ENCRYPTION_SECRET")
	if secret == "" {
		secret = defaultEncryptionSecret
	}
	return DeriveKey(secret)
}

// EncryptWithKey seals plaintext with a fresh nonce and returns a single
// base64 blob of nonce||ciphertext||tag.
func EncryptWithKey(plaintext string, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesgcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	sealed := aesgcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptWithKey is the inverse of EncryptWithKey. A blob that fails to
// decode or authenticate yields ErrDecryptFailed, never garbage.
func DecryptWithKey(blob string, key []byte) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", ErrDecryptFailed
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	if len(sealed) < aesgcm.NonceSize() {
		return "", ErrDecryptFailed
	}

	nonce, ciphertext := sealed[:aesgcm.NonceSize()], sealed[aesgcm.NonceSize():]
	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrDecryptFailed
	}
	return string(plaintext), nil
}

// EncryptMessage encrypts with the server-wide message key.
func EncryptMessage(plaintext string) (string, error) {
	return EncryptWithKey(plaintext, messageKey())
}

// DecryptMessage decrypts with the server-wide message key.
func DecryptMessage(blob string) (string, error) {
	return DecryptWithKey(blob, messageKey())
}
