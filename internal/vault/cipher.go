package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"github.com/securevault/securevault/internal/domain/model"
)

const (
	ivLength  = 12 // 96-bit GCM nonce.
	tagLength = 16 // 128-bit GCM authentication tag.
)

// ErrAuthenticationFailed is returned when a ciphertext's authentication tag
// does not verify. This is the only signal for both a wrong master secret
// and tampered data; callers must treat the two identically.
var ErrAuthenticationFailed = errors.New("authentication failed: wrong master secret or corrupted ciphertext")

// ErrMalformedCiphertext is returned when a stored triple cannot even reach
// the cipher: invalid hex, or an IV/tag of the wrong length.
var ErrMalformedCiphertext = errors.New("malformed ciphertext")

// Encrypt encrypts plaintext with AES-256-GCM under key, generating a fresh
// random 96-bit IV for every call. IV reuse under the same key breaks GCM,
// so the IV is always drawn from crypto/rand, never derived from content.
func Encrypt(plaintext string, key []byte) (model.CipherText, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return model.CipherText{}, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return model.CipherText{}, fmt.Errorf("cipher.NewGCM: %w", err)
	}

	iv := make([]byte, ivLength)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return model.CipherText{}, fmt.Errorf("rand iv: %w", err)
	}

	// Seal produces ciphertext || tag; the tag is stored separately.
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	body := sealed[:len(sealed)-tagLength]
	tag := sealed[len(sealed)-tagLength:]

	return model.CipherText{
		Ciphertext: hex.EncodeToString(body),
		IV:         hex.EncodeToString(iv),
		AuthTag:    hex.EncodeToString(tag),
	}, nil
}

// Decrypt decrypts a stored triple with AES-256-GCM under key. Malformed
// input fails with ErrMalformedCiphertext before reaching the cipher; a tag
// that does not verify fails with ErrAuthenticationFailed.
func Decrypt(ct model.CipherText, key []byte) (string, error) {
	body, err := hex.DecodeString(ct.Ciphertext)
	if err != nil {
		return "", fmt.Errorf("%w: ciphertext: %v", ErrMalformedCiphertext, err)
	}
	iv, err := hex.DecodeString(ct.IV)
	if err != nil {
		return "", fmt.Errorf("%w: iv: %v", ErrMalformedCiphertext, err)
	}
	tag, err := hex.DecodeString(ct.AuthTag)
	if err != nil {
		return "", fmt.Errorf("%w: auth tag: %v", ErrMalformedCiphertext, err)
	}

	if len(iv) != ivLength {
		return "", fmt.Errorf("%w: iv must be %d bytes, got %d", ErrMalformedCiphertext, ivLength, len(iv))
	}
	if len(tag) != tagLength {
		return "", fmt.Errorf("%w: auth tag must be %d bytes, got %d", ErrMalformedCiphertext, tagLength, len(tag))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("cipher.NewGCM: %w", err)
	}

	plaintext, err := gcm.Open(nil, iv, append(body, tag...), nil)
	if err != nil {
		return "", ErrAuthenticationFailed
	}

	return string(plaintext), nil
}
