// Package vault implements the cryptography core: deterministic key
// derivation from the master secret and authenticated encryption of
// credential passwords.
package vault

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

const (
	keyLength        = 32      // 256-bit AES key.
	pbkdf2Iterations = 100_000 // Deliberately slow; matches the stored format.

	// kdfSalt is a vault-wide constant, kept for compatibility with the
	// existing on-disk format. A per-vault random salt would be stronger;
	// changing it would make every stored ciphertext undecryptable.
	kdfSalt = "securevault-static-salt"
)

// DeriveKey derives the 256-bit vault key from the master secret and the
// deployment-wide pepper using PBKDF2-SHA256. Identical inputs always yield
// the identical key; that determinism is what lets a password encrypted
// today be decrypted later with the same master secret.
func DeriveKey(masterSecret, pepper string) []byte {
	return pbkdf2.Key([]byte(masterSecret+pepper), []byte(kdfSalt), pbkdf2Iterations, keyLength, sha256.New)
}
