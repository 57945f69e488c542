package model

import "time"

// Credential is a single stored site/username/password entry. The password
// exists only as the encrypted CipherText triple; plaintext is never
// persisted and only materializes inside a single decrypt-and-use operation.
type Credential struct {
	ID           int64
	SiteName     string
	SiteURL      string
	Username     string
	Password     CipherText
	BreachStatus BreachStatus
	PwnedCount   int
	LastScanned  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CipherText is the durable representation of an encrypted password:
// AES-256-GCM ciphertext, IV, and authentication tag, each hex-encoded.
// The three values are produced by one encryption and are only ever written
// together; replacing a password replaces the whole triple.
type CipherText struct {
	Ciphertext string
	IV         string
	AuthTag    string
}

// CredentialDraft carries the validated plaintext fields for creating a new
// credential. The caller encrypts Password before it reaches any store.
type CredentialDraft struct {
	SiteName string
	SiteURL  string
	Username string
	Password string
}

// CredentialUpdate is a partial update of a credential's stored fields.
// Nil pointers leave the corresponding column untouched. Password can only
// be replaced as a complete triple.
type CredentialUpdate struct {
	SiteName *string
	SiteURL  *string
	Username *string
	Password *CipherText
}
