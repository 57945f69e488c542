package driven

import (
	"context"
	"errors"
	"time"

	"github.com/securevault/securevault/internal/domain/model"
)

// ErrNotFound is returned by store operations when no record exists for the
// given credential id.
var ErrNotFound = errors.New("credential not found")

// CredentialStore defines the driven port for durable credential storage.
// It performs no cryptography; callers supply already-encrypted material.
type CredentialStore interface {
	// Create inserts a new credential and returns it with its assigned id
	// and timestamps populated.
	Create(ctx context.Context, siteName, siteURL, username string, password model.CipherText) (model.Credential, error)

	// GetByID retrieves a single credential. Returns ErrNotFound if the id
	// is unknown.
	GetByID(ctx context.Context, id int64) (model.Credential, error)

	// GetAll returns every stored credential, newest first.
	GetAll(ctx context.Context) ([]model.Credential, error)

	// Update applies the non-nil fields of upd and returns the post-update
	// record. A password replacement always writes the full ciphertext
	// triple. Returns ErrNotFound if the id is unknown.
	Update(ctx context.Context, id int64, upd model.CredentialUpdate) (model.Credential, error)

	// Delete removes a credential. Returns ErrNotFound if the id is unknown.
	Delete(ctx context.Context, id int64) error

	// SetBreachStatus records a scan outcome for a credential, stamping
	// last_scanned with scannedAt.
	SetBreachStatus(ctx context.Context, id int64, status model.BreachStatus, scannedAt time.Time) error

	// SetPwnedCount records a password-scan hit count and derives the breach
	// status from it: count > 0 means compromised, otherwise safe.
	SetPwnedCount(ctx context.Context, id int64, count int, scannedAt time.Time) error
}
