// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/securevault/securevault/internal/domain/model"
	"github.com/securevault/securevault/internal/domain/port/driven"
	"github.com/securevault/securevault/internal/vault"
)

const (
	bcryptCost            = 12
	minMasterSecretLength = 8
)

// ErrInvalidInput wraps all validation failures on caller-supplied values.
var ErrInvalidInput = errors.New("invalid input")

// ErrNotConfigured is returned when an operation needs the master config but
// first-run setup has not happened yet.
var ErrNotConfigured = errors.New("vault not initialized")

// ErrInvalidMasterSecret is returned by Verify when the supplied secret does
// not match the stored hash.
var ErrInvalidMasterSecret = errors.New("invalid master password")

// CredentialChange carries the plaintext-level partial update of a
// credential. A non-nil Password triggers a fresh encryption; the stored
// ciphertext triple is then replaced as a whole.
type CredentialChange struct {
	SiteName *string
	SiteURL  *string
	Username *string
	Password *string
}

// VaultService orchestrates the master-secret lifecycle and the credential
// CRUD operations, doing all encryption and decryption at this boundary so
// the stores only ever see ciphertext. The master secret is taken as a
// parameter on every call and never retained; the derived key lives only for
// the duration of a single operation.
type VaultService struct {
	master driven.MasterConfigStore
	creds  driven.CredentialStore
	pepper string
}

// NewVaultService creates a new VaultService. pepper is the deployment-wide
// secret mixed into key derivation alongside the master secret.
func NewVaultService(master driven.MasterConfigStore, creds driven.CredentialStore, pepper string) *VaultService {
	return &VaultService{
		master: master,
		creds:  creds,
		pepper: pepper,
	}
}

// Configured reports whether first-run setup has completed.
func (s *VaultService) Configured(ctx context.Context) (bool, error) {
	cfg, err := s.master.Get(ctx)
	if err != nil {
		return false, err
	}
	return cfg != nil, nil
}

// Setup performs first-run initialization: it stores a bcrypt hash of the
// master secret. Returns driven.ErrMasterConfigExists when the vault is
// already initialized.
func (s *VaultService) Setup(ctx context.Context, masterSecret string) error {
	if len(masterSecret) < minMasterSecretLength {
		return fmt.Errorf("%w: master password must be at least %d characters", ErrInvalidInput, minMasterSecretLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(masterSecret), bcryptCost)
	if err != nil {
		return fmt.Errorf("hash master password: %w", err)
	}

	return s.master.Create(ctx, string(hash))
}

// Verify checks the master secret against the stored hash. It only gates
// unlock attempts; the hash plays no part in key derivation.
func (s *VaultService) Verify(ctx context.Context, masterSecret string) error {
	if masterSecret == "" {
		return fmt.Errorf("%w: master password is required", ErrInvalidInput)
	}

	cfg, err := s.master.Get(ctx)
	if err != nil {
		return err
	}
	if cfg == nil {
		return ErrNotConfigured
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cfg.PasswordHash), []byte(masterSecret)); err != nil {
		return ErrInvalidMasterSecret
	}
	return nil
}

// CreateCredential encrypts the draft's password under the caller's master
// secret and persists the new credential. The plaintext does not outlive
// this call.
func (s *VaultService) CreateCredential(ctx context.Context, masterSecret string, draft model.CredentialDraft) (model.Credential, error) {
	if masterSecret == "" {
		return model.Credential{}, fmt.Errorf("%w: master password is required", ErrInvalidInput)
	}
	if draft.SiteName == "" {
		return model.Credential{}, fmt.Errorf("%w: site name is required", ErrInvalidInput)
	}
	if draft.Username == "" {
		return model.Credential{}, fmt.Errorf("%w: username is required", ErrInvalidInput)
	}
	if draft.Password == "" {
		return model.Credential{}, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}

	key := vault.DeriveKey(masterSecret, s.pepper)
	encrypted, err := vault.Encrypt(draft.Password, key)
	if err != nil {
		return model.Credential{}, fmt.Errorf("encrypt password: %w", err)
	}

	return s.creds.Create(ctx, draft.SiteName, draft.SiteURL, draft.Username, encrypted)
}

// GetCredential retrieves a single credential without decrypting anything.
func (s *VaultService) GetCredential(ctx context.Context, id int64) (model.Credential, error) {
	return s.creds.GetByID(ctx, id)
}

// ListCredentials returns all credentials, newest first, ciphertext intact.
func (s *VaultService) ListCredentials(ctx context.Context) ([]model.Credential, error) {
	return s.creds.GetAll(ctx)
}

// UpdateCredential applies a partial update. Plain fields pass straight
// through; a password change encrypts a fresh ciphertext triple under the
// caller's master secret, replacing all three stored values at once.
func (s *VaultService) UpdateCredential(ctx context.Context, id int64, masterSecret string, change CredentialChange) (model.Credential, error) {
	upd := model.CredentialUpdate{
		SiteName: change.SiteName,
		SiteURL:  change.SiteURL,
		Username: change.Username,
	}

	if change.Password != nil {
		if masterSecret == "" {
			return model.Credential{}, fmt.Errorf("%w: master password is required to change a password", ErrInvalidInput)
		}
		if *change.Password == "" {
			return model.Credential{}, fmt.Errorf("%w: password must not be empty", ErrInvalidInput)
		}

		key := vault.DeriveKey(masterSecret, s.pepper)
		encrypted, err := vault.Encrypt(*change.Password, key)
		if err != nil {
			return model.Credential{}, fmt.Errorf("encrypt password: %w", err)
		}
		upd.Password = &encrypted
	}

	return s.creds.Update(ctx, id, upd)
}

// DeleteCredential removes a credential.
func (s *VaultService) DeleteCredential(ctx context.Context, id int64) error {
	return s.creds.Delete(ctx, id)
}

// RevealPassword decrypts a credential's password under the caller's master
// secret. A wrong secret and tampered ciphertext both surface as
// vault.ErrAuthenticationFailed; the two are deliberately indistinguishable.
func (s *VaultService) RevealPassword(ctx context.Context, id int64, masterSecret string) (string, error) {
	if masterSecret == "" {
		return "", fmt.Errorf("%w: master password is required", ErrInvalidInput)
	}

	cred, err := s.creds.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	key := vault.DeriveKey(masterSecret, s.pepper)
	return vault.Decrypt(cred.Password, key)
}
