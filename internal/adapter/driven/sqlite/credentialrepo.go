package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/securevault/securevault/internal/domain/model"
	"github.com/securevault/securevault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.CredentialStore = (*CredentialRepo)(nil)

// CredentialRepo is the SQLite implementation of the CredentialStore port
// interface. It stores only encrypted material; encryption happens in the
// application layer before values reach this repo.
type CredentialRepo struct {
	db *DB
}

// NewCredentialRepo creates a new CredentialRepo backed by the given DB.
func NewCredentialRepo(db *DB) *CredentialRepo {
	return &CredentialRepo{db: db}
}

const credentialColumns = `id, site_name, site_url, username, encrypted_password, iv, auth_tag,
	       breach_status, pwned_count, last_scanned, created_at, updated_at`

// Create inserts a new credential and returns the stored record.
func (r *CredentialRepo) Create(ctx context.Context, siteName, siteURL, username string, password model.CipherText) (model.Credential, error) {
	const query = `
		INSERT INTO credentials (site_name, site_url, username, encrypted_password, iv, auth_tag)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.Writer.ExecContext(ctx, query,
		siteName, siteURL, username, password.Ciphertext, password.IV, password.AuthTag,
	)
	if err != nil {
		return model.Credential{}, fmt.Errorf("insert credential %q: %w", siteName, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Credential{}, fmt.Errorf("credential insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID retrieves a single credential. Returns driven.ErrNotFound if the
// id is unknown.
func (r *CredentialRepo) GetByID(ctx context.Context, id int64) (model.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials WHERE id = ?`

	cred, err := scanCredential(r.db.Reader.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Credential{}, driven.ErrNotFound
	}
	if err != nil {
		return model.Credential{}, fmt.Errorf("get credential %d: %w", id, err)
	}

	return cred, nil
}

// GetAll returns every stored credential, newest first.
func (r *CredentialRepo) GetAll(ctx context.Context) ([]model.Credential, error) {
	query := `SELECT ` + credentialColumns + ` FROM credentials ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list credentials: %w", err)
	}
	defer rows.Close()

	creds := []model.Credential{}
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			return nil, fmt.Errorf("scan credential: %w", err)
		}
		creds = append(creds, cred)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate credentials: %w", err)
	}

	return creds, nil
}

// Update applies the non-nil fields of upd and returns the post-update
// record. The ciphertext triple is written atomically: a password change
// replaces encrypted_password, iv, and auth_tag in a single statement.
func (r *CredentialRepo) Update(ctx context.Context, id int64, upd model.CredentialUpdate) (model.Credential, error) {
	var (
		set  []string
		args []any
	)

	if upd.SiteName != nil {
		set = append(set, "site_name = ?")
		args = append(args, *upd.SiteName)
	}
	if upd.SiteURL != nil {
		set = append(set, "site_url = ?")
		args = append(args, *upd.SiteURL)
	}
	if upd.Username != nil {
		set = append(set, "username = ?")
		args = append(args, *upd.Username)
	}
	if upd.Password != nil {
		set = append(set, "encrypted_password = ?", "iv = ?", "auth_tag = ?")
		args = append(args, upd.Password.Ciphertext, upd.Password.IV, upd.Password.AuthTag)
	}

	set = append(set, "updated_at = datetime('now')")
	args = append(args, id)

	query := `UPDATE credentials SET ` + strings.Join(set, ", ") + ` WHERE id = ?`

	res, err := r.db.Writer.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Credential{}, fmt.Errorf("update credential %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return model.Credential{}, fmt.Errorf("update credential %d: %w", id, err)
	} else if n == 0 {
		return model.Credential{}, driven.ErrNotFound
	}

	return r.GetByID(ctx, id)
}

// Delete removes a credential. Returns driven.ErrNotFound if the id is unknown.
func (r *CredentialRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.db.Writer.ExecContext(ctx, `DELETE FROM credentials WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete credential %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("delete credential %d: %w", id, err)
	} else if n == 0 {
		return driven.ErrNotFound
	}
	return nil
}

// SetBreachStatus records a scan outcome for a credential.
func (r *CredentialRepo) SetBreachStatus(ctx context.Context, id int64, status model.BreachStatus, scannedAt time.Time) error {
	if !status.Valid() {
		return fmt.Errorf("invalid breach status %q", status)
	}

	const query = `
		UPDATE credentials
		SET breach_status = ?, last_scanned = ?, updated_at = datetime('now')
		WHERE id = ?
	`

	res, err := r.db.Writer.ExecContext(ctx, query, string(status), scannedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("set breach status for credential %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("set breach status for credential %d: %w", id, err)
	} else if n == 0 {
		return driven.ErrNotFound
	}
	return nil
}

// SetPwnedCount records a password-scan hit count and derives the breach
// status from it: count > 0 means compromised, otherwise safe.
func (r *CredentialRepo) SetPwnedCount(ctx context.Context, id int64, count int, scannedAt time.Time) error {
	status := model.BreachStatusSafe
	if count > 0 {
		status = model.BreachStatusCompromised
	}

	const query = `
		UPDATE credentials
		SET pwned_count = ?, breach_status = ?, last_scanned = ?, updated_at = datetime('now')
		WHERE id = ?
	`

	res, err := r.db.Writer.ExecContext(ctx, query, count, string(status), scannedAt.UTC(), id)
	if err != nil {
		return fmt.Errorf("set pwned count for credential %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return fmt.Errorf("set pwned count for credential %d: %w", id, err)
	} else if n == 0 {
		return driven.ErrNotFound
	}
	return nil
}

// scanner abstracts *sql.Row and *sql.Rows for scanCredential.
type scanner interface {
	Scan(dest ...any) error
}

func scanCredential(row scanner) (model.Credential, error) {
	var (
		cred        model.Credential
		status      string
		lastScanned sql.NullString
		createdAt   string
		updatedAt   string
	)

	err := row.Scan(
		&cred.ID, &cred.SiteName, &cred.SiteURL, &cred.Username,
		&cred.Password.Ciphertext, &cred.Password.IV, &cred.Password.AuthTag,
		&status, &cred.PwnedCount, &lastScanned, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.Credential{}, err
	}

	cred.BreachStatus = model.BreachStatus(status)

	if lastScanned.Valid {
		t, err := parseTime(lastScanned.String)
		if err != nil {
			return model.Credential{}, fmt.Errorf("parse last_scanned: %w", err)
		}
		cred.LastScanned = &t
	}

	if cred.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Credential{}, fmt.Errorf("parse created_at: %w", err)
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return model.Credential{}, fmt.Errorf("parse updated_at: %w", err)
	}

	return cred, nil
}

// parseTime tries multiple SQLite datetime formats.
func parseTime(s string) (time.Time, error) {
	formats := []string{
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05.000",
		time.RFC3339,
		time.RFC3339Nano,
	}

	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognized time format: %s", s)
}
