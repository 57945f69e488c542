package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/securevault/securevault/internal/domain/model"
	"github.com/securevault/securevault/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MasterConfigStore = (*MasterConfigRepo)(nil)

// MasterConfigRepo is the SQLite implementation of the MasterConfigStore
// port interface. The table holds at most one row, pinned to id = 1.
type MasterConfigRepo struct {
	db *DB
}

// NewMasterConfigRepo creates a new MasterConfigRepo backed by the given DB.
func NewMasterConfigRepo(db *DB) *MasterConfigRepo {
	return &MasterConfigRepo{db: db}
}

// Create stores the master secret hash on first-run setup. Returns
// driven.ErrMasterConfigExists if the vault is already initialized.
func (r *MasterConfigRepo) Create(ctx context.Context, passwordHash string) error {
	existing, err := r.Get(ctx)
	if err != nil {
		return err
	}
	if existing != nil {
		return driven.ErrMasterConfigExists
	}

	const query = `INSERT INTO master_config (id, password_hash) VALUES (1, ?)`
	if _, err := r.db.Writer.ExecContext(ctx, query, passwordHash); err != nil {
		return fmt.Errorf("insert master config: %w", err)
	}
	return nil
}

// Get retrieves the master config. Returns (nil, nil) when the vault has
// not been initialized yet.
func (r *MasterConfigRepo) Get(ctx context.Context) (*model.MasterConfig, error) {
	const query = `SELECT password_hash, created_at FROM master_config WHERE id = 1`

	var (
		cfg       model.MasterConfig
		createdAt string
	)
	err := r.db.Reader.QueryRowContext(ctx, query).Scan(&cfg.PasswordHash, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get master config: %w", err)
	}

	if cfg.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}

	return &cfg, nil
}
