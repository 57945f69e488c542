package driven

import (
	"context"
	"errors"

	"github.com/securevault/securevault/internal/domain/model"
)

// ErrMasterConfigExists is returned by Create when the vault has already
// been initialized. The master config is a write-once singleton.
var ErrMasterConfigExists = errors.New("master config already exists")

// MasterConfigStore defines the driven port for the singleton master
// configuration record.
type MasterConfigStore interface {
	// Create stores the master secret hash on first-run setup. Returns
	// ErrMasterConfigExists if the vault is already initialized.
	Create(ctx context.Context, passwordHash string) error

	// Get retrieves the master config. Returns (nil, nil) when the vault
	// has not been initialized yet.
	Get(ctx context.Context) (*model.MasterConfig, error)
}
