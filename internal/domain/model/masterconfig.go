package model

import "time"

// MasterConfig is the singleton vault configuration row. PasswordHash is a
// bcrypt hash of the master secret, used only to verify unlock attempts;
// the secret itself is never stored in recoverable form.
type MasterConfig struct {
	PasswordHash string
	CreatedAt    time.Time
}
