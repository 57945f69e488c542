package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"sync"
	"time"

	"github.com/securevault/securevault/internal/domain/model"
	"github.com/securevault/securevault/internal/domain/port/driven"
	"github.com/securevault/securevault/internal/vault"
)

// ErrSweepInProgress is returned when a sweep is requested while another one
// is still running. Concurrent sweeps would double-spend the provider's
// rate-limit budget, so at most one is allowed in flight.
var ErrSweepInProgress = errors.New("a breach sweep is already in progress")

// ErrNotEmailUsername is returned by the single-item email scan when the
// credential's username does not look like an email address.
var ErrNotEmailUsername = errors.New("credential username is not an email address")

// PasswordScanResult is the outcome of scanning one credential's password.
type PasswordScanResult struct {
	CredentialID int64
	SiteName     string
	Breached     bool
	PwnedCount   int
}

// EmailScanResult is the outcome of scanning one credential's email address.
type EmailScanResult struct {
	CredentialID int64
	Email        string
	Breached     bool
	Breaches     []string
}

// SweepSummary reports the aggregate outcome of a full-vault sweep.
type SweepSummary struct {
	Scanned     int // Credentials whose breach status was updated.
	Compromised int
	Failed      int // Credentials skipped because their scan failed.
}

// SweepService is the breach sweeper: it scans single credentials on demand
// and orchestrates full-vault sweeps against the breach provider, pacing
// external calls and writing outcomes back through the credential store.
type SweepService struct {
	breach        driven.BreachClient
	creds         driven.CredentialStore
	pepper        string
	passwordDelay time.Duration
	emailDelay    time.Duration
	interval      time.Duration

	mu sync.Mutex // Held for the duration of a full sweep.
}

// NewSweepService creates a new SweepService. passwordDelay and emailDelay
// are the minimum waits between successive calls to the respective provider
// endpoints; interval is the period of the scheduled email sweep.
func NewSweepService(
	breach driven.BreachClient,
	creds driven.CredentialStore,
	pepper string,
	passwordDelay time.Duration,
	emailDelay time.Duration,
	interval time.Duration,
) *SweepService {
	return &SweepService{
		breach:        breach,
		creds:         creds,
		pepper:        pepper,
		passwordDelay: passwordDelay,
		emailDelay:    emailDelay,
		interval:      interval,
	}
}

// Start runs the scheduled sweep loop: an immediate email sweep, then one
// per interval. Password sweeps are never scheduled because they need the
// master secret, which is never retained. Start blocks until the context is
// canceled.
func (s *SweepService) Start(ctx context.Context) {
	if _, err := s.SweepEmails(ctx); err != nil {
		slog.Error("initial email sweep failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("sweep service stopped")
			return
		case <-ticker.C:
			if _, err := s.SweepEmails(ctx); err != nil {
				slog.Error("scheduled email sweep failed", "error", err)
			}
		}
	}
}

// ScanPassword scans a single credential's password on demand. The caller
// supplies the master secret fresh; it is used once to decrypt and then
// dropped. Provider errors surface to the caller as retryable failures.
func (s *SweepService) ScanPassword(ctx context.Context, id int64, masterSecret string) (PasswordScanResult, error) {
	if masterSecret == "" {
		return PasswordScanResult{}, fmt.Errorf("%w: master password is required", ErrInvalidInput)
	}

	cred, err := s.creds.GetByID(ctx, id)
	if err != nil {
		return PasswordScanResult{}, err
	}

	key := vault.DeriveKey(masterSecret, s.pepper)
	password, err := vault.Decrypt(cred.Password, key)
	if err != nil {
		return PasswordScanResult{}, err
	}

	result, err := s.breach.CheckPassword(ctx, password)
	if err != nil {
		return PasswordScanResult{}, err
	}

	if err := s.creds.SetPwnedCount(ctx, cred.ID, result.Count, time.Now().UTC()); err != nil {
		return PasswordScanResult{}, err
	}

	return PasswordScanResult{
		CredentialID: cred.ID,
		SiteName:     cred.SiteName,
		Breached:     result.Breached,
		PwnedCount:   result.Count,
	}, nil
}

// ScanEmail scans a single credential's email address on demand. It needs
// nothing beyond the stored username; no decryption is involved.
func (s *SweepService) ScanEmail(ctx context.Context, id int64) (EmailScanResult, error) {
	cred, err := s.creds.GetByID(ctx, id)
	if err != nil {
		return EmailScanResult{}, err
	}

	email, ok := normalizeEmail(cred.Username)
	if !ok {
		return EmailScanResult{}, ErrNotEmailUsername
	}

	result, err := s.breach.CheckEmail(ctx, email)
	if err != nil {
		return EmailScanResult{}, err
	}

	status := model.BreachStatusSafe
	if result.Breached {
		status = model.BreachStatusCompromised
	}
	if err := s.creds.SetBreachStatus(ctx, cred.ID, status, time.Now().UTC()); err != nil {
		return EmailScanResult{}, err
	}

	return EmailScanResult{
		CredentialID: cred.ID,
		Email:        email,
		Breached:     result.Breached,
		Breaches:     result.Breaches,
	}, nil
}

// SweepPasswords scans every credential's password sequentially, pacing
// provider calls by passwordDelay. Per-item failures (undecryptable record,
// provider hiccup) are logged and skipped; they never abort the remainder of
// the sweep. Cancellation mid-sweep leaves already-processed credentials
// updated and the rest untouched.
func (s *SweepService) SweepPasswords(ctx context.Context, masterSecret string) (SweepSummary, error) {
	if masterSecret == "" {
		return SweepSummary{}, fmt.Errorf("%w: master password is required", ErrInvalidInput)
	}
	if !s.mu.TryLock() {
		return SweepSummary{}, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	creds, err := s.creds.GetAll(ctx)
	if err != nil {
		return SweepSummary{}, err
	}

	start := time.Now()
	key := vault.DeriveKey(masterSecret, s.pepper)

	var summary SweepSummary
	callsMade := 0
	for _, cred := range creds {
		// Hard minimum wait between successive provider calls.
		if callsMade > 0 {
			if err := sleepContext(ctx, s.passwordDelay); err != nil {
				return summary, err
			}
		}

		password, err := vault.Decrypt(cred.Password, key)
		if err != nil {
			slog.Error("password sweep: decrypt failed", "credential", cred.ID, "error", err)
			summary.Failed++
			continue
		}

		result, err := s.breach.CheckPassword(ctx, password)
		callsMade++
		if err != nil {
			slog.Error("password sweep: provider check failed", "credential", cred.ID, "error", err)
			summary.Failed++
			continue
		}

		if err := s.creds.SetPwnedCount(ctx, cred.ID, result.Count, time.Now().UTC()); err != nil {
			slog.Error("password sweep: store update failed", "credential", cred.ID, "error", err)
			summary.Failed++
			continue
		}

		summary.Scanned++
		if result.Breached {
			summary.Compromised++
		}
	}

	slog.Info("password sweep complete",
		"credentials", len(creds),
		"scanned", summary.Scanned,
		"compromised", summary.Compromised,
		"failed", summary.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return summary, nil
}

// SweepEmails scans every email-shaped username, querying the provider once
// per distinct normalized address and fanning the result out to all
// credentials sharing it. Calls are paced by emailDelay; a failed group is
// logged and skipped without aborting the sweep. A vault with no
// email-shaped usernames completes immediately with zero provider calls.
func (s *SweepService) SweepEmails(ctx context.Context) (SweepSummary, error) {
	if !s.mu.TryLock() {
		return SweepSummary{}, ErrSweepInProgress
	}
	defer s.mu.Unlock()

	creds, err := s.creds.GetAll(ctx)
	if err != nil {
		return SweepSummary{}, err
	}

	// Group credential ids by normalized email so each distinct address is
	// queried exactly once. Order follows first appearance.
	groups := make(map[string][]int64)
	var order []string
	for _, cred := range creds {
		email, ok := normalizeEmail(cred.Username)
		if !ok {
			continue
		}
		if _, seen := groups[email]; !seen {
			order = append(order, email)
		}
		groups[email] = append(groups[email], cred.ID)
	}

	if len(order) == 0 {
		slog.Info("email sweep complete", "credentials", len(creds), "emails", 0)
		return SweepSummary{}, nil
	}

	start := time.Now()

	var summary SweepSummary
	for i, email := range order {
		if i > 0 {
			if err := sleepContext(ctx, s.emailDelay); err != nil {
				return summary, err
			}
		}

		result, err := s.breach.CheckEmail(ctx, email)
		if err != nil {
			slog.Error("email sweep: provider check failed", "email_group_size", len(groups[email]), "error", err)
			summary.Failed += len(groups[email])
			continue
		}

		status := model.BreachStatusSafe
		if result.Breached {
			status = model.BreachStatusCompromised
		}

		for _, id := range groups[email] {
			if err := s.creds.SetBreachStatus(ctx, id, status, time.Now().UTC()); err != nil {
				slog.Error("email sweep: store update failed", "credential", id, "error", err)
				summary.Failed++
				continue
			}
			summary.Scanned++
			if result.Breached {
				summary.Compromised++
			}
		}
	}

	slog.Info("email sweep complete",
		"credentials", len(creds),
		"emails", len(order),
		"scanned", summary.Scanned,
		"compromised", summary.Compromised,
		"failed", summary.Failed,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return summary, nil
}

// RecordEmailBreaches manually marks every credential whose username matches
// the given email as compromised. It exists for deployments without a
// provider API key: the user looks their address up on the provider's site
// and records the breach names here. Returns the number of credentials
// updated; driven.ErrNotFound when no credential uses the address.
func (s *SweepService) RecordEmailBreaches(ctx context.Context, email string, breaches []string) (int, error) {
	normalized, ok := normalizeEmail(email)
	if !ok {
		return 0, fmt.Errorf("%w: a valid email address is required", ErrInvalidInput)
	}
	if len(breaches) == 0 {
		return 0, fmt.Errorf("%w: at least one breach name is required", ErrInvalidInput)
	}

	creds, err := s.creds.GetAll(ctx)
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, cred := range creds {
		addr, ok := normalizeEmail(cred.Username)
		if !ok || addr != normalized {
			continue
		}
		if err := s.creds.SetBreachStatus(ctx, cred.ID, model.BreachStatusCompromised, time.Now().UTC()); err != nil {
			return updated, err
		}
		updated++
	}
	if updated == 0 {
		return 0, driven.ErrNotFound
	}

	slog.Info("email breaches recorded", "breaches", len(breaches), "credentials_updated", updated)
	return updated, nil
}

// normalizeEmail lower-cases and trims a username and reports whether it is
// a bare email address.
func normalizeEmail(username string) (string, bool) {
	addr := strings.ToLower(strings.TrimSpace(username))
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return "", false
	}
	return addr, true
}

// sleepContext waits for d or until ctx is canceled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
