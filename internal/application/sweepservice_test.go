package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/securevault/securevault/internal/domain/model"
	"github.com/securevault/securevault/internal/domain/port/driven"
	"github.com/securevault/securevault/internal/vault"
)

const sweepTestPepper = "test-pepper"

func newTestSweepService(breach driven.BreachClient, creds driven.CredentialStore) *SweepService {
	return NewSweepService(breach, creds, sweepTestPepper, time.Millisecond, time.Millisecond, time.Hour)
}

// seedCredential encrypts password under the given master secret and inserts
// a credential directly into the mock store.
func seedCredential(t *testing.T, store *mockCredentialStore, masterSecret, username, password string) model.Credential {
	t.Helper()

	key := vault.DeriveKey(masterSecret, sweepTestPepper)
	encrypted, err := vault.Encrypt(password, key)
	require.NoError(t, err)

	cred, err := store.Create(context.Background(), "site-"+username, "", username, encrypted)
	require.NoError(t, err)
	return cred
}

func TestScanPassword_UpdatesPwnedCount(t *testing.T) {
	store := newMockCredentialStore()
	cred := seedCredential(t, store, "mypepper123", "alice", "CorrectHorse1!")

	breach := &mockBreachClient{
		checkPassword: func(_ context.Context, password string) (driven.PasswordBreach, error) {
			assert.Equal(t, "CorrectHorse1!", password)
			return driven.PasswordBreach{Breached: true, Count: 42}, nil
		},
	}
	svc := newTestSweepService(breach, store)

	result, err := svc.ScanPassword(context.Background(), cred.ID, "mypepper123")
	require.NoError(t, err)

	assert.True(t, result.Breached)
	assert.Equal(t, 42, result.PwnedCount)
	require.Len(t, store.pwnedCalls, 1)
	assert.Equal(t, pwnedCall{id: cred.ID, count: 42}, store.pwnedCalls[0])

	got, err := store.GetByID(context.Background(), cred.ID)
	require.NoError(t, err)
	assert.Equal(t, model.BreachStatusCompromised, got.BreachStatus)
}

func TestScanPassword_WrongMasterSecret(t *testing.T) {
	store := newMockCredentialStore()
	cred := seedCredential(t, store, "mypepper123", "alice", "CorrectHorse1!")

	breach := &mockBreachClient{}
	svc := newTestSweepService(breach, store)

	_, err := svc.ScanPassword(context.Background(), cred.ID, "wrongsecret")
	assert.ErrorIs(t, err, vault.ErrAuthenticationFailed)
	assert.Empty(t, breach.passwordCalls, "no provider call may happen when decryption fails")
}

func TestScanPassword_ProviderErrorSurfaces(t *testing.T) {
	store := newMockCredentialStore()
	cred := seedCredential(t, store, "mypepper123", "alice", "pw")

	providerErr := errors.New("provider down")
	breach := &mockBreachClient{
		checkPassword: func(context.Context, string) (driven.PasswordBreach, error) {
			return driven.PasswordBreach{}, providerErr
		},
	}
	svc := newTestSweepService(breach, store)

	_, err := svc.ScanPassword(context.Background(), cred.ID, "mypepper123")
	assert.ErrorIs(t, err, providerErr)
	assert.Empty(t, store.pwnedCalls, "a failed check must not touch the stored status")
}

func TestScanEmail_SetsStatus(t *testing.T) {
	store := newMockCredentialStore()
	cred := seedCredential(t, store, "mypepper123", "Alice@Example.com", "pw")

	breach := &mockBreachClient{
		checkEmail: func(_ context.Context, email string) (driven.EmailBreach, error) {
			assert.Equal(t, "alice@example.com", email, "address must be normalized")
			return driven.EmailBreach{Breached: true, Breaches: []string{"Adobe"}}, nil
		},
	}
	svc := newTestSweepService(breach, store)

	result, err := svc.ScanEmail(context.Background(), cred.ID)
	require.NoError(t, err)

	assert.True(t, result.Breached)
	assert.Equal(t, []string{"Adobe"}, result.Breaches)
	require.Len(t, store.statusCalls, 1)
	assert.Equal(t, statusCall{id: cred.ID, status: model.BreachStatusCompromised}, store.statusCalls[0])
}

func TestScanEmail_NonEmailUsername(t *testing.T) {
	store := newMockCredentialStore()
	cred := seedCredential(t, store, "mypepper123", "just-a-login", "pw")

	breach := &mockBreachClient{}
	svc := newTestSweepService(breach, store)

	_, err := svc.ScanEmail(context.Background(), cred.ID)
	assert.ErrorIs(t, err, ErrNotEmailUsername)
	assert.Empty(t, breach.emailCalls)
}

func TestSweepPasswords_SkipsUndecryptableRecord(t *testing.T) {
	store := newMockCredentialStore()
	good1 := seedCredential(t, store, "mypepper123", "a", "breached-pw")
	corrupt := seedCredential(t, store, "otherkey99", "b", "whatever")
	good2 := seedCredential(t, store, "mypepper123", "c", "clean-pw")

	breach := &mockBreachClient{
		checkPassword: func(_ context.Context, password string) (driven.PasswordBreach, error) {
			if password == "breached-pw" {
				return driven.PasswordBreach{Breached: true, Count: 7}, nil
			}
			return driven.PasswordBreach{}, nil
		},
	}
	svc := newTestSweepService(breach, store)

	summary, err := svc.SweepPasswords(context.Background(), "mypepper123")
	require.NoError(t, err)

	assert.Equal(t, SweepSummary{Scanned: 2, Compromised: 1, Failed: 1}, summary)
	assert.Len(t, breach.passwordCalls, 2)

	gotGood1, _ := store.GetByID(context.Background(), good1.ID)
	assert.Equal(t, model.BreachStatusCompromised, gotGood1.BreachStatus)
	assert.Equal(t, 7, gotGood1.PwnedCount)

	gotGood2, _ := store.GetByID(context.Background(), good2.ID)
	assert.Equal(t, model.BreachStatusSafe, gotGood2.BreachStatus)

	gotCorrupt, _ := store.GetByID(context.Background(), corrupt.ID)
	assert.Equal(t, model.BreachStatusUnknown, gotCorrupt.BreachStatus, "undecryptable record stays untouched")
}

func TestSweepEmails_NoEmailUsernamesIsNoOp(t *testing.T) {
	store := newMockCredentialStore()
	seedCredential(t, store, "mypepper123", "login-one", "pw")
	seedCredential(t, store, "mypepper123", "login-two", "pw")

	breach := &mockBreachClient{}
	svc := newTestSweepService(breach, store)

	summary, err := svc.SweepEmails(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SweepSummary{}, summary)
	assert.Empty(t, breach.emailCalls, "no provider calls for a vault without email usernames")
}

func TestSweepEmails_GroupsByNormalizedAddress(t *testing.T) {
	store := newMockCredentialStore()
	one := seedCredential(t, store, "mypepper123", "Alice@Example.com", "pw")
	two := seedCredential(t, store, "mypepper123", " alice@example.com ", "pw")
	other := seedCredential(t, store, "mypepper123", "bob@example.com", "pw")

	breach := &mockBreachClient{
		checkEmail: func(_ context.Context, email string) (driven.EmailBreach, error) {
			if email == "alice@example.com" {
				return driven.EmailBreach{Breached: true, Breaches: []string{"Adobe"}}, nil
			}
			return driven.EmailBreach{Breached: false, Breaches: []string{}}, nil
		},
	}
	svc := newTestSweepService(breach, store)

	summary, err := svc.SweepEmails(context.Background())
	require.NoError(t, err)

	assert.Len(t, breach.emailCalls, 2, "one provider call per distinct address")
	assert.Equal(t, SweepSummary{Scanned: 3, Compromised: 2}, summary)

	gotOne, _ := store.GetByID(context.Background(), one.ID)
	gotTwo, _ := store.GetByID(context.Background(), two.ID)
	gotOther, _ := store.GetByID(context.Background(), other.ID)
	assert.Equal(t, model.BreachStatusCompromised, gotOne.BreachStatus)
	assert.Equal(t, model.BreachStatusCompromised, gotTwo.BreachStatus)
	assert.Equal(t, model.BreachStatusSafe, gotOther.BreachStatus)
}

func TestSweepEmails_FailedGroupDoesNotAbortSweep(t *testing.T) {
	store := newMockCredentialStore()
	a := seedCredential(t, store, "mypepper123", "a@example.com", "pw")
	b := seedCredential(t, store, "mypepper123", "b@example.com", "pw")
	c := seedCredential(t, store, "mypepper123", "c@example.com", "pw")

	breach := &mockBreachClient{
		checkEmail: func(_ context.Context, email string) (driven.EmailBreach, error) {
			if email == "b@example.com" {
				return driven.EmailBreach{}, errors.New("provider hiccup")
			}
			return driven.EmailBreach{Breached: false, Breaches: []string{}}, nil
		},
	}
	svc := newTestSweepService(breach, store)

	summary, err := svc.SweepEmails(context.Background())
	require.NoError(t, err, "per-group failures are swallowed")

	assert.Equal(t, SweepSummary{Scanned: 2, Failed: 1}, summary)
	assert.Len(t, breach.emailCalls, 3)

	gotA, _ := store.GetByID(context.Background(), a.ID)
	gotC, _ := store.GetByID(context.Background(), c.ID)
	gotB, _ := store.GetByID(context.Background(), b.ID)
	assert.Equal(t, model.BreachStatusSafe, gotA.BreachStatus)
	assert.Equal(t, model.BreachStatusSafe, gotC.BreachStatus)
	assert.Equal(t, model.BreachStatusUnknown, gotB.BreachStatus, "failed group stays untouched")
}

func TestSweep_OnlyOneInFlight(t *testing.T) {
	store := newMockCredentialStore()
	seedCredential(t, store, "mypepper123", "a@example.com", "pw")

	block := make(chan struct{})
	entered := make(chan struct{})
	breach := &mockBreachClient{
		checkEmail: func(context.Context, string) (driven.EmailBreach, error) {
			close(entered)
			<-block
			return driven.EmailBreach{}, nil
		},
	}
	svc := newTestSweepService(breach, store)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = svc.SweepEmails(context.Background())
	}()

	<-entered
	_, err := svc.SweepEmails(context.Background())
	assert.ErrorIs(t, err, ErrSweepInProgress)

	_, err = svc.SweepPasswords(context.Background(), "mypepper123")
	assert.ErrorIs(t, err, ErrSweepInProgress)

	close(block)
	<-done
}

func TestRecordEmailBreaches(t *testing.T) {
	store := newMockCredentialStore()
	one := seedCredential(t, store, "mypepper123", "Alice@Example.com", "pw")
	two := seedCredential(t, store, "mypepper123", "alice@example.com", "pw")
	other := seedCredential(t, store, "mypepper123", "bob@example.com", "pw")

	svc := newTestSweepService(&mockBreachClient{}, store)

	updated, err := svc.RecordEmailBreaches(context.Background(), "ALICE@example.com", []string{"Adobe", "LinkedIn"})
	require.NoError(t, err)
	assert.Equal(t, 2, updated)

	gotOne, _ := store.GetByID(context.Background(), one.ID)
	gotTwo, _ := store.GetByID(context.Background(), two.ID)
	gotOther, _ := store.GetByID(context.Background(), other.ID)
	assert.Equal(t, model.BreachStatusCompromised, gotOne.BreachStatus)
	assert.Equal(t, model.BreachStatusCompromised, gotTwo.BreachStatus)
	assert.Equal(t, model.BreachStatusUnknown, gotOther.BreachStatus)
}

func TestRecordEmailBreaches_Validation(t *testing.T) {
	store := newMockCredentialStore()
	seedCredential(t, store, "mypepper123", "alice@example.com", "pw")
	svc := newTestSweepService(&mockBreachClient{}, store)
	ctx := context.Background()

	_, err := svc.RecordEmailBreaches(ctx, "not-an-email", []string{"Adobe"})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.RecordEmailBreaches(ctx, "alice@example.com", nil)
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.RecordEmailBreaches(ctx, "nobody@example.com", []string{"Adobe"})
	assert.ErrorIs(t, err, driven.ErrNotFound)
}

func TestSweepEmails_CancellationStopsBetweenGroups(t *testing.T) {
	store := newMockCredentialStore()
	seedCredential(t, store, "mypepper123", "a@example.com", "pw")
	seedCredential(t, store, "mypepper123", "b@example.com", "pw")

	ctx, cancel := context.WithCancel(context.Background())
	breach := &mockBreachClient{
		checkEmail: func(context.Context, string) (driven.EmailBreach, error) {
			cancel() // Cancel after the first provider call.
			return driven.EmailBreach{}, nil
		},
	}
	svc := newTestSweepService(breach, store)

	summary, err := svc.SweepEmails(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, summary.Scanned, "processed credentials keep their update")
	assert.Len(t, breach.emailCalls, 1)
}
