package application

import (
	"context"
	"time"

	"github.com/securevault/securevault/internal/domain/model"
	"github.com/securevault/securevault/internal/domain/port/driven"
)

// mockCredentialStore is an in-memory CredentialStore for application tests.
type mockCredentialStore struct {
	creds  []model.Credential
	nextID int64

	statusCalls []statusCall
	pwnedCalls  []pwnedCall
}

type statusCall struct {
	id     int64
	status model.BreachStatus
}

type pwnedCall struct {
	id    int64
	count int
}

func newMockCredentialStore() *mockCredentialStore {
	return &mockCredentialStore{nextID: 1}
}

func (m *mockCredentialStore) Create(_ context.Context, siteName, siteURL, username string, password model.CipherText) (model.Credential, error) {
	cred := model.Credential{
		ID:           m.nextID,
		SiteName:     siteName,
		SiteURL:      siteURL,
		Username:     username,
		Password:     password,
		BreachStatus: model.BreachStatusUnknown,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
	m.nextID++
	m.creds = append(m.creds, cred)
	return cred, nil
}

func (m *mockCredentialStore) GetByID(_ context.Context, id int64) (model.Credential, error) {
	for _, cred := range m.creds {
		if cred.ID == id {
			return cred, nil
		}
	}
	return model.Credential{}, driven.ErrNotFound
}

func (m *mockCredentialStore) GetAll(_ context.Context) ([]model.Credential, error) {
	out := make([]model.Credential, 0, len(m.creds))
	for i := len(m.creds) - 1; i >= 0; i-- {
		out = append(out, m.creds[i])
	}
	return out, nil
}

func (m *mockCredentialStore) Update(_ context.Context, id int64, upd model.CredentialUpdate) (model.Credential, error) {
	for i := range m.creds {
		if m.creds[i].ID != id {
			continue
		}
		if upd.SiteName != nil {
			m.creds[i].SiteName = *upd.SiteName
		}
		if upd.SiteURL != nil {
			m.creds[i].SiteURL = *upd.SiteURL
		}
		if upd.Username != nil {
			m.creds[i].Username = *upd.Username
		}
		if upd.Password != nil {
			m.creds[i].Password = *upd.Password
		}
		m.creds[i].UpdatedAt = time.Now().UTC()
		return m.creds[i], nil
	}
	return model.Credential{}, driven.ErrNotFound
}

func (m *mockCredentialStore) Delete(_ context.Context, id int64) error {
	for i := range m.creds {
		if m.creds[i].ID == id {
			m.creds = append(m.creds[:i], m.creds[i+1:]...)
			return nil
		}
	}
	return driven.ErrNotFound
}

func (m *mockCredentialStore) SetBreachStatus(_ context.Context, id int64, status model.BreachStatus, scannedAt time.Time) error {
	for i := range m.creds {
		if m.creds[i].ID == id {
			m.creds[i].BreachStatus = status
			at := scannedAt
			m.creds[i].LastScanned = &at
			m.statusCalls = append(m.statusCalls, statusCall{id: id, status: status})
			return nil
		}
	}
	return driven.ErrNotFound
}

func (m *mockCredentialStore) SetPwnedCount(_ context.Context, id int64, count int, scannedAt time.Time) error {
	for i := range m.creds {
		if m.creds[i].ID == id {
			status := model.BreachStatusSafe
			if count > 0 {
				status = model.BreachStatusCompromised
			}
			m.creds[i].PwnedCount = count
			m.creds[i].BreachStatus = status
			at := scannedAt
			m.creds[i].LastScanned = &at
			m.pwnedCalls = append(m.pwnedCalls, pwnedCall{id: id, count: count})
			return nil
		}
	}
	return driven.ErrNotFound
}

// mockMasterConfigStore is an in-memory MasterConfigStore.
type mockMasterConfigStore struct {
	cfg *model.MasterConfig
}

func (m *mockMasterConfigStore) Create(_ context.Context, passwordHash string) error {
	if m.cfg != nil {
		return driven.ErrMasterConfigExists
	}
	m.cfg = &model.MasterConfig{PasswordHash: passwordHash, CreatedAt: time.Now().UTC()}
	return nil
}

func (m *mockMasterConfigStore) Get(_ context.Context) (*model.MasterConfig, error) {
	return m.cfg, nil
}

// mockBreachClient is a scriptable BreachClient.
type mockBreachClient struct {
	checkPassword func(ctx context.Context, password string) (driven.PasswordBreach, error)
	checkEmail    func(ctx context.Context, email string) (driven.EmailBreach, error)

	passwordCalls []string
	emailCalls    []string
}

func (m *mockBreachClient) CheckPassword(ctx context.Context, password string) (driven.PasswordBreach, error) {
	m.passwordCalls = append(m.passwordCalls, password)
	if m.checkPassword == nil {
		return driven.PasswordBreach{}, nil
	}
	return m.checkPassword(ctx, password)
}

func (m *mockBreachClient) CheckEmail(ctx context.Context, email string) (driven.EmailBreach, error) {
	m.emailCalls = append(m.emailCalls, email)
	if m.checkEmail == nil {
		return driven.EmailBreach{}, nil
	}
	return m.checkEmail(ctx, email)
}
