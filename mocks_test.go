package credentials_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	credentials "github.com/goliatone/go-credentials"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func mustUUID(s string) uuid.UUID {
	return uuid.MustParse(s)
}

// MockAccountStore implements credentials.AccountStore
type MockAccountStore struct {
	mock.Mock
}

func (m *MockAccountStore) ByID(ctx context.Context, id string) (*credentials.Account, error) {
	args := m.Called(ctx, id)
	account, _ := args.Get(0).(*credentials.Account)
	return account, args.Error(1)
}

func (m *MockAccountStore) ByEmail(ctx context.Context, email string) (*credentials.Account, error) {
	args := m.Called(ctx, email)
	account, _ := args.Get(0).(*credentials.Account)
	return account, args.Error(1)
}

func (m *MockAccountStore) ByVerificationToken(ctx context.Context, token string) (*credentials.Account, error) {
	args := m.Called(ctx, token)
	account, _ := args.Get(0).(*credentials.Account)
	return account, args.Error(1)
}

func (m *MockAccountStore) ByResetToken(ctx context.Context, token string) (*credentials.Account, error) {
	args := m.Called(ctx, token)
	account, _ := args.Get(0).(*credentials.Account)
	return account, args.Error(1)
}

func (m *MockAccountStore) Register(ctx context.Context, account *credentials.Account) (*credentials.Account, error) {
	args := m.Called(ctx, account)
	created, _ := args.Get(0).(*credentials.Account)
	return created, args.Error(1)
}

func (m *MockAccountStore) MarkVerified(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockAccountStore) SetRefreshToken(ctx context.Context, id, value string) error {
	args := m.Called(ctx, id, value)
	return args.Error(0)
}

func (m *MockAccountStore) SwapRefreshToken(ctx context.Context, id, current, next string) (bool, error) {
	args := m.Called(ctx, id, current, next)
	return args.Bool(0), args.Error(1)
}

func (m *MockAccountStore) SetResetToken(ctx context.Context, id, token string, expiresAt time.Time) error {
	args := m.Called(ctx, id, token, expiresAt)
	return args.Error(0)
}

func (m *MockAccountStore) ReplacePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

func (m *MockAccountStore) TrackAttemptedLogin(ctx context.Context, account *credentials.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

func (m *MockAccountStore) TrackSucccessfulLogin(ctx context.Context, account *credentials.Account) error {
	args := m.Called(ctx, account)
	return args.Error(0)
}

// MockNotifier implements credentials.Notifier
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Send(ctx context.Context, to, subject, body string) error {
	args := m.Called(ctx, to, subject, body)
	return args.Error(0)
}

// memoryAccounts is a mutex guarded AccountStore used where test flows span
// multiple operations or run concurrently. Swap semantics mirror the SQL
// conditional update.
type memoryAccounts struct {
	mu       sync.Mutex
	accounts map[string]*credentials.Account
}

func newMemoryAccounts() *memoryAccounts {
	return &memoryAccounts{accounts: map[string]*credentials.Account{}}
}

func (s *memoryAccounts) clone(a *credentials.Account) *credentials.Account {
	cp := *a
	return &cp
}

func (s *memoryAccounts) ByID(_ context.Context, id string) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[id]; ok {
		return s.clone(a), nil
	}
	return nil, credentials.ErrAccountNotFound
}

func (s *memoryAccounts) ByEmail(_ context.Context, email string) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			return s.clone(a), nil
		}
	}
	return nil, credentials.ErrAccountNotFound
}

func (s *memoryAccounts) ByVerificationToken(_ context.Context, token string) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.VerificationToken != nil && *a.VerificationToken == token {
			return s.clone(a), nil
		}
		if a.ConsumedVerificationToken != nil && *a.ConsumedVerificationToken == token {
			return s.clone(a), nil
		}
	}
	return nil, credentials.ErrAccountNotFound
}

func (s *memoryAccounts) ByResetToken(_ context.Context, token string) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.ResetToken != nil && *a.ResetToken == token {
			return s.clone(a), nil
		}
	}
	return nil, credentials.ErrAccountNotFound
}

func (s *memoryAccounts) Register(_ context.Context, account *credentials.Account) (*credentials.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == account.Email {
			return nil, credentials.ErrEmailTaken
		}
	}
	s.accounts[account.ID.String()] = s.clone(account)
	return s.clone(account), nil
}

func (s *memoryAccounts) MarkVerified(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return credentials.ErrAccountNotFound
	}
	a.Verified = true
	a.ConsumedVerificationToken = a.VerificationToken
	a.VerificationToken = nil
	return nil
}

func (s *memoryAccounts) SetRefreshToken(_ context.Context, id, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return credentials.ErrAccountNotFound
	}
	a.RefreshToken = &value
	return nil
}

func (s *memoryAccounts) SwapRefreshToken(_ context.Context, id, current, next string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return false, nil
	}
	if a.RefreshToken == nil || *a.RefreshToken != current {
		return false, nil
	}
	if next == "" {
		a.RefreshToken = nil
	} else {
		a.RefreshToken = &next
	}
	return true, nil
}

func (s *memoryAccounts) SetResetToken(_ context.Context, id, token string, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return credentials.ErrAccountNotFound
	}
	a.ResetToken = &token
	a.ResetExpiresAt = &expiresAt
	return nil
}

func (s *memoryAccounts) ReplacePassword(_ context.Context, id, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return credentials.ErrAccountNotFound
	}
	a.PasswordHash = passwordHash
	a.ResetToken = nil
	a.ResetExpiresAt = nil
	a.RefreshToken = nil
	return nil
}

func (s *memoryAccounts) TrackAttemptedLogin(_ context.Context, account *credentials.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[account.ID.String()]; ok {
		now := time.Now()
		a.LoginAttempts++
		a.LoginAttemptAt = &now
	}
	return nil
}

func (s *memoryAccounts) TrackSucccessfulLogin(_ context.Context, account *credentials.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.accounts[account.ID.String()]; ok {
		now := time.Now()
		a.LoginAttempts = 0
		a.LoginAttemptAt = nil
		a.LoggedInAt = &now
	}
	return nil
}

// testConfig satisfies credentials.Config with deterministic values.
type testConfig struct {
	accessKey          string
	refreshKey         string
	previousAccessKey  string
	previousRefreshKey string
	accessTTL          time.Duration
	refreshTTL         time.Duration
	issuer             string
	audience           []string
}

func newTestConfig() *testConfig {
	return &testConfig{
		accessKey:  "access-secret-key-for-tests",
		refreshKey: "refresh-secret-key-for-tests",
		accessTTL:  15 * time.Minute,
		refreshTTL: 7 * 24 * time.Hour,
		issuer:     "credentials-test",
	}
}

func (c *testConfig) GetAccessSigningKey() string          { return c.accessKey }
func (c *testConfig) GetRefreshSigningKey() string         { return c.refreshKey }
func (c *testConfig) GetPreviousAccessSigningKey() string  { return c.previousAccessKey }
func (c *testConfig) GetPreviousRefreshSigningKey() string { return c.previousRefreshKey }
func (c *testConfig) GetAccessTokenTTL() time.Duration     { return c.accessTTL }
func (c *testConfig) GetRefreshTokenTTL() time.Duration    { return c.refreshTTL }
func (c *testConfig) GetIssuer() string                    { return c.issuer }
func (c *testConfig) GetAudience() []string                { return c.audience }
func (c *testConfig) GetBaseURL() string                   { return "http://localhost:5000" }
func (c *testConfig) GetClientBaseURL() string             { return "http://localhost:5173" }

// recordLogger renders entries the way defLogger does so tests can assert the
// call sites hand it printf directives that match their arguments.
type recordLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordLogger) record(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, fmt.Sprintf(format, args...))
}

func (l *recordLogger) Debug(format string, args ...any) { l.record(format, args...) }
func (l *recordLogger) Info(format string, args ...any)  { l.record(format, args...) }
func (l *recordLogger) Warn(format string, args ...any)  { l.record(format, args...) }
func (l *recordLogger) Error(format string, args ...any) { l.record(format, args...) }

func (l *recordLogger) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.lines...)
}
