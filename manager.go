package credentials

import (
	"context"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
)

// MaxLoginAttempts is the maximun number of attempts an account gets
// in a period
var MaxLoginAttempts = 5

// CoolDownPeriod is the period in which we enforce a cool down
var CoolDownPeriod = "15m"

// ResetTokenTTL is how long a password reset token stays usable.
var ResetTokenTTL = 15 * time.Minute

// operationTimeout bounds every store round trip issued by the manager.
var operationTimeout = 10 * time.Second

// VerifyStatus is the outcome of an email verification attempt.
type VerifyStatus string

const (
	// VerificationCompleted means the token matched and the account is now verified
	VerificationCompleted VerifyStatus = "verified"
	// VerificationAlreadyDone means the token belongs to an account that already verified
	VerificationAlreadyDone VerifyStatus = "already-verified"
)

// Manager orchestrates the credential lifecycle: which tokens get minted,
// rotated, and invalidated, and which account mutations each operation
// applies. Transports call into it and format whatever it hands back.
type Manager struct {
	store         AccountStore
	tokens        TokenService
	hasher        PasswordAuthenticator
	notifier      Notifier
	logger        Logger
	baseURL       string
	clientBaseURL string
	resetTTL      time.Duration
	now           func() time.Time
}

// NewManager returns a lifecycle manager wired to its collaborators.
func NewManager(store AccountStore, tokens TokenService, cfg Config) *Manager {
	return &Manager{
		store:         store,
		tokens:        tokens,
		hasher:        BcryptHasher{},
		notifier:      noopNotifier{},
		logger:        defLogger{},
		baseURL:       cfg.GetBaseURL(),
		clientBaseURL: cfg.GetClientBaseURL(),
		resetTTL:      ResetTokenTTL,
		now:           time.Now,
	}
}

func (m *Manager) WithLogger(logger Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

func (m *Manager) WithNotifier(notifier Notifier) *Manager {
	if notifier != nil {
		m.notifier = notifier
	}
	return m
}

func (m *Manager) WithPasswordAuthenticator(hasher PasswordAuthenticator) *Manager {
	if hasher != nil {
		m.hasher = hasher
	}
	return m
}

// WithClock overrides the time source, mostly for expiry tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	if now != nil {
		m.now = now
	}
	return m
}

// Register creates an unverified account with a fresh verification token and
// sends the verification link. No tokens are issued until the email verifies.
func (m *Manager) Register(ctx context.Context, msg RegisterMessage) (*Account, error) {
	select {
	case <-ctx.Done():
		return nil, goerrors.Wrap(ctx.Err(), goerrors.CategoryOperation, "context cancelled during registration")
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if err := msg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid registration payload")
	}

	email := NormalizeEmail(msg.Email)

	role := Role(msg.Role)
	if msg.Role == "" {
		role = RoleUser
	}
	if !role.IsValid() {
		return nil, goerrors.New("unknown or invalid role", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"role": msg.Role})
	}

	hash, err := m.hasher.HashPassword(msg.Password)
	if err != nil {
		if goerrors.Is(err, ErrNoEmptyString) {
			return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash password")
	}

	verificationToken, err := NewOpaqueToken()
	if err != nil {
		return nil, err
	}

	account := &Account{
		Name:              msg.Name,
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		VerificationToken: &verificationToken,
	}

	if id, err := hashid.NewUUID(email); err == nil {
		account.ID = id
	} else {
		account.ID = uuid.New()
	}

	created, err := m.store.Register(ctx, account)
	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryConflict {
			return nil, ErrEmailTaken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not create account")
	}

	// delivery outcome never rolls back the registration
	m.notify(created.Email, "Verify your email", m.verificationEmailBody(created.Name, verificationToken))

	return created, nil
}

// VerifyEmail consumes a verification token. The second call with the same
// token reports VerificationAlreadyDone instead of failing.
func (m *Manager) VerifyEmail(ctx context.Context, token string) (VerifyStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if token == "" {
		return "", ErrInvalidToken
	}

	account, err := m.store.ByVerificationToken(ctx, token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return "", ErrInvalidToken
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up verification token")
	}

	if account.Verified {
		return VerificationAlreadyDone, nil
	}

	if err := m.store.MarkVerified(ctx, account.ID.String()); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to mark account verified")
	}

	return VerificationCompleted, nil
}

// Login verifies the password and, only then, the verification status, so the
// unverified signal never doubles as a password oracle. On success it mints
// an access+refresh pair and overwrites the refresh slot: a login from a
// second device ends the first session.
func (m *Manager) Login(ctx context.Context, msg LoginMessage) (*TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if err := msg.Validate(); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid login payload")
	}

	account, err := m.store.ByEmail(ctx, NormalizeEmail(msg.Email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			// unknown email and wrong password share one signal
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during login")
	}

	if account.LoginAttemptAt != nil {
		expired, err := IsOutsideThresholdPeriod(*account.LoginAttemptAt, CoolDownPeriod)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to calculate login attempt cooldown")
		}
		if expired {
			account.LoginAttempts = 0
		}
	}

	if account.LoginAttempts > MaxLoginAttempts {
		return nil, ErrTooManyLoginAttempts
	}

	if err := m.hasher.ComparePasswordAndHash(msg.Password, account.PasswordHash); err != nil {
		if trackErr := m.store.TrackAttemptedLogin(ctx, account); trackErr != nil {
			m.logger.Error("failed to track login attempt: %v", trackErr)
		}
		return nil, ErrInvalidCredentials
	}

	if !account.Verified {
		return nil, ErrEmailNotVerified
	}

	pair, err := m.issuePair(account)
	if err != nil {
		return nil, err
	}

	if err := m.store.SetRefreshToken(ctx, account.ID.String(), pair.RefreshToken); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refresh token")
	}

	if err := m.store.TrackSucccessfulLogin(ctx, account); err != nil {
		m.logger.Error("failed to track successful login: %v", err)
	}

	return pair, nil
}

// Refresh rotates a refresh token: the presented value must verify
// cryptographically and still be the account's stored value. The conditional
// swap guarantees that of two concurrent rotations exactly one wins; the
// superseded token is unusable even before its natural expiry.
func (m *Manager) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if presented == "" {
		return nil, ErrInvalidRefreshToken
	}

	claims, err := m.tokens.VerifyRefreshToken(presented)
	if err != nil {
		m.logger.Debug("refresh token failed verification: %v", err)
		return nil, ErrInvalidRefreshToken
	}

	account, err := m.store.ByID(ctx, claims.UserID())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during refresh")
	}

	pair, err := m.issuePair(account)
	if err != nil {
		return nil, err
	}

	won, err := m.store.SwapRefreshToken(ctx, account.ID.String(), presented, pair.RefreshToken)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to rotate refresh token")
	}
	if !won {
		// stored value moved on: replay of a rotated token, a logout, or a
		// concurrent refresh that beat us to the slot
		return nil, ErrInvalidRefreshToken
	}

	return pair, nil
}

// Logout clears the refresh slot when the presented token verifies and
// matches. Every failure mode is a silent success: logout never errors over
// token state, and a mismatch mutates nothing.
func (m *Manager) Logout(ctx context.Context, presented string) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if presented == "" {
		return nil
	}

	claims, err := m.tokens.VerifyRefreshToken(presented)
	if err != nil {
		m.logger.Debug("logout with unverifiable refresh token: %v", err)
		return nil
	}

	account, err := m.store.ByID(ctx, claims.UserID())
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account during logout")
	}

	if _, err := m.store.SwapRefreshToken(ctx, account.ID.String(), presented, ""); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to clear refresh token")
	}

	return nil
}

// ForgotPassword stores a reset token with a 15 minute expiry and sends the
// link. The response shape is identical whether or not the account exists so
// the endpoint cannot be used to enumerate emails.
func (m *Manager) ForgotPassword(ctx context.Context, msg ForgotPasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if err := msg.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid forgot password payload")
	}

	account, err := m.store.ByEmail(ctx, NormalizeEmail(msg.Email))
	if err != nil {
		if goerrors.IsNotFound(err) {
			m.logger.Debug("forgot password for unknown email: %s", msg.Email)
			return nil
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account for password reset")
	}

	resetToken, err := NewOpaqueToken()
	if err != nil {
		return err
	}

	expiresAt := m.now().Add(m.resetTTL)
	if err := m.store.SetResetToken(ctx, account.ID.String(), resetToken, expiresAt); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to store reset token")
	}

	m.notify(account.Email, "Password Reset Request", m.resetEmailBody(resetToken))

	return nil
}

// ResetPassword consumes a reset token. The expiry boundary is strict: a
// token presented at exactly its expiry instant is already expired. The
// replacement clears the refresh slot too, so a live session does not survive
// a password reset.
func (m *Manager) ResetPassword(ctx context.Context, msg ResetPasswordMessage) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	if err := msg.Validate(); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid reset password payload")
	}

	account, err := m.store.ByResetToken(ctx, msg.Token)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return ErrInvalidOrExpiredToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to look up reset token")
	}

	if account.ResetExpiresAt == nil || !m.now().Before(*account.ResetExpiresAt) {
		return ErrInvalidOrExpiredToken
	}

	hash, err := m.hasher.HashPassword(msg.NewPassword)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	if err := m.store.ReplacePassword(ctx, account.ID.String(), hash); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to replace password")
	}

	return nil
}

// Account retrieves an account by id for authenticated lookups.
func (m *Manager) Account(ctx context.Context, id string) (*Account, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	account, err := m.store.ByID(ctx, id)
	if err != nil {
		if goerrors.IsNotFound(err) {
			return nil, ErrAccountNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve account")
	}

	return account, nil
}

func (m *Manager) issuePair(account *Account) (*TokenPair, error) {
	access, accessExp, err := m.tokens.IssueAccessToken(account.Identity())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue access token")
	}

	refresh, refreshExp, err := m.tokens.IssueRefreshToken(account.ID.String())
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to issue refresh token")
	}

	return &TokenPair{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// notify runs delivery on its own goroutine with a detached timeout; the
// mutation that produced the token has already committed.
func (m *Manager) notify(to, subject, body string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
		defer cancel()

		if err := m.notifier.Send(ctx, to, subject, body); err != nil {
			m.logger.Error("notification delivery failed to %s subject %q: %v", to, subject, err)
		}
	}()
}

func (m *Manager) verificationEmailBody(name, token string) string {
	link := fmt.Sprintf("%s/auth/verify-email?token=%s", m.baseURL, token)
	return fmt.Sprintf(`<h3>Email Verification</h3>
<p>Hello %s,</p>
<p>Please verify your email by clicking the link below:</p>
<a href="%s">%s</a>`, name, link, link)
}

func (m *Manager) resetEmailBody(token string) string {
	link := fmt.Sprintf("%s/reset-password?token=%s", m.clientBaseURL, token)
	return fmt.Sprintf(`<h3>Reset Your Password</h3>
<p>Click the link below to reset your password (valid for 15 mins):</p>
<a href="%s">%s</a>`, link, link)
}
