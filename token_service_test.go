package credentials_test

import (
	"strings"
	"testing"
	"time"

	credentials "github.com/goliatone/go-credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testIdentity(id, email string, role credentials.Role) credentials.Identity {
	account := &credentials.Account{
		Email: email,
		Role:  role,
	}
	account.ID = mustUUID(id)
	return account.Identity()
}

func newTokenService(cfg *testConfig) *credentials.TokenServiceImpl {
	return credentials.NewTokenService(
		credentials.SigningKey{
			Current:  []byte(cfg.accessKey),
			Previous: []byte(cfg.previousAccessKey),
		},
		credentials.SigningKey{
			Current:  []byte(cfg.refreshKey),
			Previous: []byte(cfg.previousRefreshKey),
		},
		cfg,
	)
}

func TestTokenService_AccessTokenRoundTrip(t *testing.T) {
	cfg := newTestConfig()
	service := newTokenService(cfg)

	identity := testIdentity("c7c1b2f0-8d52-4a8e-9f3a-111111111111", "test@example.com", credentials.RoleAdmin)

	token, expiresAt, err := service.IssueAccessToken(identity)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.WithinDuration(t, time.Now().Add(cfg.accessTTL), expiresAt, time.Minute)

	claims, err := service.VerifyAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "c7c1b2f0-8d52-4a8e-9f3a-111111111111", claims.UserID())
	assert.Equal(t, string(credentials.RoleAdmin), claims.Role())
	assert.Equal(t, "credentials-test", claims.Issuer)
	assert.NotEmpty(t, claims.ID, "access tokens carry a unique jti")
}

func TestTokenService_RefreshTokenRoundTrip(t *testing.T) {
	cfg := newTestConfig()
	service := newTokenService(cfg)

	token, expiresAt, err := service.IssueRefreshToken("c7c1b2f0-8d52-4a8e-9f3a-111111111111")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(cfg.refreshTTL), expiresAt, time.Minute)

	claims, err := service.VerifyRefreshToken(token)
	require.NoError(t, err)
	assert.Equal(t, "c7c1b2f0-8d52-4a8e-9f3a-111111111111", claims.UserID())
}

func TestTokenService_UniqueRefreshTokens(t *testing.T) {
	service := newTokenService(newTestConfig())

	first, _, err := service.IssueRefreshToken("account-1")
	require.NoError(t, err)
	second, _, err := service.IssueRefreshToken("account-1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "each issued refresh token gets its own jti")
}

func TestTokenService_KindsAreNotInterchangeable(t *testing.T) {
	service := newTokenService(newTestConfig())

	identity := testIdentity("c7c1b2f0-8d52-4a8e-9f3a-111111111111", "test@example.com", credentials.RoleUser)

	accessToken, _, err := service.IssueAccessToken(identity)
	require.NoError(t, err)
	refreshToken, _, err := service.IssueRefreshToken(identity.ID())
	require.NoError(t, err)

	t.Run("access token rejected as refresh token", func(t *testing.T) {
		_, err := service.VerifyRefreshToken(accessToken)
		assert.Error(t, err)
	})

	t.Run("refresh token rejected as access token", func(t *testing.T) {
		_, err := service.VerifyAccessToken(refreshToken)
		assert.Error(t, err)
	})
}

func TestTokenService_TamperedToken(t *testing.T) {
	service := newTokenService(newTestConfig())

	identity := testIdentity("c7c1b2f0-8d52-4a8e-9f3a-111111111111", "test@example.com", credentials.RoleUser)

	token, _, err := service.IssueAccessToken(identity)
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 3)
	tampered := parts[0] + "." + parts[1] + "." + "AAAA" + parts[2][4:]

	_, err = service.VerifyAccessToken(tampered)
	assert.Error(t, err)
	assert.False(t, credentials.IsTokenExpiredError(err))
}

func TestTokenService_MalformedToken(t *testing.T) {
	service := newTokenService(newTestConfig())

	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := service.VerifyAccessToken(token)
		assert.Error(t, err)
	}
}

func TestTokenService_ExpiredToken(t *testing.T) {
	cfg := newTestConfig()
	service := newTokenService(cfg)

	identity := testIdentity("c7c1b2f0-8d52-4a8e-9f3a-111111111111", "test@example.com", credentials.RoleUser)

	issuedAt := time.Now().Add(-48 * time.Hour)
	service.WithClock(func() time.Time { return issuedAt })

	token, _, err := service.IssueAccessToken(identity)
	require.NoError(t, err)

	service.WithClock(time.Now)

	_, err = service.VerifyAccessToken(token)
	require.Error(t, err)
	assert.True(t, credentials.IsTokenExpiredError(err))
}

func TestTokenService_ClockSkewLeeway(t *testing.T) {
	cfg := newTestConfig()
	service := newTokenService(cfg)

	identity := testIdentity("c7c1b2f0-8d52-4a8e-9f3a-111111111111", "test@example.com", credentials.RoleUser)

	issuedAt := time.Now()
	service.WithClock(func() time.Time { return issuedAt })

	token, expiresAt, err := service.IssueAccessToken(identity)
	require.NoError(t, err)

	t.Run("accepted within leeway after expiry", func(t *testing.T) {
		service.WithClock(func() time.Time { return expiresAt.Add(30 * time.Second) })
		_, err := service.VerifyAccessToken(token)
		assert.NoError(t, err)
	})

	t.Run("rejected beyond leeway", func(t *testing.T) {
		service.WithClock(func() time.Time { return expiresAt.Add(2 * time.Minute) })
		_, err := service.VerifyAccessToken(token)
		assert.Error(t, err)
	})
}

func TestTokenService_WrongSecret(t *testing.T) {
	cfg := newTestConfig()
	service := newTokenService(cfg)

	other := newTestConfig()
	other.accessKey = "a-completely-different-secret"
	otherService := newTokenService(other)

	identity := testIdentity("c7c1b2f0-8d52-4a8e-9f3a-111111111111", "test@example.com", credentials.RoleUser)

	token, _, err := otherService.IssueAccessToken(identity)
	require.NoError(t, err)

	_, err = service.VerifyAccessToken(token)
	assert.Error(t, err)
}

func TestTokenService_PreviousKeyGraceWindow(t *testing.T) {
	oldCfg := newTestConfig()
	oldCfg.accessKey = "retired-access-secret"
	oldService := newTokenService(oldCfg)

	identity := testIdentity("c7c1b2f0-8d52-4a8e-9f3a-111111111111", "test@example.com", credentials.RoleUser)

	token, _, err := oldService.IssueAccessToken(identity)
	require.NoError(t, err)

	t.Run("accepted under previous key", func(t *testing.T) {
		rotated := newTestConfig()
		rotated.previousAccessKey = "retired-access-secret"
		service := newTokenService(rotated)

		claims, err := service.VerifyAccessToken(token)
		require.NoError(t, err)
		assert.Equal(t, identity.ID(), claims.UserID())
	})

	t.Run("rejected once previous key is dropped", func(t *testing.T) {
		rotated := newTestConfig()
		service := newTokenService(rotated)

		_, err := service.VerifyAccessToken(token)
		assert.Error(t, err)
	})
}
