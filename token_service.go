package credentials

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// ClockSkewLeeway is the bounded tolerance applied to exp/iat validation.
var ClockSkewLeeway = 60 * time.Second

// SigningKey holds the current signing secret plus an optional previous
// secret that still verifies during a key rotation grace window.
type SigningKey struct {
	Current  []byte
	Previous []byte
}

func (k SigningKey) isZero() bool {
	return len(k.Current) == 0
}

// TokenServiceImpl implements the TokenService interface. Access and refresh
// tokens are signed with distinct secrets so neither key can forge the other
// kind.
type TokenServiceImpl struct {
	accessKey  SigningKey
	refreshKey SigningKey
	accessTTL  time.Duration
	refreshTTL time.Duration
	issuer     string
	audience   jwt.ClaimStrings
	leeway     time.Duration
	now        func() time.Time
	logger     Logger
}

// NewTokenService creates a new TokenService instance
func NewTokenService(accessKey, refreshKey SigningKey, cfg Config) *TokenServiceImpl {
	return &TokenServiceImpl{
		accessKey:  accessKey,
		refreshKey: refreshKey,
		accessTTL:  cfg.GetAccessTokenTTL(),
		refreshTTL: cfg.GetRefreshTokenTTL(),
		issuer:     cfg.GetIssuer(),
		audience:   jwt.ClaimStrings(cfg.GetAudience()),
		leeway:     ClockSkewLeeway,
		now:        time.Now,
		logger:     defLogger{},
	}
}

func (ts *TokenServiceImpl) WithLogger(logger Logger) *TokenServiceImpl {
	if logger != nil {
		ts.logger = logger
	}
	return ts
}

// WithClock overrides the time source, mostly for expiry tests.
func (ts *TokenServiceImpl) WithClock(now func() time.Time) *TokenServiceImpl {
	if now != nil {
		ts.now = now
	}
	return ts
}

// IssueAccessToken encodes {accountId, role, exp} signed with the access secret.
func (ts *TokenServiceImpl) IssueAccessToken(identity Identity) (string, time.Time, error) {
	if identity == nil {
		return "", time.Time{}, goerrors.New("identity is required", goerrors.CategoryBadInput)
	}

	now := ts.now()
	expiresAt := now.Add(ts.accessTTL)

	claims := &AccessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   identity.ID(),
			Audience:  ts.aud(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID:      identity.ID(),
		UserRole: identity.Role(),
	}

	ensureTokenID(&claims.RegisteredClaims)

	token, err := ts.sign(claims, ts.accessKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// IssueRefreshToken encodes {accountId, exp} signed with the refresh secret.
func (ts *TokenServiceImpl) IssueRefreshToken(accountID string) (string, time.Time, error) {
	if accountID == "" {
		return "", time.Time{}, goerrors.New("account id is required", goerrors.CategoryBadInput)
	}

	now := ts.now()
	expiresAt := now.Add(ts.refreshTTL)

	claims := &RefreshClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    ts.issuer,
			Subject:   accountID,
			Audience:  ts.aud(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		UID: accountID,
	}

	ensureTokenID(&claims.RegisteredClaims)

	token, err := ts.sign(claims, ts.refreshKey)
	if err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// VerifyAccessToken parses and validates an access token string.
func (ts *TokenServiceImpl) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := ts.verify(tokenString, claims, ts.accessKey); err != nil {
		return nil, err
	}
	return claims, nil
}

// VerifyRefreshToken parses and validates a refresh token string. A stored
// value comparison still has to happen on top of this.
func (ts *TokenServiceImpl) VerifyRefreshToken(tokenString string) (*RefreshClaims, error) {
	claims := &RefreshClaims{}
	if err := ts.verify(tokenString, claims, ts.refreshKey); err != nil {
		return nil, err
	}
	return claims, nil
}

func (ts *TokenServiceImpl) sign(claims jwt.Claims, key SigningKey) (string, error) {
	if key.isZero() {
		return "", goerrors.New("signing key is not configured", goerrors.CategoryInternal)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(key.Current)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign JWT")
	}

	return signedString, nil
}

// verify tries the current secret first, then the previous one so tokens
// signed before a key rotation keep verifying through the grace window.
func (ts *TokenServiceImpl) verify(tokenString string, claims jwt.Claims, key SigningKey) error {
	err := ts.parse(tokenString, claims, key.Current)
	if err == nil {
		return nil
	}

	if len(key.Previous) > 0 && goerrors.Is(err, jwt.ErrTokenSignatureInvalid) {
		if prevErr := ts.parse(tokenString, claims, key.Previous); prevErr == nil {
			return nil
		}
	}

	return ts.mapTokenError(err)
}

func (ts *TokenServiceImpl) parse(tokenString string, claims jwt.Claims, secret []byte) error {
	parserOptions := []jwt.ParserOption{
		jwt.WithLeeway(ts.leeway),
		jwt.WithTimeFunc(ts.now),
	}
	if ts.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(ts.issuer))
	}
	if len(ts.audience) > 0 {
		parserOptions = append(parserOptions, jwt.WithAudience(ts.audience...))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			ts.logger.Error("TokenService verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	}, parserOptions...)

	if err != nil {
		return err
	}

	if !token.Valid {
		return jwt.ErrTokenUnverifiable
	}

	return nil
}

func (ts *TokenServiceImpl) mapTokenError(err error) error {
	switch {
	case goerrors.Is(err, jwt.ErrTokenExpired):
		return ErrTokenExpired
	case goerrors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrTokenSignatureInvalid
	default:
		return goerrors.Wrap(err, ErrTokenMalformed.Category, ErrTokenMalformed.Message).
			WithTextCode(ErrTokenMalformed.TextCode)
	}
}

func (ts *TokenServiceImpl) aud() jwt.ClaimStrings {
	if len(ts.audience) == 0 {
		return nil
	}
	aud := make(jwt.ClaimStrings, len(ts.audience))
	copy(aud, ts.audience)
	return aud
}

var _ TokenService = (*TokenServiceImpl)(nil)
