package credentials

import (
	"time"

	"github.com/caarlos0/env/v11"
	goerrors "github.com/goliatone/go-errors"
)

// EnvConfig is the process wide configuration, loaded once at startup and
// injected into the token service and manager as explicit dependencies.
// Signing material is never read ad hoc after boot.
type EnvConfig struct {
	AccessSigningKey          string        `env:"ACCESS_TOKEN_SECRET,required"`
	RefreshSigningKey         string        `env:"REFRESH_TOKEN_SECRET,required"`
	PreviousAccessSigningKey  string        `env:"PREVIOUS_ACCESS_TOKEN_SECRET"`
	PreviousRefreshSigningKey string        `env:"PREVIOUS_REFRESH_TOKEN_SECRET"`
	AccessTokenTTL            time.Duration `env:"ACCESS_TOKEN_TTL" envDefault:"15m"`
	RefreshTokenTTL           time.Duration `env:"REFRESH_TOKEN_TTL" envDefault:"168h"`
	Issuer                    string        `env:"TOKEN_ISSUER" envDefault:"go-credentials"`
	Audience                  []string      `env:"TOKEN_AUDIENCE" envSeparator:","`
	BaseURL                   string        `env:"BASE_URL" envDefault:"http://localhost:5000"`
	ClientBaseURL             string        `env:"CLIENT_BASE_URL" envDefault:"http://localhost:5173"`

	HTTPAddr       string   `env:"HTTP_ADDR" envDefault:":5000"`
	DatabaseDSN    string   `env:"DATABASE_DSN" envDefault:"file:credentials.db?cache=shared&mode=rwc"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`

	SMTPHost     string `env:"SMTP_HOST"`
	SMTPPort     int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUsername string `env:"EMAIL_USER"`
	SMTPPassword string `env:"EMAIL_PASS"`
	SMTPFrom     string `env:"EMAIL_FROM"`
}

// LoadConfig parses the environment.
func LoadConfig() (*EnvConfig, error) {
	cfg := &EnvConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to parse environment configuration")
	}
	return cfg, nil
}

func (c *EnvConfig) GetAccessSigningKey() string           { return c.AccessSigningKey }
func (c *EnvConfig) GetRefreshSigningKey() string          { return c.RefreshSigningKey }
func (c *EnvConfig) GetPreviousAccessSigningKey() string   { return c.PreviousAccessSigningKey }
func (c *EnvConfig) GetPreviousRefreshSigningKey() string  { return c.PreviousRefreshSigningKey }
func (c *EnvConfig) GetAccessTokenTTL() time.Duration      { return c.AccessTokenTTL }
func (c *EnvConfig) GetRefreshTokenTTL() time.Duration     { return c.RefreshTokenTTL }
func (c *EnvConfig) GetIssuer() string                     { return c.Issuer }
func (c *EnvConfig) GetAudience() []string                 { return c.Audience }
func (c *EnvConfig) GetBaseURL() string                    { return c.BaseURL }
func (c *EnvConfig) GetClientBaseURL() string              { return c.ClientBaseURL }

var _ Config = (*EnvConfig)(nil)

// AccessKeys assembles the access signing key pair, previous key included
// when a rotation grace window is active.
func (c *EnvConfig) AccessKeys() SigningKey {
	return signingKeyFrom(c.AccessSigningKey, c.PreviousAccessSigningKey)
}

// RefreshKeys assembles the refresh signing key pair.
func (c *EnvConfig) RefreshKeys() SigningKey {
	return signingKeyFrom(c.RefreshSigningKey, c.PreviousRefreshSigningKey)
}

func signingKeyFrom(current, previous string) SigningKey {
	key := SigningKey{Current: []byte(current)}
	if previous != "" {
		key.Previous = []byte(previous)
	}
	return key
}
