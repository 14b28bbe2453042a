// Package config assembles a validator and its collaborators from
// WEBEID_* environment variables.
package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"

	noncekit "github.com/PaulFidika/webeid/nonce"
	"github.com/PaulFidika/webeid/validator"
)

// Settings are read from the environment by Load. TrustedCAPaths is a
// comma-separated list of PEM or DER files and directories holding them.
type Settings struct {
	SiteOrigin          string        `envconfig:"WEBEID_SITE_ORIGIN" required:"true"`
	TrustedCAPaths      []string      `envconfig:"WEBEID_TRUSTED_CA_PATHS" required:"true"`
	OCSPDisabled        bool          `envconfig:"WEBEID_OCSP_DISABLED"`
	OCSPTimeout         time.Duration `envconfig:"WEBEID_OCSP_TIMEOUT" default:"5s"`
	OCSPResponderURL    string        `envconfig:"WEBEID_OCSP_RESPONDER_URL"`
	ClockSkew           time.Duration `envconfig:"WEBEID_CLOCK_SKEW" default:"3m"`
	NonceTTL            time.Duration `envconfig:"WEBEID_NONCE_TTL" default:"5m"`
	SiteCertFingerprint string        `envconfig:"WEBEID_SITE_CERT_FINGERPRINT"`
	RedisAddr           string        `envconfig:"WEBEID_REDIS_ADDR"`
	PostgresDSN         string        `envconfig:"WEBEID_POSTGRES_DSN"`
	PostgresAutoMigrate bool          `envconfig:"WEBEID_POSTGRES_AUTO_MIGRATE"`
	LogLevel            string        `envconfig:"WEBEID_LOG_LEVEL" default:"info"`
}

// Load reads Settings from the environment.
func Load() (Settings, error) {
	var s Settings
	err := envconfig.Process("", &s)
	return s, err
}

// Logger returns a logger at the configured level.
func (s Settings) Logger() (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(s.LogLevel)
	if err != nil {
		return nil, err
	}
	l := logrus.New()
	l.SetLevel(lvl)
	l.SetFormatter(&logrus.JSONFormatter{})
	return l, nil
}

// Builder maps the settings onto a validator.Builder. CA certificates are
// loaded from TrustedCAPaths.
func (s Settings) Builder(store noncekit.Store) (*validator.Builder, error) {
	cas, err := LoadTrustedCAs(s.TrustedCAPaths)
	if err != nil {
		return nil, err
	}
	b := validator.NewBuilder().
		WithSiteOrigin(s.SiteOrigin).
		WithNonceStore(store).
		WithTrustedCertificateAuthorities(cas...).
		WithOCSP(!s.OCSPDisabled).
		WithOCSPTimeout(s.OCSPTimeout).
		WithOCSPResponderURL(s.OCSPResponderURL).
		WithAllowedClockSkew(s.ClockSkew).
		WithNonceTTL(s.NonceTTL)
	if s.SiteCertFingerprint != "" {
		b.WithSiteCertificateFingerprint(s.SiteCertFingerprint)
	}
	return b, nil
}

// NewValidator builds a validated Validator for store.
func NewValidator(s Settings, store noncekit.Store, opts ...validator.Option) (*validator.Validator, error) {
	b, err := s.Builder(store)
	if err != nil {
		return nil, err
	}
	cfg, err := b.Build()
	if err != nil {
		return nil, err
	}
	return validator.New(cfg, opts...)
}
