package validator

import (
	"crypto/x509"
	"net/url"
	"slices"
	"time"

	noncekit "github.com/PaulFidika/webeid/nonce"
)

// Defaults applied by NewBuilder.
const (
	DefaultOCSPTimeout      = 5 * time.Second
	DefaultAllowedClockSkew = 3 * time.Minute
	DefaultNonceTTL         = noncekit.DefaultTTL
)

// Config holds validation settings. It is immutable once built and safe
// to share between goroutines.
type Config struct {
	siteOrigin          *url.URL
	siteOriginErr       error
	nonceStore          noncekit.Store
	trustedCAs          []*x509.Certificate
	ocspEnabled         bool
	ocspTimeout         time.Duration
	ocspResponderURL    string
	clockSkew           time.Duration
	nonceTTL            time.Duration
	fingerprintEnabled  bool
	siteCertFingerprint string
}

// SiteOrigin returns a copy of the configured origin.
func (c *Config) SiteOrigin() *url.URL {
	if c.siteOrigin == nil {
		return nil
	}
	u := *c.siteOrigin
	return &u
}

func (c *Config) NonceStore() noncekit.Store { return c.nonceStore }

// TrustedCAs returns a copy of the trusted CA list.
func (c *Config) TrustedCAs() []*x509.Certificate { return slices.Clone(c.trustedCAs) }

func (c *Config) OCSPEnabled() bool { return c.ocspEnabled }

func (c *Config) OCSPTimeout() time.Duration { return c.ocspTimeout }

func (c *Config) OCSPResponderURL() string { return c.ocspResponderURL }

func (c *Config) AllowedClockSkew() time.Duration { return c.clockSkew }

func (c *Config) NonceTTL() time.Duration { return c.nonceTTL }

// FingerprintEnabled reports whether a site certificate fingerprint was set.
func (c *Config) FingerprintEnabled() bool { return c.fingerprintEnabled }

func (c *Config) SiteCertificateFingerprint() string { return c.siteCertFingerprint }

// Clone returns a deep copy of c.
func (c *Config) Clone() *Config {
	cp := *c
	cp.siteOrigin = c.SiteOrigin()
	cp.trustedCAs = slices.Clone(c.trustedCAs)
	return &cp
}

// Validate checks the settings in order and returns the first violation.
func (c *Config) Validate() error {
	if c.siteOriginErr != nil {
		return newError(InvalidOrigin, StepConfig, "origin URL does not parse", c.siteOriginErr)
	}
	if err := checkOriginURL(c.siteOrigin); err != nil {
		return newError(InvalidOrigin, StepConfig, err.Error(), nil)
	}
	if c.nonceStore == nil {
		return newError(MissingNonceStore, StepConfig, "nonce store must not be nil", nil)
	}
	if len(c.trustedCAs) == 0 {
		return newError(NoTrustedCAs, StepConfig, "at least one trusted certificate authority must be provided", nil)
	}
	for _, d := range []struct {
		field string
		value time.Duration
	}{
		{"ocsp request timeout", c.ocspTimeout},
		{"allowed clock skew", c.clockSkew},
		{"nonce ttl", c.nonceTTL},
	} {
		if d.value <= 0 {
			e := newError(InvalidDuration, StepConfig, d.field+" must be positive", nil)
			e.Field = d.field
			return e
		}
	}
	if c.fingerprintEnabled && c.siteCertFingerprint == "" {
		return newError(MissingFingerprint, StepConfig, "fingerprint must be set when site certificate fingerprint validation is enabled", nil)
	}
	return nil
}

// Builder assembles a Config.
//
//	cfg, err := validator.NewBuilder().
//		WithSiteOrigin("https://ria.ee").
//		WithNonceStore(store).
//		WithTrustedCertificateAuthorities(esteid2018).
//		Build()
type Builder struct {
	cfg Config
}

// NewBuilder returns a Builder with OCSP enabled and default durations.
func NewBuilder() *Builder {
	return &Builder{cfg: Config{
		ocspEnabled: true,
		ocspTimeout: DefaultOCSPTimeout,
		clockSkew:   DefaultAllowedClockSkew,
		nonceTTL:    DefaultNonceTTL,
	}}
}

// WithSiteOrigin parses origin, e.g. "https://ria.ee". Parse failures are
// reported by Build as InvalidOrigin.
func (b *Builder) WithSiteOrigin(origin string) *Builder {
	u, err := url.Parse(origin)
	b.cfg.siteOrigin, b.cfg.siteOriginErr = u, err
	return b
}

func (b *Builder) WithSiteOriginURL(u *url.URL) *Builder {
	b.cfg.siteOriginErr = nil
	if u == nil {
		b.cfg.siteOrigin = nil
		return b
	}
	cp := *u
	b.cfg.siteOrigin = &cp
	return b
}

func (b *Builder) WithNonceStore(s noncekit.Store) *Builder {
	b.cfg.nonceStore = s
	return b
}

// WithTrustedCertificateAuthorities adds CA certificates to the trust set.
func (b *Builder) WithTrustedCertificateAuthorities(certs ...*x509.Certificate) *Builder {
	for _, c := range certs {
		if c != nil {
			b.cfg.trustedCAs = append(b.cfg.trustedCAs, c)
		}
	}
	return b
}

func (b *Builder) WithOCSP(enabled bool) *Builder {
	b.cfg.ocspEnabled = enabled
	return b
}

// WithoutOCSP disables revocation checking.
func (b *Builder) WithoutOCSP() *Builder { return b.WithOCSP(false) }

func (b *Builder) WithOCSPTimeout(d time.Duration) *Builder {
	b.cfg.ocspTimeout = d
	return b
}

// WithOCSPResponderURL overrides the responder named in certificate AIA.
func (b *Builder) WithOCSPResponderURL(u string) *Builder {
	b.cfg.ocspResponderURL = u
	return b
}

func (b *Builder) WithAllowedClockSkew(d time.Duration) *Builder {
	b.cfg.clockSkew = d
	return b
}

// WithNonceTTL sets how long an issued nonce remains acceptable.
func (b *Builder) WithNonceTTL(d time.Duration) *Builder {
	b.cfg.nonceTTL = d
	return b
}

// WithSiteCertificateFingerprint enables fingerprint validation against
// the SHA-256 fingerprint of the site TLS certificate. Both bare hex and
// "urn:cert:sha-256:<hex>" are accepted.
func (b *Builder) WithSiteCertificateFingerprint(fp string) *Builder {
	b.cfg.fingerprintEnabled = true
	b.cfg.siteCertFingerprint = fp
	return b
}

// Build validates and returns a copy of the accumulated settings. Later
// changes to the Builder do not affect the returned Config.
func (b *Builder) Build() (*Config, error) {
	cfg := b.cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
