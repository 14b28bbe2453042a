package validator_test

import (
	"crypto/x509"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	memorystore "github.com/PaulFidika/webeid/storage/memory"
	webeidtest "github.com/PaulFidika/webeid/testing"
	"github.com/PaulFidika/webeid/validator"
)

func validBuilder(t *testing.T) *validator.Builder {
	t.Helper()
	store := memorystore.NewNonceStore()
	t.Cleanup(func() { _ = store.Close() })
	ca := webeidtest.NewTestCA("Test eID Root CA")
	return validator.NewBuilder().
		WithSiteOrigin("https://ria.ee").
		WithNonceStore(store).
		WithTrustedCertificateAuthorities(ca.Certificate)
}

func TestBuilder_Defaults(t *testing.T) {
	cfg, err := validBuilder(t).Build()
	require.NoError(t, err)
	assert.True(t, cfg.OCSPEnabled())
	assert.Equal(t, 5*time.Second, cfg.OCSPTimeout())
	assert.Equal(t, 3*time.Minute, cfg.AllowedClockSkew())
	assert.Equal(t, 5*time.Minute, cfg.NonceTTL())
	assert.False(t, cfg.FingerprintEnabled())
	assert.Equal(t, "https://ria.ee", cfg.SiteOrigin().String())
	assert.Len(t, cfg.TrustedCAs(), 1)
}

func TestConfig_Validate(t *testing.T) {
	cases := []struct {
		name  string
		build func(*validator.Builder)
		kind  validator.Kind
		field string
	}{
		{"missing origin", func(b *validator.Builder) { b.WithSiteOriginURL(nil) }, validator.InvalidOrigin, ""},
		{"unparseable origin", func(b *validator.Builder) { b.WithSiteOrigin("https://ria.ee:port") }, validator.InvalidOrigin, ""},
		{"origin with path", func(b *validator.Builder) { b.WithSiteOrigin("https://ria.ee/auth") }, validator.InvalidOrigin, ""},
		{"origin with trailing slash", func(b *validator.Builder) { b.WithSiteOrigin("https://ria.ee/") }, validator.InvalidOrigin, ""},
		{"origin with query", func(b *validator.Builder) { b.WithSiteOrigin("https://ria.ee?x=1") }, validator.InvalidOrigin, ""},
		{"origin with fragment", func(b *validator.Builder) { b.WithSiteOrigin("https://ria.ee#top") }, validator.InvalidOrigin, ""},
		{"origin ftp scheme", func(b *validator.Builder) { b.WithSiteOrigin("ftp://ria.ee") }, validator.InvalidOrigin, ""},
		{"origin without host", func(b *validator.Builder) { b.WithSiteOrigin("https://") }, validator.InvalidOrigin, ""},
		{"origin with userinfo", func(b *validator.Builder) { b.WithSiteOrigin("https://user@ria.ee") }, validator.InvalidOrigin, ""},
		{"relative origin", func(b *validator.Builder) { b.WithSiteOrigin("ria.ee") }, validator.InvalidOrigin, ""},
		{"missing nonce store", func(b *validator.Builder) { b.WithNonceStore(nil) }, validator.MissingNonceStore, ""},
		{"zero ocsp timeout", func(b *validator.Builder) { b.WithOCSPTimeout(0) }, validator.InvalidDuration, "ocsp request timeout"},
		{"negative skew", func(b *validator.Builder) { b.WithAllowedClockSkew(-time.Second) }, validator.InvalidDuration, "allowed clock skew"},
		{"zero nonce ttl", func(b *validator.Builder) { b.WithNonceTTL(0) }, validator.InvalidDuration, "nonce ttl"},
		{"empty fingerprint", func(b *validator.Builder) { b.WithSiteCertificateFingerprint("") }, validator.MissingFingerprint, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := validBuilder(t)
			tc.build(b)
			_, err := b.Build()
			requireKind(t, err, tc.kind)
			assert.Equal(t, validator.CategoryConfiguration, validator.KindOf(err).Category())

			var ve *validator.Error
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, validator.StepConfig, ve.Step)
			assert.Equal(t, tc.field, ve.Field)
		})
	}
}

func TestConfig_NoTrustedCAs(t *testing.T) {
	store := memorystore.NewNonceStore()
	defer store.Close()
	_, err := validator.NewBuilder().
		WithSiteOrigin("https://ria.ee").
		WithNonceStore(store).
		WithTrustedCertificateAuthorities().
		Build()
	requireKind(t, err, validator.NoTrustedCAs)
	require.ErrorIs(t, err, validator.ErrNoTrustedCAs)
}

func TestConfig_FailFastOrder(t *testing.T) {
	// Every field is wrong; the origin is reported first.
	_, err := validator.NewBuilder().
		WithSiteOrigin("ftp://x/y").
		WithOCSPTimeout(0).
		WithSiteCertificateFingerprint("").
		Build()
	requireKind(t, err, validator.InvalidOrigin)

	_, err = validator.NewBuilder().
		WithSiteOrigin("https://ria.ee").
		WithOCSPTimeout(0).
		Build()
	requireKind(t, err, validator.MissingNonceStore)
}

func TestConfig_AcceptedOrigins(t *testing.T) {
	for _, origin := range []string{"https://ria.ee", "http://localhost:8080", "https://[::1]:8443", "HTTPS://Ria.EE"} {
		_, err := validBuilder(t).WithSiteOrigin(origin).Build()
		require.NoError(t, err, origin)
	}
}

func TestBuilder_BuildIsIsolated(t *testing.T) {
	b := validBuilder(t)
	u, err := url.Parse("https://ria.ee")
	require.NoError(t, err)
	b.WithSiteOriginURL(u)

	cfg, err := b.Build()
	require.NoError(t, err)

	u.Host = "evil.ee"
	b.WithTrustedCertificateAuthorities(webeidtest.NewTestCA("Another CA").Certificate)
	b.WithAllowedClockSkew(time.Hour)

	assert.Equal(t, "ria.ee", cfg.SiteOrigin().Host)
	assert.Len(t, cfg.TrustedCAs(), 1)
	assert.Equal(t, 3*time.Minute, cfg.AllowedClockSkew())

	cas := cfg.TrustedCAs()
	cas[0] = &x509.Certificate{}
	assert.NotSame(t, cas[0], cfg.TrustedCAs()[0])
}

func TestConfig_CloneIsDeep(t *testing.T) {
	cfg, err := validBuilder(t).WithSiteCertificateFingerprint("ab:cd").Build()
	require.NoError(t, err)
	cp := cfg.Clone()
	assert.Equal(t, cfg.SiteOrigin().String(), cp.SiteOrigin().String())
	assert.Equal(t, cfg.TrustedCAs(), cp.TrustedCAs())
	assert.True(t, cp.FingerprintEnabled())
	assert.Equal(t, "ab:cd", cp.SiteCertificateFingerprint())
}
