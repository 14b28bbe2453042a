// Package validator validates Web eID authentication tokens: it checks the
// user certificate against trusted CAs, verifies the token signature with
// it, consumes the single-use nonce and binds the token to the site origin.
//
// Example usage:
//
//	cfg, err := validator.NewBuilder().
//		WithSiteOrigin("https://ria.ee").
//		WithNonceStore(store).
//		WithTrustedCertificateAuthorities(cas...).
//		Build()
//	if err != nil {
//		return err
//	}
//	v, err := validator.New(cfg, validator.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	identity, err := v.Validate(ctx, token)
package validator

import (
	"context"
	"crypto/x509"
	"errors"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"

	jwtkit "github.com/PaulFidika/webeid/jwt"
	noncekit "github.com/PaulFidika/webeid/nonce"
	ocspkit "github.com/PaulFidika/webeid/ocsp"
)

// RevocationChecker reports whether cert is in good standing. Only a
// nil error means good.
type RevocationChecker interface {
	Check(ctx context.Context, cert, issuer *x509.Certificate, timeout time.Duration) (ocspkit.Status, error)
}

// Validator validates authentication tokens. It is safe for concurrent use.
type Validator struct {
	cfg        *Config
	guard      *noncekit.Guard
	clock      clockwork.Clock
	logger     logrus.FieldLogger
	trust      TrustVerifier
	revocation RevocationChecker
	responder  ocspkit.Responder
}

// Option configures a Validator.
type Option func(*Validator)

// WithClock sets the time source used by every time-dependent check.
func WithClock(c clockwork.Clock) Option {
	return func(v *Validator) {
		v.clock = c
	}
}

// WithLogger sets the logger. By default nothing is logged.
func WithLogger(l logrus.FieldLogger) Option {
	return func(v *Validator) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithTrustVerifier replaces crypto/x509 path validation.
func WithTrustVerifier(t TrustVerifier) Option {
	return func(v *Validator) {
		v.trust = t
	}
}

// WithRevocationChecker replaces the OCSP checker entirely.
func WithRevocationChecker(r RevocationChecker) Option {
	return func(v *Validator) {
		v.revocation = r
	}
}

// WithOCSPResponder keeps the default checker but sends requests through r.
func WithOCSPResponder(r ocspkit.Responder) Option {
	return func(v *Validator) {
		v.responder = r
	}
}

// New creates a Validator from cfg. cfg is validated again and copied.
func New(cfg *Config, opts ...Option) (*Validator, error) {
	if cfg == nil {
		return nil, errors.New("validator: nil config")
	}
	cfg = cfg.Clone()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)
	v := &Validator{
		cfg:    cfg,
		clock:  clockwork.NewRealClock(),
		logger: discard,
		trust:  X509TrustVerifier{},
	}
	for _, opt := range opts {
		opt(v)
	}

	v.guard = noncekit.NewGuard(cfg.nonceStore, cfg.nonceTTL, cfg.clockSkew)
	if cfg.ocspEnabled && v.revocation == nil {
		responder := v.responder
		if responder == nil {
			var ropts []ocspkit.ResponderOpt
			if cfg.ocspResponderURL != "" {
				ropts = append(ropts, ocspkit.WithResponderURL(cfg.ocspResponderURL))
			}
			responder = ocspkit.NewHTTPResponder(ropts...)
		}
		v.revocation = ocspkit.NewChecker(responder,
			ocspkit.WithClock(v.clock),
			ocspkit.WithLogger(v.logger),
		)
	}
	return v, nil
}

// Config returns the configuration in use.
func (v *Validator) Config() *Config { return v.cfg.Clone() }

// Validate runs every check against raw and returns the certificate
// subject on success. Every failure is an *Error; the first failing check
// ends validation. The nonce is consumed once the signature has verified,
// so a token rejected by a later check cannot be retried.
func (v *Validator) Validate(ctx context.Context, raw string) (*Identity, error) {
	log := v.logger.WithField("validation_id", uuid.NewString())

	identity, err := v.validate(ctx, raw, v.clock.Now())
	if err != nil {
		var ve *Error
		if errors.As(err, &ve) {
			log = log.WithFields(logrus.Fields{
				"kind":   ve.Kind.String(),
				"step":   ve.Step.String(),
				"detail": ve.Detail,
			})
		}
		log.WithError(err).Info("authentication token rejected")
		return nil, err
	}

	log.WithField("subject", identity.CommonName).Debug("authentication token validated")
	return identity, nil
}

func (v *Validator) validate(ctx context.Context, raw string, now time.Time) (*Identity, error) {
	tok, err := jwtkit.Parse(raw)
	if err != nil {
		return nil, newError(TokenMalformed, StepParseToken, "", err)
	}

	chain, err := ExtractChain(tok.Header)
	if err != nil {
		return nil, err
	}
	leaf := chain.Leaf()

	if err := CheckPurpose(leaf); err != nil {
		return nil, err
	}

	if err := checkValidityPeriod(chain, now); err != nil {
		return nil, err
	}
	path, err := v.trust.VerifyChain(chain, v.cfg.trustedCAs, now)
	if err != nil {
		return nil, newError(ChainOfTrustFailed, StepValidateChainOfTrust, "user certificate is not trusted", err)
	}

	if err := jwtkit.Verify(tok, leaf.PublicKey); err != nil {
		return nil, newError(SignatureInvalid, StepVerifySignature, "", err)
	}

	if err := v.guard.Consume(ctx, tok.Claims.Nonce, now); err != nil {
		switch {
		case errors.Is(err, noncekit.ErrNotFound):
			return nil, newError(NonceNotFoundOrExpired, StepCheckNonce, "", err)
		case errors.Is(err, noncekit.ErrExpired):
			return nil, newError(NonceExpired, StepCheckNonce, "", err)
		default:
			return nil, newError(NonceStoreFailed, StepCheckNonce, "", err)
		}
	}

	if err := checkTimeValidity(tok.Claims, now, v.cfg.clockSkew); err != nil {
		return nil, err
	}

	if err := sameOrigin(v.cfg.siteOrigin, tok.Origin()); err != nil {
		return nil, newError(OriginMismatch, StepCheckOrigin, err.Error(), nil)
	}

	if v.cfg.fingerprintEnabled {
		if err := checkFingerprint(tok.Claims.Audience, v.cfg.siteCertFingerprint); err != nil {
			return nil, err
		}
	}

	if v.cfg.ocspEnabled {
		issuer := leaf
		if len(path) > 1 {
			issuer = path[1]
		}
		if _, err := v.revocation.Check(ctx, leaf, issuer, v.cfg.ocspTimeout); err != nil {
			if errors.Is(err, ocspkit.ErrRevoked) {
				return nil, newError(CertificateRevoked, StepCheckRevocation, "", err)
			}
			return nil, newError(RevocationCheckFailed, StepCheckRevocation, "", err)
		}
	}

	return identityFromCertificate(leaf), nil
}
