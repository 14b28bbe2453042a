package ocspkit

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
)

var (
	// ErrRevoked is returned when the responder reports the certificate revoked.
	ErrRevoked = errors.New("certificate revoked")
	// ErrCheckFailed is returned whenever good standing cannot be confirmed:
	// transport errors, timeouts, unknown status and stale responses.
	ErrCheckFailed = errors.New("revocation check failed")
)

// DefaultResponseSkew is the tolerance applied to OCSP thisUpdate/nextUpdate.
const DefaultResponseSkew = 15 * time.Minute

// Status is the revocation status of a certificate.
type Status int

const (
	StatusUnknown Status = iota
	StatusGood
	StatusRevoked
)

// String returns a string representation of the revocation status.
func (s Status) String() string {
	switch s {
	case StatusGood:
		return "good"
	case StatusRevoked:
		return "revoked"
	default:
		return "unknown"
	}
}

// Checker bounds responder calls by a timeout and classifies the result.
type Checker struct {
	responder Responder
	clock     clockwork.Clock
	skew      time.Duration
	logger    logrus.FieldLogger
}

// CheckerOpt configures a Checker.
type CheckerOpt func(*Checker)

// WithClock sets the time source for response freshness checks.
func WithClock(c clockwork.Clock) CheckerOpt {
	return func(ch *Checker) {
		ch.clock = c
	}
}

// WithResponseSkew sets the tolerance applied to response update times.
func WithResponseSkew(d time.Duration) CheckerOpt {
	return func(ch *Checker) {
		if d > 0 {
			ch.skew = d
		}
	}
}

// WithLogger sets the logger for transport failures.
func WithLogger(l logrus.FieldLogger) CheckerOpt {
	return func(ch *Checker) {
		if l != nil {
			ch.logger = l
		}
	}
}

// NewChecker creates a Checker. A nil responder uses NewHTTPResponder().
func NewChecker(responder Responder, opts ...CheckerOpt) *Checker {
	if responder == nil {
		responder = NewHTTPResponder()
	}
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	c := &Checker{
		responder: responder,
		clock:     clockwork.NewRealClock(),
		skew:      DefaultResponseSkew,
		logger:    discard,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type checkResult struct {
	resp *Response
	err  error
}

// Check asks the responder for the status of cert. It returns within
// timeout even if the responder ignores context cancellation.
// Only StatusGood comes back with a nil error.
func (c *Checker) Check(ctx context.Context, cert, issuer *x509.Certificate, timeout time.Duration) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan checkResult, 1)
	go func() {
		resp, err := c.responder.Check(ctx, cert, issuer)
		ch <- checkResult{resp: resp, err: err}
	}()

	var res checkResult
	select {
	case <-ctx.Done():
		c.logger.WithError(ctx.Err()).WithField("timeout", timeout).Warn("ocsp request did not complete in time")
		return StatusUnknown, fmt.Errorf("%w: %w", ErrCheckFailed, ctx.Err())
	case res = <-ch:
	}
	if res.err != nil {
		c.logger.WithError(res.err).Warn("ocsp request failed")
		return StatusUnknown, fmt.Errorf("%w: %w", ErrCheckFailed, res.err)
	}
	if res.resp == nil {
		return StatusUnknown, fmt.Errorf("%w: empty response", ErrCheckFailed)
	}
	if err := c.checkFreshness(res.resp); err != nil {
		return StatusUnknown, err
	}

	switch res.resp.Status {
	case StatusGood:
		return StatusGood, nil
	case StatusRevoked:
		return StatusRevoked, fmt.Errorf("%w: at %s, reason %d", ErrRevoked,
			res.resp.RevokedAt.UTC().Format(time.RFC3339), res.resp.RevocationReason)
	default:
		return StatusUnknown, fmt.Errorf("%w: responder returned unknown status", ErrCheckFailed)
	}
}

func (c *Checker) checkFreshness(r *Response) error {
	now := c.clock.Now()
	if r.ThisUpdate.After(now.Add(c.skew)) {
		return fmt.Errorf("%w: response thisUpdate %s is in the future", ErrCheckFailed,
			r.ThisUpdate.UTC().Format(time.RFC3339))
	}
	if !r.NextUpdate.IsZero() && r.NextUpdate.Before(now.Add(-c.skew)) {
		return fmt.Errorf("%w: response nextUpdate %s has passed", ErrCheckFailed,
			r.NextUpdate.UTC().Format(time.RFC3339))
	}
	return nil
}
