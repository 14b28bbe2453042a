// Package ocspkit checks certificate revocation status over OCSP.
package ocspkit

import (
	"bytes"
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/ocsp"
)

var (
	// ErrNoResponderURL is returned when neither the certificate AIA nor
	// the configuration names an OCSP responder.
	ErrNoResponderURL = errors.New("ocsp: no responder url")
	// ErrResponseParse is returned for responses that fail to parse or
	// verify against the issuer.
	ErrResponseParse = errors.New("ocsp: response parse failed")
)

const (
	defaultMaxResponseSize = 1 << 20
	defaultUserAgent       = "webeid-validator/1.0"
)

// Response is the part of an OCSP response the checker acts on.
type Response struct {
	Status           Status
	ThisUpdate       time.Time
	NextUpdate       time.Time
	RevokedAt        time.Time
	RevocationReason int
}

// Responder sends a status request for cert to an OCSP responder.
type Responder interface {
	Check(ctx context.Context, cert, issuer *x509.Certificate) (*Response, error)
}

// HTTPResponder talks to OCSP responders over HTTP POST.
type HTTPResponder struct {
	client          *http.Client
	url             string
	userAgent       string
	maxResponseSize int64
}

// ResponderOpt configures an HTTPResponder.
type ResponderOpt func(*HTTPResponder)

// WithHTTPClient sets the HTTP client. The client timeout, if any, applies
// in addition to the context deadline set by the Checker.
func WithHTTPClient(c *http.Client) ResponderOpt {
	return func(r *HTTPResponder) {
		r.client = c
	}
}

// WithResponderURL overrides the responder URL found in the certificate AIA.
func WithResponderURL(u string) ResponderOpt {
	return func(r *HTTPResponder) {
		r.url = u
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) ResponderOpt {
	return func(r *HTTPResponder) {
		r.userAgent = ua
	}
}

// NewHTTPResponder creates an HTTP OCSP client.
func NewHTTPResponder(opts ...ResponderOpt) *HTTPResponder {
	r := &HTTPResponder{
		client:          &http.Client{},
		userAgent:       defaultUserAgent,
		maxResponseSize: defaultMaxResponseSize,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *HTTPResponder) responderURL(cert *x509.Certificate) (string, error) {
	if r.url != "" {
		return r.url, nil
	}
	if len(cert.OCSPServer) == 0 {
		return "", ErrNoResponderURL
	}
	return cert.OCSPServer[0], nil
}

// Check builds an OCSP request for cert, posts it and parses the reply.
func (r *HTTPResponder) Check(ctx context.Context, cert, issuer *x509.Certificate) (*Response, error) {
	serverURL, err := r.responderURL(cert)
	if err != nil {
		return nil, err
	}
	ocspReq, err := ocsp.CreateRequest(cert, issuer, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create OCSP request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, serverURL, bytes.NewReader(ocspReq))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/ocsp-request")
	req.Header.Set("Accept", "application/ocsp-response")
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("ocsp: responder returned HTTP %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, r.maxResponseSize))
	if err != nil {
		return nil, err
	}

	parsed, err := ocsp.ParseResponseForCert(body, cert, issuer)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseParse, err)
	}
	return &Response{
		Status:           statusFromOCSP(parsed.Status),
		ThisUpdate:       parsed.ThisUpdate,
		NextUpdate:       parsed.NextUpdate,
		RevokedAt:        parsed.RevokedAt,
		RevocationReason: parsed.RevocationReason,
	}, nil
}

func statusFromOCSP(s int) Status {
	switch s {
	case ocsp.Good:
		return StatusGood
	case ocsp.Revoked:
		return StatusRevoked
	default:
		return StatusUnknown
	}
}
