package testing

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"golang.org/x/crypto/ocsp"
)

// OCSPResponder is an HTTP OCSP responder answering for a TestCA.
// Call Close() when done to shut down the test server.
type OCSPResponder struct {
	server   *httptest.Server
	ca       *TestCA
	mu       sync.Mutex
	status   int
	delay    time.Duration
	requests int
}

// NewOCSPResponder starts a responder reporting every certificate as good.
func NewOCSPResponder(ca *TestCA) *OCSPResponder {
	r := &OCSPResponder{ca: ca, status: ocsp.Good}
	r.server = httptest.NewServer(http.HandlerFunc(r.handle))
	return r
}

// URL returns the responder URL to place in certificate AIA.
func (r *OCSPResponder) URL() string { return r.server.URL }

// Close shuts down the test server.
func (r *OCSPResponder) Close() { r.server.Close() }

// SetStatus sets the status reported for subsequent requests
// (ocsp.Good, ocsp.Revoked or ocsp.Unknown).
func (r *OCSPResponder) SetStatus(status int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

// SetDelay makes the responder wait before answering.
func (r *OCSPResponder) SetDelay(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.delay = d
}

// Requests returns how many OCSP requests were received.
func (r *OCSPResponder) Requests() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.requests
}

func (r *OCSPResponder) handle(w http.ResponseWriter, req *http.Request) {
	r.mu.Lock()
	r.requests++
	status, delay := r.status, r.delay
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-req.Context().Done():
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(req.Body, 1<<16))
	if err != nil {
		http.Error(w, "read failed", http.StatusBadRequest)
		return
	}
	ocspReq, err := ocsp.ParseRequest(body)
	if err != nil {
		http.Error(w, "malformed request", http.StatusBadRequest)
		return
	}

	now := time.Now()
	tmpl := ocsp.Response{
		Status:       status,
		SerialNumber: ocspReq.SerialNumber,
		ThisUpdate:   now.Add(-time.Minute),
		NextUpdate:   now.Add(time.Hour),
		IssuerHash:   ocspReq.HashAlgorithm,
	}
	if status == ocsp.Revoked {
		tmpl.RevokedAt = now.Add(-time.Hour)
		tmpl.RevocationReason = ocsp.KeyCompromise
	}
	der, err := ocsp.CreateResponse(r.ca.Certificate, r.ca.Certificate, tmpl, r.ca.Key)
	if err != nil {
		http.Error(w, "signing failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/ocsp-response")
	_, _ = w.Write(der)
}
