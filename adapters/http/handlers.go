// Package authhttp serves Web eID nonce issuance and login over plain
// net/http for applications that do not use gin.
package authhttp

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"

	"github.com/PaulFidika/webeid/validator"
)

// Rate limit buckets, shared with the gin adapter.
const (
	RLNonceIssue = "webeid_nonce_issue"
	RLLogin      = "webeid_login"
)

const maxBodyBytes = 64 << 10

type RateLimiter interface {
	AllowNamed(ctx context.Context, bucket, key string) (bool, error)
}

type NonceIssuer interface {
	Issue(ctx context.Context) (string, error)
}

type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*validator.Identity, error)
}

// NonceHandler issues a challenge nonce as {"nonce": "..."}.
func NonceHandler(gen NonceIssuer, rl RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}
		if !allow(r, rl, RLNonceIssue) {
			writeError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}
		n, err := gen.Issue(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "nonce_issue_failed")
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, map[string]string{"nonce": n})
	})
}

// LoginHandler validates {"auth_token": "..."} and responds with the
// certificate subject, or {"error": "<kind>"}.
func LoginHandler(v TokenValidator, rl RateLimiter) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			writeError(w, http.StatusMethodNotAllowed, "method_not_allowed")
			return
		}
		if !allow(r, rl, RLLogin) {
			writeError(w, http.StatusTooManyRequests, "rate_limited")
			return
		}

		var req struct {
			AuthToken string `json:"auth_token"`
		}
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		token := strings.TrimSpace(req.AuthToken)
		if token == "" {
			writeError(w, http.StatusBadRequest, "invalid_request")
			return
		}

		id, err := v.Validate(r.Context(), token)
		if err != nil {
			kind := validator.KindOf(err)
			status := http.StatusUnauthorized
			if kind.Category() == validator.CategoryInfrastructure {
				status = http.StatusServiceUnavailable
			}
			writeError(w, status, kind.String())
			return
		}
		writeJSON(w, http.StatusOK, id)
	})
}

// NewMux mounts both handlers under prefix, e.g. "/auth/webeid".
func NewMux(prefix string, gen NonceIssuer, v TokenValidator, rl RateLimiter) *http.ServeMux {
	prefix = strings.TrimRight(prefix, "/")
	mux := http.NewServeMux()
	mux.Handle(prefix+"/nonce", NonceHandler(gen, rl))
	mux.Handle(prefix+"/login", LoginHandler(v, rl))
	return mux
}

func allow(r *http.Request, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	ok, err := rl.AllowNamed(r.Context(), bucket, host)
	return err != nil || ok
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
