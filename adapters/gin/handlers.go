// Package authgin exposes Web eID nonce issuance and token validation as
// gin handlers.
package authgin

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/webeid/validator"
)

// NonceIssuer issues challenge nonces. noncekit.Generator implements it.
type NonceIssuer interface {
	Issue(ctx context.Context) (string, error)
}

// TokenValidator validates authentication tokens. *validator.Validator implements it.
type TokenValidator interface {
	Validate(ctx context.Context, raw string) (*validator.Identity, error)
}

// HandleNoncePOST issues a fresh challenge nonce.
func HandleNoncePOST(gen NonceIssuer, rl RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !AllowNamed(c, rl, RLNonceIssue) {
			TooMany(c)
			return
		}
		n, err := gen.Issue(c.Request.Context())
		if err != nil {
			ServerErr(c, "nonce_issue_failed")
			return
		}
		c.Header("Cache-Control", "no-store")
		c.JSON(http.StatusOK, gin.H{"nonce": n})
	}
}

// HandleLoginPOST validates {"auth_token": "..."} and responds with the
// certificate subject.
func HandleLoginPOST(v TokenValidator, rl RateLimiter) gin.HandlerFunc {
	type loginReq struct {
		AuthToken string `json:"auth_token"`
	}
	return func(c *gin.Context) {
		if !AllowNamed(c, rl, RLLogin) {
			TooMany(c)
			return
		}

		var req loginReq
		if err := c.ShouldBindJSON(&req); err != nil {
			BadRequest(c, "invalid_request")
			return
		}
		token := strings.TrimSpace(req.AuthToken)
		if token == "" {
			BadRequest(c, "invalid_request")
			return
		}

		id, err := v.Validate(c.Request.Context(), token)
		if err != nil {
			rejected(c, err)
			return
		}
		setIdentity(c, id)
		c.JSON(http.StatusOK, id)
	}
}

// RequireIdentity validates the token carried as "Authorization: Bearer <token>"
// and aborts with 401 unless it is valid. Handlers read the result with
// CurrentIdentity.
func RequireIdentity(v TokenValidator) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.GetHeader("Authorization")
		const prefix = "bearer "
		if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
			Unauthorized(c, "missing_token")
			return
		}
		id, err := v.Validate(c.Request.Context(), strings.TrimSpace(h[len(prefix):]))
		if err != nil {
			rejected(c, err)
			return
		}
		setIdentity(c, id)
		c.Next()
	}
}

// Register mounts the nonce and login endpoints under r.
func Register(r gin.IRoutes, gen NonceIssuer, v TokenValidator, rl RateLimiter) {
	r.POST("/nonce", HandleNoncePOST(gen, rl))
	r.POST("/login", HandleLoginPOST(v, rl))
}

// rejected writes only the stable kind; details stay in the validator log.
func rejected(c *gin.Context, err error) {
	kind := validator.KindOf(err)
	if kind.Category() == validator.CategoryInfrastructure {
		Unavailable(c, kind.String())
		return
	}
	Unauthorized(c, kind.String())
}
