package authgin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
)

// Rate limit buckets.
const (
	RLNonceIssue = "webeid_nonce_issue"
	RLLogin      = "webeid_login"
)

// RateLimiter is satisfied by memorylimiter.Limiter and redislimiter.Limiter.
type RateLimiter interface {
	AllowNamed(ctx context.Context, bucket, key string) (bool, error)
}

// AllowNamed applies rl to the client IP. A nil limiter allows everything;
// limiter errors fail open.
func AllowNamed(c *gin.Context, rl RateLimiter, bucket string) bool {
	if rl == nil {
		return true
	}
	ok, err := rl.AllowNamed(c.Request.Context(), bucket, c.ClientIP())
	if err != nil {
		return true
	}
	return ok
}

func TooMany(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate_limited"})
}

func BadRequest(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": code})
}

func Unauthorized(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": code})
}

func Unavailable(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": code})
}

func ServerErr(c *gin.Context, code string) {
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": code})
}
