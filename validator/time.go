package validator

import (
	"fmt"
	"time"

	jwtkit "github.com/PaulFidika/webeid/jwt"
)

// checkTimeValidity applies skew to the token timestamps. A token is still
// accepted at exactly exp+skew.
func checkTimeValidity(c *jwtkit.Claims, now time.Time, skew time.Duration) error {
	if c.ExpiresAt != nil && now.After(c.ExpiresAt.Add(skew)) {
		return newError(TokenExpired, StepCheckTimeValidity,
			fmt.Sprintf("token expired at %s", c.ExpiresAt.UTC().Format(time.RFC3339)), nil)
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Add(-skew)) {
		return newError(ClockSkewExceeded, StepCheckTimeValidity,
			fmt.Sprintf("token not valid before %s", c.NotBefore.UTC().Format(time.RFC3339)), nil)
	}
	if c.IssuedAt != nil && c.IssuedAt.After(now.Add(skew)) {
		return newError(ClockSkewExceeded, StepCheckTimeValidity,
			fmt.Sprintf("token issued in the future at %s", c.IssuedAt.UTC().Format(time.RFC3339)), nil)
	}
	return nil
}
