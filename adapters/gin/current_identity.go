package authgin

import (
	"github.com/gin-gonic/gin"

	"github.com/PaulFidika/webeid/validator"
)

const identityKey = "webeid.identity"

// CurrentIdentity returns the identity stored by RequireIdentity.
func CurrentIdentity(c *gin.Context) (*validator.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	id, ok := v.(*validator.Identity)
	return id, ok && id != nil
}

func setIdentity(c *gin.Context, id *validator.Identity) {
	c.Set(identityKey, id)
}
