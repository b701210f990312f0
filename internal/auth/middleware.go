package auth

import (
	"net/http"

	"github.com/auditelle/storefront/internal/logging"
	"github.com/auditelle/storefront/internal/reseller"
	"github.com/gin-gonic/gin"
)

// ContextKeyUser is the gin context key holding the authenticated *User.
const ContextKeyUser = "authUser"

// RequireUser rejects requests without a valid bearer token. The 401 body
// carries the active reseller's unauthorized message.
func RequireUser(v *Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := BearerToken(c.GetHeader("Authorization"))
		if err == nil {
			var u *User
			if u, err = v.Verify(token); err == nil {
				c.Set(ContextKeyUser, u)
				c.Next()
				return
			}
			logging.L(c.Request.Context()).Debug("token rejected", "error", err)
		}

		msg := "unauthorized"
		if cfg, cerr := reseller.FromContext(c.Request.Context()); cerr == nil {
			msg = cfg.Strings.Errors.Unauthorized
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
	}
}

// GetUser returns the authenticated user, if any.
func GetUser(c *gin.Context) (*User, bool) {
	v, exists := c.Get(ContextKeyUser)
	if !exists {
		return nil, false
	}
	u, ok := v.(*User)
	return u, ok
}
