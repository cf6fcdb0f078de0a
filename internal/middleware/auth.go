package middleware

import (
	"github.com/gin-gonic/gin"

	"storefront/internal/auth"
	"storefront/internal/session"
)

const UserKey = "user"

// APIAuth lets only requests with a session through; others get the gate's
// status object as the JSON body.
func APIAuth(gate *auth.Gate) gin.HandlerFunc {
	return apiGuard(gate.AuthenticateAPIRequest)
}

// APIAdmin lets only admin sessions through (401 without a session, 403 for
// other roles).
func APIAdmin(gate *auth.Gate) gin.HandlerFunc {
	return apiGuard(gate.RequireAdminAPI)
}

func apiGuard(check func(*gin.Context) auth.APIResult) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := check(c)
		if !res.OK() {
			c.AbortWithStatusJSON(res.Status, gin.H{"error": res.Error, "status": res.Status})
			return
		}

		c.Set(UserKey, res.User)
		c.Next()
	}
}

// CurrentUser returns the user stored by APIAuth or APIAdmin.
func CurrentUser(c *gin.Context) *session.UserSummary {
	v, ok := c.Get(UserKey)
	if !ok {
		return nil
	}
	user, _ := v.(*session.UserSummary)
	return user
}
