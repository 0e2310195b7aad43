package middleware

import (
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/database"
	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/models"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const currentUserKey = "CurrentUser"

// InjectUser resolves the session credential to an account and stashes it
// in the request context. Any failure — no cookie, tampered cookie,
// expired session, account gone — leaves the context empty; it never
// aborts the request. The account row is loaded fresh on every request so
// the role is always current.
func InjectUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)

		if uidRaw := sess.Get("user_id"); uidRaw != nil {
			if uid, ok := uidRaw.(uint); ok && uid > 0 {
				var user models.User
				if err := database.DB.First(&user, uid).Error; err == nil {
					c.Set(currentUserKey, user)
				}
			}
		}

		c.Next()
	}
}

// CurrentUser returns the resolved account for this request, if any.
func CurrentUser(c *gin.Context) (models.User, bool) {
	raw, ok := c.Get(currentUserKey)
	if !ok {
		return models.User{}, false
	}
	user, ok := raw.(models.User)
	return user, ok
}
