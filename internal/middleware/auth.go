package middleware

import (
	"net/http"

	"github.com/goldenaeroindia-ctrl/erp-fleet-management/internal/models"

	"github.com/gin-gonic/gin"
)

// RequireAuth aborts with 401 unless the request resolved to an account.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := CurrentUser(c); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// RequireRole aborts with 403 unless the resolved account holds one of
// the given roles. The message names the missing role the way the API
// contract expects ("Manager access required", "Admin access required").
func RequireRole(roles ...models.UserRole) gin.HandlerFunc {
	roleSet := map[models.UserRole]struct{}{}
	for _, r := range roles {
		roleSet[r] = struct{}{}
	}

	msg := "Admin or Manager access required"
	if len(roles) == 1 {
		switch roles[0] {
		case models.RoleAdmin:
			msg = "Admin access required"
		case models.RoleManager:
			msg = "Manager access required"
		}
	}

	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": "Unauthorized"})
			return
		}

		if _, ok := roleSet[user.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"message": msg})
			return
		}
		c.Next()
	}
}
