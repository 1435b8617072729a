package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
	"github.com/noah-isme/substitute-finder-api/pkg/response"
)

// RequireRoles admits requests whose role label is one of roles. Labels are
// the only authorization performed.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims := Claims(c)
		if claims == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if !HasRole(claims, allowed) {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// HasRole reports whether claims carry one of the allowed labels.
func HasRole(claims *models.JWTClaims, allowed map[models.UserRole]struct{}) bool {
	if claims == nil {
		return false
	}
	_, ok := allowed[claims.Role]
	return ok
}
