package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/substitute-finder-api/internal/middleware"
	"github.com/noah-isme/substitute-finder-api/internal/models"
	appErrors "github.com/noah-isme/substitute-finder-api/pkg/errors"
	"github.com/noah-isme/substitute-finder-api/pkg/response"
)

// requireClaims returns the caller's claims or writes 401.
func requireClaims(c *gin.Context) (*models.JWTClaims, bool) {
	claims := middleware.Claims(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return nil, false
	}
	return claims, true
}

func responseMeta(c *gin.Context, cacheHit bool) map[string]interface{} {
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{"cache_hit": cacheHit}
	}
	return meta
}
