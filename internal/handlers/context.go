package handlers

import (
	"context"

	"github.com/anonto42/nano-feed/backend/internal/models"
	"github.com/labstack/echo/v4"
)

// UserLookup resolves user summaries for response hydration. Satisfied by
// repositories.CachedUserRepository.
type UserLookup interface {
	GetUserByIDCached(ctx context.Context, id uint) (*models.User, error)
}

// getUserIDFromContext returns the authenticated user's ID, or 0 when the
// request carries no usable claims.
func getUserIDFromContext(c echo.Context) uint {
	claims, ok := c.Get("user").(*models.JwtCustomClaims)
	if !ok {
		return 0
	}
	return claims.UserID
}
