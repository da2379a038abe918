package auth

import (
	"net/http"
	"strings"

	apperrors "findam-backend/internal/common/errors"

	"github.com/gin-gonic/gin"
)

const (
	// Context keys set by the middleware for downstream handlers.
	ContextUserID   = "auth.user_id"
	ContextUserType = "auth.user_type"
)

// Middleware validates the Bearer access token and stores the caller identity
// in the gin context.
func Middleware(jwtSvc *JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			abortUnauthorized(c, "missing bearer token")
			return
		}

		claims, err := jwtSvc.Parse(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			abortUnauthorized(c, err.Error())
			return
		}
		if claims.TokenType != TokenTypeAccess {
			abortUnauthorized(c, "refresh token used as access token")
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserType, claims.UserType)
		c.Next()
	}
}

// RequireUserType restricts a route to the given user types. Must run after
// Middleware.
func RequireUserType(types ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(c *gin.Context) {
		userType := c.GetString(ContextUserType)
		if !allowed[userType] {
			se := apperrors.NewForbiddenError("user type " + userType + " not allowed")
			c.AbortWithStatusJSON(http.StatusForbidden, se)
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id from the gin context.
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

func abortUnauthorized(c *gin.Context, details string) {
	se := apperrors.NewTokenInvalidError(details)
	c.AbortWithStatusJSON(http.StatusUnauthorized, se)
}
