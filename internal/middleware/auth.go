package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/avellaud/pictobank/internal/auth"
	"github.com/avellaud/pictobank/internal/viewer"
	apperrors "github.com/avellaud/pictobank/pkg/errors"
	"github.com/avellaud/pictobank/pkg/response"
)

// CtxViewerKey carries the resolved viewer identity through the request.
const CtxViewerKey = "viewer"

// Identify resolves the bearer token into a viewer when one is present,
// falling back to the anonymous viewer. Routes that serve public content use
// this alone.
func Identify(jwt *iauth.JWTService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(CtxViewerKey, resolveViewer(c, jwt))
		c.Next()
	}
}

// RequireAuth aborts anonymous requests with 401. Must run after Identify.
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Viewer(c).Authenticated {
			response.Error(c, apperrors.ErrUnauthorized)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Viewer returns the viewer resolved for this request.
func Viewer(c *gin.Context) viewer.Viewer {
	if value, ok := c.Get(CtxViewerKey); ok {
		if v, ok := value.(viewer.Viewer); ok {
			return v
		}
	}
	return viewer.Anonymous
}

func resolveViewer(c *gin.Context, jwt *iauth.JWTService) viewer.Viewer {
	if jwt == nil {
		return viewer.Anonymous
	}

	authz := c.GetHeader("Authorization")
	if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
		return viewer.Anonymous
	}

	claims, err := jwt.Validate(strings.TrimSpace(authz[7:]))
	if err != nil {
		return viewer.Anonymous
	}
	return viewer.Authenticated(claims.UserID)
}
