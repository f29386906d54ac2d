package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"contactsss/internal/auth"
	"contactsss/internal/model"
)

const userContextKey = "currentUser"

// BearerToken extracts the bearer credential from the Authorization header.
func BearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

// BearerAuth gates protected routes: it validates the access token and
// resolves the user, making it available via [CurrentUser].
func BearerAuth(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok, ok := BearerToken(c)
		if !ok {
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header format must be Bearer <token>"})
			return
		}

		user, err := svc.Authorize(c.Request.Context(), tok)
		if err != nil {
			if errors.Is(err, auth.ErrTransient) {
				c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "Temporarily unavailable"})
				return
			}
			c.Header("WWW-Authenticate", "Bearer")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Wrong credentials"})
			return
		}

		c.Set(userContextKey, user)
		c.Next()
	}
}

// CurrentUser returns the user resolved by [BearerAuth] for this request.
func CurrentUser(c *gin.Context) *model.User {
	return c.MustGet(userContextKey).(*model.User)
}
