package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contactsss/internal/metrics"
	"contactsss/internal/rate"
)

// Admission enforces the fixed-window budget of class against the client
// IP before the handler runs. A limiter-backend outage fails open with a
// warning; admission control must not take the API down.
func Admission(limiter *rate.Limiter, class rate.Class, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := limiter.Allow(c.Request.Context(), class, c.ClientIP())
		switch {
		case err == nil:
		case errors.Is(err, rate.ErrRateLimited):
			metrics.RateLimited.WithLabelValues(string(class)).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})
			return
		default:
			logger.Warn("rate limit check failed, admitting request", zap.String("class", string(class)), zap.Error(err))
		}
		c.Next()
	}
}
