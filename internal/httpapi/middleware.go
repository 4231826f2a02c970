package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"datashare/internal/auth"
	"datashare/internal/constants"
	apperrors "datashare/internal/errors"
)

const claimsKey = "claims"

// requestLogger writes one access log entry per request
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
			"client":   c.ClientIP(),
		})

		if c.Writer.Status() >= http.StatusInternalServerError {
			entry.Error("Request failed")
			return
		}
		entry.Debug("Request handled")
	}
}

// authRequired validates the bearer token and stores its claims
func authRequired(tokens *auth.TokenIssuer) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeError(c, &apperrors.AuthenticationError{Message: "missing bearer token"})
			c.Abort()
			return
		}

		claims, err := tokens.Parse(parts[1])
		if err != nil {
			writeError(c, err)
			c.Abort()
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// requireAdmin rejects callers without the admin role
func requireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := currentClaims(c)
		if !claims.IsAdmin() {
			writeError(c, &apperrors.PermissionError{UserID: claims.UserID, Role: claims.Role, RequiredRole: "admin"})
			c.Abort()
			return
		}
		c.Next()
	}
}

func currentClaims(c *gin.Context) *auth.Claims {
	return c.MustGet(claimsKey).(*auth.Claims)
}

// usageLimiter rate limits usage reports per session
type usageLimiter struct {
	limiters *cache.Cache
	rate     rate.Limit
	burst    int
	logger   *logrus.Logger
}

func newUsageLimiter(perSecond float64, burst int, logger *logrus.Logger) *usageLimiter {
	if burst < 1 {
		burst = 1
	}
	return &usageLimiter{
		limiters: cache.New(constants.CacheExpiration*time.Minute, constants.CacheCleanupInterval*time.Minute),
		rate:     rate.Limit(perSecond),
		burst:    burst,
		logger:   logger,
	}
}

// limiter returns the limiter of a session, creating it on first use
func (l *usageLimiter) limiter(key string) *rate.Limiter {
	if existing, found := l.limiters.Get(key); found {
		return existing.(*rate.Limiter)
	}

	limiter := rate.NewLimiter(l.rate, l.burst)
	if err := l.limiters.Add(key, limiter, cache.DefaultExpiration); err != nil {
		// Lost the race; use the stored one
		if existing, found := l.limiters.Get(key); found {
			return existing.(*rate.Limiter)
		}
	}
	return limiter
}

// Handler returns the rate limiting middleware
func (l *usageLimiter) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.Param("id")
		if !l.limiter(key).Allow() {
			l.logger.Warnf("Usage reports for session %s rate limited", key)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many usage reports"})
			return
		}
		c.Next()
	}
}
