package middleware

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/vhvplatform/go-reminder-service/internal/metrics"
	"golang.org/x/time/rate"
)

// UserRateLimiter manages rate limiters per user
type UserRateLimiter struct {
	limiters map[string]*rate.Limiter
	mu       sync.RWMutex
	rate     rate.Limit
	burst    int
}

// NewUserRateLimiter creates a new user rate limiter
func NewUserRateLimiter(rps float64, burst int) *UserRateLimiter {
	return &UserRateLimiter{
		limiters: make(map[string]*rate.Limiter),
		rate:     rate.Limit(rps),
		burst:    burst,
	}
}

// GetLimiter returns the rate limiter for a specific user
func (rl *UserRateLimiter) GetLimiter(userID string) *rate.Limiter {
	rl.mu.RLock()
	limiter, exists := rl.limiters[userID]
	rl.mu.RUnlock()

	if !exists {
		rl.mu.Lock()
		// Double-check after acquiring write lock
		limiter, exists = rl.limiters[userID]
		if !exists {
			limiter = rate.NewLimiter(rl.rate, rl.burst)
			rl.limiters[userID] = limiter
		}
		rl.mu.Unlock()
	}

	return limiter
}

// RateLimitMiddleware creates a rate limiting middleware keyed on the
// calling user. The user is identified by the X-User-ID header set by the
// API gateway, falling back to path and query parameters.
func RateLimitMiddleware(rl *UserRateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = c.Param("user_id")
		}
		if userID == "" {
			userID = c.Query("owner_id")
		}

		// If still empty, allow through (will fail validation later)
		if userID == "" {
			c.Next()
			return
		}

		limiter := rl.GetLimiter(userID)

		if !limiter.Allow() {
			metrics.RateLimitExceeded.WithLabelValues(userID).Inc()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "Rate limit exceeded. Please try again later.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
