// internal/api/middleware.go
package api

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/greenlit-app/greenlit/internal/auth"
	apperrors "github.com/greenlit-app/greenlit/internal/errors"
)

// RequestID tags every request with an id for log correlation. An inbound
// X-Request-ID is honored so upstream proxies can trace through.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// rateLimiter is a per-client sliding window. Generation routes are the
// expensive ones; the limiter sits in front of those only.
type rateLimiter struct {
	mutex    sync.Mutex
	windows  map[string][]time.Time
	limit    int
	interval time.Duration
}

func newRateLimiter(limit int, interval time.Duration) *rateLimiter {
	rl := &rateLimiter{
		windows:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *rateLimiter) allow(clientID string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	cutoff := now.Add(-rl.interval)

	recent := rl.windows[clientID][:0]
	for _, t := range rl.windows[clientID] {
		if t.After(cutoff) {
			recent = append(recent, t)
		}
	}

	if len(recent) >= rl.limit {
		rl.windows[clientID] = recent
		return false
	}
	rl.windows[clientID] = append(recent, now)
	return true
}

func (rl *rateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		cutoff := time.Now().Add(-rl.interval)
		rl.mutex.Lock()
		for id, window := range rl.windows {
			if len(window) == 0 || !window[len(window)-1].After(cutoff) {
				delete(rl.windows, id)
			}
		}
		rl.mutex.Unlock()
	}
}

// RateLimit rejects clients over the per-interval request budget with 429.
func RateLimit(limit int, interval time.Duration) gin.HandlerFunc {
	rl := newRateLimiter(limit, interval)
	return func(c *gin.Context) {
		if !rl.allow(c.ClientIP()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "too many requests",
				"type":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}

// RequireSession validates the Bearer token and puts the user id on the
// context. Owner-scoped routes sit behind this; share-link routes do not,
// the link id itself is the capability.
func RequireSession(tokens *auth.TokenConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			respondError(c, apperrors.NewUnauthorizedError("missing bearer token"))
			return
		}

		claims, err := auth.ParseToken(strings.TrimPrefix(header, "Bearer "), tokens)
		if err != nil {
			respondError(c, apperrors.NewUnauthorizedError("invalid or expired token"))
			return
		}
		c.Set("user_id", claims.UserID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) string {
	if v, ok := c.Get("user_id"); ok {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}
