package delivery

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"
)

const rateLimitCacheSize = 4096

// RateLimiter hands out one token bucket per user. Least recently seen users
// are evicted once the cache is full.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters *lru.Cache[string, *rate.Limiter]
}

// NewRateLimiter returns nil when perMinute is not positive, which disables limiting
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		return nil
	}
	cache, err := lru.New[string, *rate.Limiter](rateLimitCacheSize)
	if err != nil {
		return nil
	}
	burst := perMinute / 4
	if burst < 1 {
		burst = 1
	}
	return &RateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    burst,
		limiters: cache,
	}
}

// Allow reports whether key may make one more request now
func (r *RateLimiter) Allow(key string) bool {
	if r == nil || key == "" {
		return true
	}

	r.mu.Lock()
	limiter, ok := r.limiters.Get(key)
	if !ok {
		limiter = rate.NewLimiter(r.limit, r.burst)
		r.limiters.Add(key, limiter)
	}
	r.mu.Unlock()

	return limiter.Allow()
}

// RateLimitMiddleware limits requests per authenticated user. It must run
// after AuthMiddleware.
func RateLimitMiddleware(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.GetString("userID")) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many commands, slow down"})
			c.Abort()
			return
		}
		c.Next()
	}
}
