package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window limiter using Redis INCR/EXPIRE. With a nil
// client it counts in process instead.
type RateLimiter struct {
	client *redis.Client
	local  *localWindow
}

func NewRateLimiter(client *redis.Client) *RateLimiter {
	return &RateLimiter{client: client, local: newLocalWindow()}
}

// ByIP limits each client IP. key format: rl:<window_seconds>:<ip>
func (l *RateLimiter) ByIP(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		l.limit(c, key, c.FullPath(), maxRequests, window)
	}
}

// ByUser limits each authenticated player, so it must run after JWT.
// key format: rl_user:<user_id>:<window_seconds>
func (l *RateLimiter) ByUser(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := UserID(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		key := "rl_user:" + strconv.FormatInt(userID, 10) + ":" + strconv.FormatInt(int64(window.Seconds()), 10)
		l.limit(c, key, "user:"+c.FullPath(), maxRequests, window)
	}
}

func (l *RateLimiter) limit(c *gin.Context, key, endpoint string, maxRequests int, window time.Duration) {
	var val int64
	if l.client == nil {
		val = l.local.incr(key, window, time.Now())
	} else {
		ctx := c.Request.Context()
		var err error
		val, err = l.client.Incr(ctx, key).Result()
		if err != nil {
			// on Redis error, fail-open (allow) but set header
			c.Header("X-RateLimit-Error", "redis-error")
			c.Next()
			return
		}
		if val == 1 {
			l.client.Expire(ctx, key, window)
		}
	}

	c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

	if val > int64(maxRequests) {
		RLBlocked.WithLabelValues(endpoint).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": int(window.Seconds()),
		})
		return
	}

	RLRequests.WithLabelValues(endpoint).Inc()
	c.Next()
}
