package middlewares

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

const issueLimitWindow = 24 * time.Hour

// issueCounter tracks accepted reports per key within a fixed window.
type issueCounter interface {
	// Count returns the reports so far and the time left in the window.
	Count(ctx context.Context, key string) (int64, time.Duration, error)
	// Add records one accepted report, starting the window if none is open.
	Add(ctx context.Context, key string) error
}

type redisCounter struct {
	client *redis.Client
}

func (r redisCounter) Count(ctx context.Context, key string) (int64, time.Duration, error) {
	pipe := r.client.Pipeline()
	get := pipe.Get(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return 0, 0, err
	}
	count, err := get.Int64()
	if err == redis.Nil {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	return count, ttl.Val(), nil
}

// Add never extends a window that is already running.
func (r redisCounter) Add(ctx context.Context, key string) error {
	pipe := r.client.TxPipeline()
	pipe.Incr(ctx, key)
	ttl := pipe.TTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return err
	}
	if ttl.Val() < 0 {
		return r.client.Expire(ctx, key, issueLimitWindow).Err()
	}
	return nil
}

// IssueRateLimiter caps how many issues one user may report per 24h window.
// Only reports the handler accepts count against the cap. With no Redis
// client, or when Redis errors, requests pass through.
func IssueRateLimiter(client *redis.Client, queuePrefix string, limit int) gin.HandlerFunc {
	if client == nil {
		return issueLimiter(nil, queuePrefix, limit)
	}
	return issueLimiter(redisCounter{client: client}, queuePrefix, limit)
}

func issueLimiter(counter issueCounter, queuePrefix string, limit int) gin.HandlerFunc {
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}

		userID := UserID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		key := queuePrefix + ":" + userID
		count, ttl, err := counter.Count(c.Request.Context(), key)
		if err != nil {
			log.Printf("rate limiter: %s: %v", key, err)
			c.Next()
			return
		}
		if count >= int64(limit) {
			if ttl < 0 {
				ttl = issueLimitWindow
			}
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "rate limit exceeded",
				"retry_after": ttl.Seconds(),
			})
			return
		}

		c.Next()

		if status := c.Writer.Status(); status < 200 || status > 299 {
			return
		}
		// The response is already written; use a context that outlives it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(c.Request.Context()), 2*time.Second)
		defer cancel()
		if err := counter.Add(ctx, key); err != nil {
			log.Printf("rate limiter: %s: %v", key, err)
		}
	}
}
