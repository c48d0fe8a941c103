package middleware

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"memory_webapp/internal/logger"
	"memory_webapp/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Counter считает запросы в окне по ключу
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

var (
	limiterMu      sync.RWMutex
	limiterCounter Counter
	limiterMax     int64
	limiterWindow  = time.Minute
)

// InitRedisRateLimiter включает лимит запросов в минуту на ключ (игрок или ip).
// Без клиента или при max <= 0 лимит выключен
func InitRedisRateLimiter(rdb *redis.Client, max int) {
	if rdb == nil {
		InitRateLimiter(nil, max)
		return
	}
	InitRateLimiter(redisCounter{rdb: rdb}, max)
}

// InitRateLimiter то же с произвольным счетчиком
func InitRateLimiter(counter Counter, max int) {
	limiterMu.Lock()
	limiterCounter = counter
	limiterMax = int64(max)
	limiterMu.Unlock()
}

// RateLimit фиксированное окно. Ключ - игрок, если перед лимитом стоит
// AuthRequired, иначе ip. Если счетчик недоступен - пропускаем
func RateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		limiterMu.RLock()
		counter, max := limiterCounter, limiterMax
		limiterMu.RUnlock()

		if counter == nil || max <= 0 {
			c.Next()
			return
		}

		window := time.Now().Unix() / int64(limiterWindow.Seconds())
		key := fmt.Sprintf("memory:ratelimit:%s:%d", limitSubject(c), window)

		ctx, cancel := context.WithTimeout(c.Request.Context(), 200*time.Millisecond)
		defer cancel()

		count, err := counter.Hit(ctx, key, limiterWindow)
		if err != nil {
			logger.Warn("rate limiter unavailable", "error", err)
			c.Next()
			return
		}

		if count > max {
			metrics.RateLimited.Inc()
			c.Header("Retry-After", fmt.Sprint(int(limiterWindow.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}

func limitSubject(c *gin.Context) string {
	if id, ok := UserID(c); ok {
		return "user:" + id
	}
	return "ip:" + c.ClientIP()
}

type redisCounter struct {
	rdb *redis.Client
}

func (r redisCounter) Hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	pipe := r.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}
