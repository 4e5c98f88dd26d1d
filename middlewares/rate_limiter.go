package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/reservation/logger"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	ginmiddleware "github.com/ulule/limiter/v3/drivers/middleware/gin"
	memorystore "github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// RateLimiters builds per-route limiters keyed by client IP. Limits are shared
// across replicas through Redis; without a client they are per process.
type RateLimiters struct {
	Redis *redis.Client
}

func NewRateLimiters(rdb *redis.Client) *RateLimiters {
	return &RateLimiters{Redis: rdb}
}

func (rl *RateLimiters) store(routeID string, period time.Duration) (limiter.Store, error) {
	opts := limiter.StoreOptions{
		Prefix:          fmt.Sprintf("rate_limiter:%s", routeID),
		MaxRetry:        3,
		CleanUpInterval: period,
	}
	if rl == nil || rl.Redis == nil {
		return memorystore.NewStoreWithOptions(opts), nil
	}
	store, err := redisstore.NewStoreWithOptions(rl.Redis, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis store for route %s: %w", routeID, err)
	}
	return store, nil
}

// ParseCustomRate allows formats like "10-2m", "30-20m", "5-1h", "20-10s".
func ParseCustomRate(rateStr string) (limiter.Rate, error) {
	parts := strings.Split(rateStr, "-")
	if len(parts) != 2 {
		return limiter.Rate{}, fmt.Errorf("invalid rate format: %s", rateStr)
	}

	limit, err := strconv.Atoi(parts[0])
	if err != nil || limit <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid limit: %s", parts[0])
	}

	durationStr := parts[1]
	if len(durationStr) < 2 {
		return limiter.Rate{}, fmt.Errorf("unsupported period: %s", durationStr)
	}
	var unit time.Duration
	switch durationStr[len(durationStr)-1] {
	case 's':
		unit = time.Second
	case 'm':
		unit = time.Minute
	case 'h':
		unit = time.Hour
	default:
		return limiter.Rate{}, fmt.Errorf("unsupported period: %s", durationStr)
	}
	n, err := strconv.Atoi(durationStr[:len(durationStr)-1])
	if err != nil || n <= 0 {
		return limiter.Rate{}, fmt.Errorf("invalid duration: %s", durationStr)
	}

	return limiter.Rate{
		Period: time.Duration(n) * unit,
		Limit:  int64(limit),
	}, nil
}

// Limit creates middleware allowing rateStr requests per client IP on routeID.
// A bad rate string is a wiring mistake and panics at startup.
func (rl *RateLimiters) Limit(rateStr, routeID string) gin.HandlerFunc {
	rate, err := ParseCustomRate(rateStr)
	if err != nil {
		panic(fmt.Sprintf("rate limiter %s: %v", routeID, err))
	}

	store, err := rl.store(routeID, rate.Period)
	if err != nil {
		logger.ErrorLogger.Errorf("Rate limiting disabled for route %s: %v", routeID, err)
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return ginmiddleware.NewMiddleware(limiter.New(store, rate), ginmiddleware.WithKeyGetter(func(c *gin.Context) string {
		return c.ClientIP()
	}))
}

// Combined applies every rate in rateStrings to routeID; the first one
// exceeded aborts the request with 429.
func (rl *RateLimiters) Combined(routeID string, rateStrings ...string) gin.HandlerFunc {
	limiters := make([]*limiter.Limiter, 0, len(rateStrings))
	for i, rateStr := range rateStrings {
		rate, err := ParseCustomRate(rateStr)
		if err != nil {
			panic(fmt.Sprintf("rate limiter %s: %v", routeID, err))
		}
		store, err := rl.store(fmt.Sprintf("%s_%d", routeID, i), rate.Period)
		if err != nil {
			logger.ErrorLogger.Errorf("Rate limit %s disabled for route %s: %v", rateStr, routeID, err)
			continue
		}
		limiters = append(limiters, limiter.New(store, rate))
	}

	return func(c *gin.Context) {
		key := c.ClientIP()
		for _, l := range limiters {
			lc, err := l.Get(c.Request.Context(), key)
			if err != nil {
				logger.ErrorLogger.Errorf("Rate limiter lookup failed for route %s: %v", routeID, err)
				continue
			}
			if lc.Reached {
				c.Header("Retry-After", strconv.FormatInt(max(lc.Reset-time.Now().Unix(), 1), 10))
				c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
					"success":   false,
					"error":     "RATE_LIMITED",
					"message":   "too many requests, slow down",
					"retryable": true,
				})
				return
			}
		}
		c.Next()
	}
}
