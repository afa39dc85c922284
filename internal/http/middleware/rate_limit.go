package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
)

// RateLimitMiddleware ограничивает число запросов. Ключ - пользователь, если он уже
// известен (middleware стоит после AuthMiddleware), иначе IP.
func RateLimitMiddleware(limit int64, period time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		limit = 60
	}
	if period <= 0 {
		period = time.Minute
	}

	instance := limiter.New(memory.NewStore(), limiter.Rate{Period: period, Limit: limit})

	return func(c *gin.Context) {
		key := "ip:" + c.ClientIP()
		if actor, ok := CurrentActor(c); ok {
			key = "user:" + actor.ID.String()
		}

		lctx, err := instance.Get(c.Request.Context(), key)
		if err != nil {
			// лимитер в памяти не должен падать; если упал, запрос не блокируем
			logger.Entry().WithError(err).Warn("rate limiter недоступен")
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(lctx.Limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(lctx.Remaining, 10))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(lctx.Reset, 10))

		if lctx.Reached {
			response.TooManyRequests(c, "слишком много запросов, попробуйте позже")
			return
		}

		c.Next()
	}
}
