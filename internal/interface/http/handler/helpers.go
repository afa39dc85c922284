package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/http/middleware"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/response"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// actorFrom отвечает 401 сам, если пользователя в контексте нет.
func actorFrom(c *gin.Context) (entity.Actor, bool) {
	actor, ok := middleware.CurrentActor(c)
	if !ok {
		response.Unauthorized(c, "требуется авторизация")
	}
	return actor, ok
}

func pathID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.BadRequest(c, "некорректный "+name)
		return uuid.Nil, false
	}
	return id, true
}

func parseIntQuery(c *gin.Context, key string, defaultValue int) int {
	valueStr := c.Query(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func pagination(c *gin.Context) (limit, offset int) {
	limit = parseIntQuery(c, "limit", defaultPageSize)
	offset = parseIntQuery(c, "offset", 0)
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
