package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/swapmarket-backend/internal/auth"
	"github.com/ignatzorin/swapmarket-backend/internal/domain/entity"
	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/response"
)

// ContextActorKey хранит entity.Actor в gin.Context.
const ContextActorKey = "actor"

// AuthMiddleware проверяет JWT access токен и кладёт в контекст entity.Actor.
func AuthMiddleware(tokens *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "требуется авторизация")
			return
		}

		actor, err := tokens.ParseAccess(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			response.Unauthorized(c, "токен невалиден")
			return
		}

		c.Set(ContextActorKey, actor)
		c.Next()
	}
}

// CurrentActor достаёт пользователя, положенного AuthMiddleware.
func CurrentActor(c *gin.Context) (entity.Actor, bool) {
	raw, exists := c.Get(ContextActorKey)
	if !exists {
		return entity.Actor{}, false
	}
	actor, ok := raw.(entity.Actor)
	return actor, ok
}
