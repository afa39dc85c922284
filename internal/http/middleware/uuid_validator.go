package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/response"
)

// UUIDValidator проверяет, что параметр пути является валидным UUID.
// Использование: api.GET("/orders/:id", UUIDValidator("id"), h.GetOrder)
func UUIDValidator(paramName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := uuid.Parse(c.Param(paramName)); err != nil {
			response.BadRequest(c, "параметр "+paramName+" должен быть валидным UUID")
			return
		}
		c.Next()
	}
}
