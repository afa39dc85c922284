package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/swapmarket-backend/internal/interface/http/response"
	"github.com/ignatzorin/swapmarket-backend/internal/logger"
	"github.com/ignatzorin/swapmarket-backend/internal/pkg/apperror"
)

// ErrorHandler логирует ошибки, прикреплённые хэндлерами к контексту, и отвечает
// за тех, кто вернул ошибку, но ничего не записал. Внутренние ошибки пишутся
// как error, бизнес-отказы как debug.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		err := c.Errors.Last().Err

		entry := logger.Entry().WithFields(logrus.Fields{
			"path":   c.FullPath(),
			"method": c.Request.Method,
			"code":   apperror.CodeOf(err),
		}).WithError(err)
		if actor, ok := CurrentActor(c); ok {
			entry = entry.WithField("actor_id", actor.ID)
		}

		status := c.Writer.Status()
		if !c.Writer.Written() {
			response.Error(c, err)
			status = c.Writer.Status()
		}

		if status >= http.StatusInternalServerError {
			entry.Error("ошибка обработки запроса")
		} else {
			entry.Debug("запрос отклонён")
		}
	}
}
