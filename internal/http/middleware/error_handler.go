package middleware

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"labrand.store/app/internal/http/render"
	"labrand.store/app/internal/shared/apperr"
)

// Fail records the error for the deferred handler and stops the chain.
func Fail(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandler turns the last recorded error into the response envelope.
// Internal detail goes to the log; the caller sees only the public message.
func ErrorHandler(l *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}
		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status := apperr.HTTPStatus(err)
		publicMsg := apperr.PublicMessage(err)
		rid := GetRequestID(c)

		l.LogAttrs(c.Request.Context(), slog.LevelError, "request_failed",
			slog.String("request_id", rid),
			slog.Int("status", status),
			slog.Any("err", err),
		)

		var fields map[string]string
		if ae, ok := apperr.As(err); ok && len(ae.Fields) > 0 {
			fields = ae.Fields
		}
		render.Error(c, status, publicMsg, fields)
	}
}
