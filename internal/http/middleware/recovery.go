package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"dealroom.app/broker/common/logger"
)

// Recovery turns a handler panic into a 500, logged with the acting party
// when auth already ran.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			fields := logger.LogFields{Component: "broker.http.recovery"}
			if p, ok := Party(c); ok {
				fields.PartyID = logger.Ptr(p.ID)
			}
			ctx := logger.WithLogFields(c.Request.Context(), fields)

			slog.ErrorContext(ctx, "panic recovered",
				"panic", r,
				"method", c.Request.Method,
				"route", c.FullPath(),
				"stack", string(debug.Stack()))

			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}()
		c.Next()
	}
}
