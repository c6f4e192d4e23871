package router

import (
	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/handler"
)

func NotificationRouter(rg *gin.RouterGroup, h *handler.NotificationHandler) {
	rg.GET("", h.List)
	rg.POST("/:id/read", h.MarkRead)
}
