package router

import (
	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/handler"
)

func OfferRouter(rg *gin.RouterGroup, h *handler.OfferHandler) {
	rg.POST("", h.Submit)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/decisions", h.Decide)
}
