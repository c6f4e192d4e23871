package router

import (
	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/handler"
)

func CoInvestmentOfferRouter(rg *gin.RouterGroup, h *handler.CoInvestmentOfferHandler) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/decisions", h.Decide)
}
