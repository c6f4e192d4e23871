package router

import (
	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/handler"
)

func OpportunityRouter(rg *gin.RouterGroup, h *handler.OpportunityHandler) {
	rg.POST("", h.Submit)
	rg.GET("", h.List)
	rg.GET("/open", h.ListOpen)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/decisions", h.Decide)
	rg.POST("/:id/offers", h.SubmitOffer)
}
