package router

import (
	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/handler"
)

func PublicPartyRouter(rg *gin.RouterGroup, h *handler.PartyHandler) {
	rg.POST("", h.Register)
}

func PartyRouter(rg *gin.RouterGroup, h *handler.PartyHandler) {
	rg.GET("/parties/me", h.Me)
	rg.POST("/auth/refresh", h.RefreshToken)
}
