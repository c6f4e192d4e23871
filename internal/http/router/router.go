package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/handler"
	"dealroom.app/broker/internal/http/middleware"
	"dealroom.app/broker/internal/service"
)

func SetupRoutes(router *gin.Engine, services *service.Services) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authService := services.Auth()
	partyHandler := handler.NewPartyHandler(services.Parties(), authService)

	v1 := router.Group("/api/v1")
	PublicPartyRouter(v1.Group("/parties"), partyHandler)

	authed := v1.Group("")
	authed.Use(middleware.RequireAuth(authService))
	{
		PartyRouter(authed, partyHandler)

		offerHandler := handler.NewOfferHandler(services.Offers())
		OfferRouter(authed.Group("/offers"), offerHandler)

		opportunityHandler := handler.NewOpportunityHandler(services.Opportunities(), services.CoInvestmentOffers())
		OpportunityRouter(authed.Group("/opportunities"), opportunityHandler)

		coInvestmentHandler := handler.NewCoInvestmentOfferHandler(services.CoInvestmentOffers())
		CoInvestmentOfferRouter(authed.Group("/co-investment-offers"), coInvestmentHandler)

		notificationHandler := handler.NewNotificationHandler(services.Notifications())
		NotificationRouter(authed.Group("/notifications"), notificationHandler)
	}
}
