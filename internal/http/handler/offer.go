package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/dto"
	"dealroom.app/broker/internal/service"
)

type OfferHandler struct {
	offerService service.OfferService
}

func NewOfferHandler(offerService service.OfferService) *OfferHandler {
	return &OfferHandler{offerService: offerService}
}

func (h *OfferHandler) Submit(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}

	var req dto.SubmitOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offer, err := h.offerService.Submit(c.Request.Context(), service.SubmitOfferInput{
		InvestorID:          party.ID,
		StartupID:           req.StartupID,
		SourceOpportunityID: req.SourceOpportunityID,
		Terms:               req.TermsRequest.ToModel(),
	})
	if err != nil {
		respondError(c, err, "submit offer")
		return
	}

	c.JSON(http.StatusCreated, dto.ToOfferResponse(offer))
}

func (h *OfferHandler) List(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	role, ok := viewerRole(c, party)
	if !ok {
		return
	}

	offers, err := h.offerService.ListVisible(c.Request.Context(), role, party.ID)
	if err != nil {
		respondError(c, err, "list offers")
		return
	}

	c.JSON(http.StatusOK, gin.H{"offers": dto.ToOfferResponses(offers)})
}

func (h *OfferHandler) Get(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	offerID, ok := pathID(c, "id")
	if !ok {
		return
	}
	role, ok := viewerRole(c, party)
	if !ok {
		return
	}

	offer, err := h.offerService.Get(c.Request.Context(), offerID, role, party.ID)
	if err != nil {
		respondError(c, err, "get offer")
		return
	}

	c.JSON(http.StatusOK, dto.ToOfferResponse(offer))
}

func (h *OfferHandler) Decide(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	offerID, gate, decision, ok := bindDecision(c)
	if !ok {
		return
	}

	offer, err := h.offerService.Decide(c.Request.Context(), service.DecisionInput{
		ItemID:   offerID,
		Gate:     gate,
		Decision: decision,
		ActorID:  party.ID,
	})
	if err != nil {
		respondError(c, err, "decide offer")
		return
	}

	c.JSON(http.StatusOK, dto.ToOfferResponse(offer))
}
