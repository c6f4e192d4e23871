package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dealroom.app/broker/internal/http/dto"
	"dealroom.app/broker/internal/service"
)

type OpportunityHandler struct {
	opportunityService  service.OpportunityService
	coInvestmentService service.CoInvestmentOfferService
}

func NewOpportunityHandler(opportunityService service.OpportunityService, coInvestmentService service.CoInvestmentOfferService) *OpportunityHandler {
	return &OpportunityHandler{
		opportunityService:  opportunityService,
		coInvestmentService: coInvestmentService,
	}
}

func (h *OpportunityHandler) Submit(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}

	var req dto.SubmitOpportunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opp, err := h.opportunityService.Submit(c.Request.Context(), service.SubmitOpportunityInput{
		LeadInvestorID:   party.ID,
		StartupID:        req.StartupID,
		TotalAsk:         req.TotalAsk,
		EquityPercentage: req.EquityPercentage,
		MinTicket:        req.MinTicket,
		MaxTicket:        req.MaxTicket,
		Currency:         req.Currency,
		Description:      req.Description,
	})
	if err != nil {
		respondError(c, err, "submit opportunity")
		return
	}

	c.JSON(http.StatusCreated, dto.ToOpportunityResponse(opp))
}

func (h *OpportunityHandler) List(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	role, ok := viewerRole(c, party)
	if !ok {
		return
	}

	opps, err := h.opportunityService.ListVisible(c.Request.Context(), role, party.ID)
	if err != nil {
		respondError(c, err, "list opportunities")
		return
	}

	c.JSON(http.StatusOK, gin.H{"opportunities": dto.ToOpportunityResponses(opps)})
}

// ListOpen is the co-investor catalog: opportunities that take tickets now.
func (h *OpportunityHandler) ListOpen(c *gin.Context) {
	opps, err := h.opportunityService.ListOpen(c.Request.Context())
	if err != nil {
		respondError(c, err, "list open opportunities")
		return
	}

	c.JSON(http.StatusOK, gin.H{"opportunities": dto.ToOpportunityResponses(opps)})
}

func (h *OpportunityHandler) Get(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	oppID, ok := pathID(c, "id")
	if !ok {
		return
	}
	role, ok := viewerRole(c, party)
	if !ok {
		return
	}

	opp, err := h.opportunityService.Get(c.Request.Context(), oppID, role, party.ID)
	if err != nil {
		respondError(c, err, "get opportunity")
		return
	}

	c.JSON(http.StatusOK, dto.ToOpportunityResponse(opp))
}

func (h *OpportunityHandler) Decide(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	oppID, gate, decision, ok := bindDecision(c)
	if !ok {
		return
	}

	opp, err := h.opportunityService.Decide(c.Request.Context(), service.DecisionInput{
		ItemID:   oppID,
		Gate:     gate,
		Decision: decision,
		ActorID:  party.ID,
	})
	if err != nil {
		respondError(c, err, "decide opportunity")
		return
	}

	c.JSON(http.StatusOK, dto.ToOpportunityResponse(opp))
}

// SubmitOffer places a co-investment ticket against the opportunity.
func (h *OpportunityHandler) SubmitOffer(c *gin.Context) {
	party, ok := actingParty(c)
	if !ok {
		return
	}
	oppID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req dto.TermsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	offer, err := h.coInvestmentService.Submit(c.Request.Context(), service.SubmitCoInvestmentOfferInput{
		OpportunityID: oppID,
		CoInvestorID:  party.ID,
		Terms:         req.ToModel(),
	})
	if err != nil {
		respondError(c, err, "submit co-investment offer")
		return
	}

	c.JSON(http.StatusCreated, dto.ToCoInvestmentOfferResponse(offer))
}
