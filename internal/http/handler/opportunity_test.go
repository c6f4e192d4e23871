package handler_test

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"dealroom.app/broker/internal/http/handler"
	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/service"
)

var _ = Describe("OpportunityHandler", func() {
	var (
		router *gin.Engine
		opps   *mockOpportunityService
		co     *mockCoInvestmentOfferService
		lead   = &model.Party{ID: 300, Type: model.PartyTypeInvestor}
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		opps = &mockOpportunityService{}
		co = &mockCoInvestmentOfferService{}
		h := handler.NewOpportunityHandler(opps, co)
		g := router.Group("/opportunities", actingAs(lead))
		g.POST("", h.Submit)
		g.GET("", h.List)
		g.GET("/open", h.ListOpen)
		g.GET("/:id", h.Get)
		g.POST("/:id/decisions", h.Decide)
		g.POST("/:id/offers", h.SubmitOffer)
	})

	It("submits with the acting party as lead investor", func() {
		var got service.SubmitOpportunityInput
		opps.submitFn = func(_ context.Context, in service.SubmitOpportunityInput) (*model.CoInvestmentOpportunity, error) {
			got = in
			return &model.CoInvestmentOpportunity{ID: 9, LeadInvestorID: in.LeadInvestorID, TotalAsk: in.TotalAsk,
				Status: model.OpportunityStatusActive, StartupApprovalStatus: model.StartupApprovalPending}, nil
		}

		w := doJSON(router, http.MethodPost, "/opportunities", map[string]any{
			"startup_id":        "200",
			"total_ask":         "1000000",
			"equity_percentage": "10",
			"min_ticket":        "10000",
			"max_ticket":        "250000",
		})

		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(got.LeadInvestorID).To(Equal(int64(300)))
		Expect(got.MaxTicket.Equal(decimal.NewFromInt(250000))).To(BeTrue())
		resp := decode(w)
		Expect(resp["lead_investor_id"]).To(Equal("300"))
		Expect(resp["startup_approval_status"]).To(Equal("pending"))
	})

	It("lets an investor read as lead investor", func() {
		var role model.Role
		opps.listFn = func(_ context.Context, r model.Role, _ int64) ([]model.CoInvestmentOpportunity, error) {
			role = r
			return nil, nil
		}

		w := doJSON(router, http.MethodGet, "/opportunities?role=lead_investor", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(role).To(Equal(model.RoleLeadInvestor))
	})

	It("serves the open catalog on its own route", func() {
		opps.listOpenFn = func(context.Context) ([]model.CoInvestmentOpportunity, error) {
			return []model.CoInvestmentOpportunity{{ID: 9}}, nil
		}

		w := doJSON(router, http.MethodGet, "/opportunities/open", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(decode(w)["opportunities"]).To(HaveLen(1))
	})

	It("submits co-investment offers against the opportunity in the path", func() {
		var got service.SubmitCoInvestmentOfferInput
		co.submitFn = func(_ context.Context, in service.SubmitCoInvestmentOfferInput) (*model.CoInvestmentOffer, error) {
			got = in
			return &model.CoInvestmentOffer{ID: 11, OpportunityID: in.OpportunityID, CoInvestorID: in.CoInvestorID}, nil
		}

		w := doJSON(router, http.MethodPost, "/opportunities/9/offers", map[string]any{
			"amount": "20000", "equity_percentage": "0.2",
		})

		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(got.OpportunityID).To(Equal(int64(9)))
		Expect(got.CoInvestorID).To(Equal(int64(300)))
		Expect(decode(w)["opportunity_id"]).To(Equal("9"))
	})

	It("returns 409 when the opportunity no longer takes offers", func() {
		co.submitFn = func(context.Context, service.SubmitCoInvestmentOfferInput) (*model.CoInvestmentOffer, error) {
			return nil, lifecycle.Conflictf(9, "opportunity is not open for co-investment")
		}

		w := doJSON(router, http.MethodPost, "/opportunities/9/offers", map[string]any{
			"amount": "20000", "equity_percentage": "0.2",
		})

		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("returns 400 for invalid terms", func() {
		opps.submitFn = func(context.Context, service.SubmitOpportunityInput) (*model.CoInvestmentOpportunity, error) {
			return nil, lifecycle.Invalidf("max ticket is below min ticket")
		}

		w := doJSON(router, http.MethodPost, "/opportunities", map[string]any{
			"startup_id": "200", "total_ask": "1", "equity_percentage": "1",
			"min_ticket": "5", "max_ticket": "1",
		})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
		Expect(decode(w)["code"]).To(Equal("invalid"))
	})
})

var _ = Describe("CoInvestmentOfferHandler", func() {
	var (
		router *gin.Engine
		svc    *mockCoInvestmentOfferService
		lead   = &model.Party{ID: 300, Type: model.PartyTypeInvestor}
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockCoInvestmentOfferService{}
		h := handler.NewCoInvestmentOfferHandler(svc)
		g := router.Group("/co-investment-offers", actingAs(lead))
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("/:id/decisions", h.Decide)
	})

	It("lets the lead investor decide its gate", func() {
		var got service.DecisionInput
		svc.decideFn = func(_ context.Context, in service.DecisionInput) (*model.CoInvestmentOffer, error) {
			got = in
			return &model.CoInvestmentOffer{ID: in.ItemID, Status: model.CoInvestmentStatusPendingStartup}, nil
		}

		w := doJSON(router, http.MethodPost, "/co-investment-offers/11/decisions", map[string]string{
			"gate": "lead_investor", "decision": "approve",
		})

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(got.Gate).To(Equal(model.GateLeadInvestor))
		Expect(got.ActorID).To(Equal(int64(300)))
		Expect(decode(w)["status"]).To(Equal("pending_startup_approval"))
	})

	It("returns 404 for a gate the chain does not have", func() {
		svc.decideFn = func(context.Context, service.DecisionInput) (*model.CoInvestmentOffer, error) {
			return nil, lifecycle.NotFoundf("gate startup_advisor does not exist for co_investment_offer")
		}

		w := doJSON(router, http.MethodPost, "/co-investment-offers/11/decisions", map[string]string{
			"gate": "startup_advisor", "decision": "approve",
		})

		Expect(w.Code).To(Equal(http.StatusNotFound))
	})

	It("lists for the requested role", func() {
		var role model.Role
		svc.listFn = func(_ context.Context, r model.Role, _ int64) ([]model.CoInvestmentOffer, error) {
			role = r
			return []model.CoInvestmentOffer{{ID: 11}}, nil
		}

		w := doJSON(router, http.MethodGet, "/co-investment-offers?role=lead_investor", nil)

		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(role).To(Equal(model.RoleLeadInvestor))
		Expect(decode(w)["offers"]).To(HaveLen(1))
	})
})
