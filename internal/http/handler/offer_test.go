package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"

	"dealroom.app/broker/internal/http/handler"
	"dealroom.app/broker/internal/http/middleware"
	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/service"
)

// actingAs stands in for RequireAuth.
func actingAs(p *model.Party) gin.HandlerFunc {
	return func(c *gin.Context) {
		middleware.SetParty(c, p)
		c.Next()
	}
}

func doJSON(router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(w *httptest.ResponseRecorder) map[string]any {
	var resp map[string]any
	Expect(json.Unmarshal(w.Body.Bytes(), &resp)).To(Succeed())
	return resp
}

var _ = Describe("OfferHandler", func() {
	var (
		router   *gin.Engine
		svc      *mockOfferService
		investor = &model.Party{ID: 100, Type: model.PartyTypeInvestor}
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		svc = &mockOfferService{}
		h := handler.NewOfferHandler(svc)
		g := router.Group("/offers", actingAs(investor))
		g.POST("", h.Submit)
		g.GET("", h.List)
		g.GET("/:id", h.Get)
		g.POST("/:id/decisions", h.Decide)
	})

	It("submits as the acting investor and returns 201", func() {
		var got service.SubmitOfferInput
		svc.submitFn = func(_ context.Context, in service.SubmitOfferInput) (*model.Offer, error) {
			got = in
			return &model.Offer{ID: 1, InvestorID: in.InvestorID, StartupID: in.StartupID, Amount: in.Terms.Amount,
				Status: model.OfferStatusPending, Stage: lifecycle.StageReady}, nil
		}

		w := doJSON(router, http.MethodPost, "/offers", map[string]any{
			"startup_id":        "200",
			"amount":            "250000",
			"equity_percentage": "5",
			"currency":          "USD",
		})

		Expect(w.Code).To(Equal(http.StatusCreated))
		Expect(got.InvestorID).To(Equal(int64(100)))
		Expect(got.StartupID).To(Equal(int64(200)))
		Expect(got.Terms.Amount.Equal(decimal.NewFromInt(250000))).To(BeTrue())
		resp := decode(w)
		Expect(resp["id"]).To(Equal("1"))
		Expect(resp["amount"]).To(Equal("250000"))
		Expect(resp["status"]).To(Equal("pending"))
	})

	It("returns 400 on invalid request body", func() {
		req := httptest.NewRequest(http.MethodPost, "/offers", bytes.NewBufferString(`{`))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()

		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 409 with the existing offer id on a duplicate", func() {
		svc.submitFn = func(context.Context, service.SubmitOfferInput) (*model.Offer, error) {
			return nil, lifecycle.Conflictf(42, "an open offer already exists")
		}

		w := doJSON(router, http.MethodPost, "/offers", map[string]any{
			"startup_id": "200", "amount": "1", "equity_percentage": "1",
		})

		Expect(w.Code).To(Equal(http.StatusConflict))
		resp := decode(w)
		Expect(resp["code"]).To(Equal("conflict"))
		Expect(resp["item_id"]).To(Equal("42"))
	})

	It("returns 500 when service fails", func() {
		svc.submitFn = func(context.Context, service.SubmitOfferInput) (*model.Offer, error) {
			return nil, errors.New("boom")
		}

		w := doJSON(router, http.MethodPost, "/offers", map[string]any{
			"startup_id": "200", "amount": "1", "equity_percentage": "1",
		})

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(decode(w)["error"]).To(Equal("failed to submit offer"))
	})

	Describe("reads", func() {
		It("lists with the party's own type as the default role", func() {
			var role model.Role
			svc.listFn = func(_ context.Context, r model.Role, _ int64) ([]model.Offer, error) {
				role = r
				return []model.Offer{{ID: 1}, {ID: 2}}, nil
			}

			w := doJSON(router, http.MethodGet, "/offers", nil)

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(role).To(Equal(model.RoleInvestor))
			Expect(decode(w)["offers"]).To(HaveLen(2))
		})

		It("rejects roles the party cannot hold", func() {
			w := doJSON(router, http.MethodGet, "/offers?role=startup", nil)
			Expect(w.Code).To(Equal(http.StatusForbidden))

			w = doJSON(router, http.MethodGet, "/offers?role=banker", nil)
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("maps hidden items to 404 and inconsistent ones to 422", func() {
			svc.getFn = func(_ context.Context, offerID int64, _ model.Role, _ int64) (*model.Offer, error) {
				if offerID == 1 {
					return nil, lifecycle.NotFoundf("offer %d not found", offerID)
				}
				return nil, lifecycle.Inconsistentf(offerID, "gate is not_required")
			}

			Expect(doJSON(router, http.MethodGet, "/offers/1", nil).Code).To(Equal(http.StatusNotFound))
			Expect(doJSON(router, http.MethodGet, "/offers/2", nil).Code).To(Equal(http.StatusUnprocessableEntity))
		})

		It("returns 400 for a malformed id", func() {
			Expect(doJSON(router, http.MethodGet, "/offers/abc", nil).Code).To(Equal(http.StatusBadRequest))
		})
	})

	Describe("decisions", func() {
		It("passes the gate, decision and acting party to the service", func() {
			var got service.DecisionInput
			svc.decideFn = func(_ context.Context, in service.DecisionInput) (*model.Offer, error) {
				got = in
				return &model.Offer{ID: in.ItemID, Status: model.OfferStatusAccepted}, nil
			}

			w := doJSON(router, http.MethodPost, "/offers/7/decisions", map[string]string{
				"gate": "startup_final", "decision": "approve",
			})

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(got).To(Equal(service.DecisionInput{
				ItemID:   7,
				Gate:     model.GateStartupFinal,
				Decision: model.DecisionApprove,
				ActorID:  100,
			}))
		})

		It("returns 400 for unknown gates and decisions", func() {
			w := doJSON(router, http.MethodPost, "/offers/7/decisions", map[string]string{
				"gate": "board", "decision": "approve",
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))

			w = doJSON(router, http.MethodPost, "/offers/7/decisions", map[string]string{
				"gate": "startup_final", "decision": "maybe",
			})
			Expect(w.Code).To(Equal(http.StatusBadRequest))
		})

		It("returns 403 when the engine refuses the actor", func() {
			svc.decideFn = func(context.Context, service.DecisionInput) (*model.Offer, error) {
				return nil, lifecycle.Unauthorizedf("only the startup may decide gate startup_final")
			}

			w := doJSON(router, http.MethodPost, "/offers/7/decisions", map[string]string{
				"gate": "startup_final", "decision": "reject",
			})

			Expect(w.Code).To(Equal(http.StatusForbidden))
			Expect(decode(w)["code"]).To(Equal("authorization"))
		})
	})
})
