package handler_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dealroom.app/broker/internal/http/handler"
	"dealroom.app/broker/internal/http/middleware"
	"dealroom.app/broker/internal/lifecycle"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/service"
)

var _ = Describe("PartyHandler", func() {
	var (
		router  *gin.Engine
		parties *mockPartyService
		auth    *mockAuthService
	)

	BeforeEach(func() {
		gin.SetMode(gin.TestMode)
		router = gin.New()
		parties = &mockPartyService{}
		auth = &mockAuthService{}
		h := handler.NewPartyHandler(parties, auth)
		router.POST("/parties", h.Register)
		authed := router.Group("", middleware.RequireAuth(auth))
		authed.GET("/parties/me", h.Me)
	})

	It("registers a party and returns a token", func() {
		code := "ADV-1"
		parties.registerFn = func(_ context.Context, in service.RegisterPartyInput) (*model.Party, error) {
			return &model.Party{ID: 900, Type: in.Type, DisplayName: in.DisplayName, Email: in.Email, AdvisorCode: in.AdvisorCode}, nil
		}
		auth.issueFn = func(_ context.Context, partyID int64) (string, time.Time, error) {
			Expect(partyID).To(Equal(int64(900)))
			return "signed", time.Now().Add(time.Hour), nil
		}

		w := doJSON(router, http.MethodPost, "/parties", map[string]any{
			"type": "advisor", "display_name": "Ada", "email": "ada@example.com", "advisor_code": code,
		})

		Expect(w.Code).To(Equal(http.StatusCreated))
		resp := decode(w)
		Expect(resp["token"]).To(Equal("signed"))
		Expect(resp["party"]).To(HaveKeyWithValue("advisor_code", code))
	})

	It("rejects unknown party types at binding", func() {
		w := doJSON(router, http.MethodPost, "/parties", map[string]any{
			"type": "banker", "display_name": "X", "email": "x@example.com",
		})

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 409 for a taken email", func() {
		parties.registerFn = func(context.Context, service.RegisterPartyInput) (*model.Party, error) {
			return nil, lifecycle.Conflictf(1, "email already registered")
		}

		w := doJSON(router, http.MethodPost, "/parties", map[string]any{
			"type": "investor", "display_name": "X", "email": "x@example.com",
		})

		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	Describe("bearer authentication", func() {
		get := func(header string) *httptest.ResponseRecorder {
			req := httptest.NewRequest(http.MethodGet, "/parties/me", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			return w
		}

		It("resolves the token to the acting party", func() {
			auth.authenticateFn = func(_ context.Context, token string) (*model.Party, error) {
				Expect(token).To(Equal("good"))
				return &model.Party{ID: 100, Type: model.PartyTypeInvestor}, nil
			}

			w := get("Bearer good")

			Expect(w.Code).To(Equal(http.StatusOK))
			Expect(decode(w)["id"]).To(Equal("100"))
		})

		It("returns 401 without a token or with a bad one", func() {
			Expect(get("").Code).To(Equal(http.StatusUnauthorized))
			Expect(get("Basic abc").Code).To(Equal(http.StatusUnauthorized))

			auth.authenticateFn = func(context.Context, string) (*model.Party, error) {
				return nil, service.ErrTokenExpired
			}
			w := get("Bearer old")
			Expect(w.Code).To(Equal(http.StatusUnauthorized))
			Expect(decode(w)["error"]).To(Equal("token expired"))
		})

		It("returns 500 when the directory is unavailable", func() {
			auth.authenticateFn = func(context.Context, string) (*model.Party, error) {
				return nil, errors.New("connection refused")
			}

			Expect(get("Bearer good").Code).To(Equal(http.StatusInternalServerError))
		})
	})
})
