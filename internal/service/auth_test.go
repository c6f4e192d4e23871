package service_test

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"dealroom.app/broker/core/config"
	"dealroom.app/broker/internal/service"
)

var _ = Describe("AuthService", func() {
	var (
		ctx context.Context
		mem *memStores
		cfg config.AuthConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		mem = newMemStores()
		seedParties(mem)
		cfg = config.AuthConfig{JWTSecret: "test-secret", Issuer: "broker", Audience: "broker-api", TokenTTL: time.Hour}
	})

	It("authenticates the party a token was issued to", func() {
		svc := service.NewAuthService(mem.Parties(), cfg)

		token, expiresAt, err := svc.IssueToken(ctx, investorID)
		Expect(err).NotTo(HaveOccurred())
		Expect(expiresAt).To(BeTemporally("~", time.Now().Add(time.Hour), time.Minute))

		party, err := svc.Authenticate(ctx, token)
		Expect(err).NotTo(HaveOccurred())
		Expect(party.ID).To(Equal(investorID))
	})

	It("refuses tokens for unknown parties", func() {
		svc := service.NewAuthService(mem.Parties(), cfg)

		_, _, err := svc.IssueToken(ctx, 424242)

		Expect(err).To(MatchError(service.ErrPartyNotFound))
	})

	It("rejects expired tokens", func() {
		cfg.TokenTTL = -time.Minute
		svc := service.NewAuthService(mem.Parties(), cfg)
		token, _, err := svc.IssueToken(ctx, investorID)
		Expect(err).NotTo(HaveOccurred())

		_, err = svc.Authenticate(ctx, token)

		Expect(err).To(MatchError(service.ErrTokenExpired))
	})

	It("rejects tokens signed with another secret", func() {
		other := cfg
		other.JWTSecret = "someone-else"
		token, _, err := service.NewAuthService(mem.Parties(), other).IssueToken(ctx, investorID)
		Expect(err).NotTo(HaveOccurred())

		_, err = service.NewAuthService(mem.Parties(), cfg).Authenticate(ctx, token)

		Expect(err).To(MatchError(service.ErrInvalidToken))
	})

	It("rejects tokens for another audience", func() {
		claims := jwt.RegisteredClaims{
			Issuer:    cfg.Issuer,
			Subject:   "100",
			Audience:  jwt.ClaimStrings{"elsewhere"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
		Expect(err).NotTo(HaveOccurred())

		_, err = service.NewAuthService(mem.Parties(), cfg).Authenticate(ctx, token)

		Expect(err).To(MatchError(service.ErrInvalidToken))
	})

	It("rejects blank and malformed tokens", func() {
		svc := service.NewAuthService(mem.Parties(), cfg)

		_, err := svc.Authenticate(ctx, "  ")
		Expect(err).To(MatchError(service.ErrInvalidToken))

		_, err = svc.Authenticate(ctx, "not.a.token")
		Expect(err).To(MatchError(service.ErrInvalidToken))
	})
})
