package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"dealroom.app/broker/core/config"
	"dealroom.app/broker/internal/model"
	"dealroom.app/broker/internal/store"
)

var (
	ErrInvalidToken  = errors.New("invalid token")
	ErrTokenExpired  = errors.New("token expired")
	ErrPartyNotFound = errors.New("party not found")
)

// AuthService issues and verifies bearer tokens. The token subject is the
// acting party id.
type AuthService interface {
	IssueToken(ctx context.Context, partyID int64) (string, time.Time, error)
	Authenticate(ctx context.Context, token string) (*model.Party, error)
}

type authService struct {
	parties store.PartyStore
	cfg     config.AuthConfig
	now     func() time.Time
}

func NewAuthService(parties store.PartyStore, cfg config.AuthConfig) AuthService {
	return &authService{parties: parties, cfg: cfg, now: time.Now}
}

func (s *authService) IssueToken(ctx context.Context, partyID int64) (string, time.Time, error) {
	if _, err := s.parties.GetByID(ctx, partyID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", time.Time{}, ErrPartyNotFound
		}
		return "", time.Time{}, fmt.Errorf("getting party: %w", err)
	}

	now := s.now().UTC()
	expiresAt := now.Add(s.cfg.TokenTTL)
	claims := jwt.RegisteredClaims{
		Issuer:    s.cfg.Issuer,
		Subject:   strconv.FormatInt(partyID, 10),
		Audience:  jwt.ClaimStrings{s.cfg.Audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		ID:        uuid.NewString(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing token: %w", err)
	}

	slog.InfoContext(ctx, "token issued", "party_id", partyID, "expires_at", expiresAt)
	return signed, expiresAt, nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*model.Party, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.cfg.JWTSecret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithAudience(s.cfg.Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		slog.DebugContext(ctx, "rejected bearer token", "error", err)
		return nil, ErrInvalidToken
	}

	partyID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || partyID <= 0 {
		return nil, ErrInvalidToken
	}

	party, err := s.parties.GetByID(ctx, partyID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrPartyNotFound
		}
		return nil, fmt.Errorf("getting party: %w", err)
	}
	return party, nil
}
