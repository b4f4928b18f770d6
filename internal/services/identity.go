package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/harentsoaR/healthcare-api/internal/models"
	"github.com/harentsoaR/healthcare-api/internal/utils"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is the verified caller attached to a request.
type Identity struct {
	UID             string
	Email           string
	Role            string
	IsEmailVerified bool
	TokenID         string
	ExpiresAt       time.Time
}

func (i *Identity) HasRole(roles ...string) bool {
	for _, r := range roles {
		if i.Role == r {
			return true
		}
	}
	return false
}

type IdentityVerifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// TokenService issues and verifies the bearer tokens handed out at login.
type TokenService struct {
	secret      []byte
	issuer      string
	ttl         time.Duration
	revocations RevocationStore
	now         func() time.Time
}

func NewTokenService(secret, issuer string, ttl time.Duration, revocations RevocationStore) *TokenService {
	return &TokenService{
		secret:      []byte(secret),
		issuer:      issuer,
		ttl:         ttl,
		revocations: revocations,
		now:         time.Now,
	}
}

func (s *TokenService) Issue(user *models.User) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)
	claims := &utils.Claims{
		Email:         user.Email,
		Role:          user.Role,
		EmailVerified: user.IsEmailVerified,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   user.ID,
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	token, err := utils.GenerateJWT(s.secret, claims)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify checks signature, expiry, issuer and the revocation list.
func (s *TokenService) Verify(ctx context.Context, token string) (*Identity, error) {
	claims, err := utils.ValidateJWT(s.secret, s.issuer, token, s.now)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrTokenRevoked
		}
	}

	return &Identity{
		UID:             claims.Subject,
		Email:           claims.Email,
		Role:            claims.Role,
		IsEmailVerified: claims.EmailVerified,
		TokenID:         claims.ID,
		ExpiresAt:       claims.ExpiresAt.Time,
	}, nil
}

func (s *TokenService) Revoke(ctx context.Context, id *Identity) error {
	if s.revocations == nil {
		return errors.New("token revocation is not configured")
	}
	return s.revocations.Revoke(ctx, id.TokenID, id.ExpiresAt)
}
