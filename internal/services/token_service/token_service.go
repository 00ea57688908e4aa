package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/jwt"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/logger/sl"
	"github.com/mikutaniguchi/ticket-collection/internal/repository"
)

var (
	ErrInvalidToken       = errors.New("invalid token")
	ErrInvalidTokenClaims = errors.New("invalid token claims")
	ErrTokenNotInStorage  = errors.New("token not found in storage")
)

type TokenService struct {
	log        *slog.Logger
	repo       repository.TokenRepository
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewTokenService(log *slog.Logger, repo repository.TokenRepository, secret string, accessTTL, refreshTTL time.Duration) *TokenService {
	return &TokenService{
		log:        log,
		repo:       repo,
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
	}
}

// Secret is the HMAC key the JWT middleware verifies access tokens with.
func (s *TokenService) Secret() []byte {
	return s.secret
}

func (s *TokenService) GenerateTokens(ctx context.Context, user models.User) (*models.TokenPair, error) {
	const op = "services.TokenService.GenerateTokens"

	accessToken, err := jwt.NewToken(user, jwt.KindAccess, s.secret, s.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refreshToken, err := jwt.NewToken(user, jwt.KindRefresh, s.secret, s.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.repo.SaveRefreshToken(ctx, user.ID.String(), refreshToken, s.refreshTTL); err != nil {
		s.log.Error("failed to save refresh token", slog.String("op", op), sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &models.TokenPair{
		UserID:       user.ID,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshTokens rotates a refresh token: the presented one is revoked and a
// new pair is issued.
func (s *TokenService) RefreshTokens(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	const op = "services.TokenService.RefreshTokens"

	claims, err := jwt.ParseToken(refreshToken, s.secret)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidToken)
	}
	if claims.Kind != jwt.KindRefresh {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidTokenClaims)
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidTokenClaims)
	}

	exists, err := s.repo.GetRefreshToken(ctx, claims.UserID, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !exists {
		return nil, fmt.Errorf("%s: %w", op, ErrTokenNotInStorage)
	}

	if err := s.repo.DeleteRefreshToken(ctx, claims.UserID, refreshToken); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GenerateTokens(ctx, models.User{ID: userID, Email: claims.Email})
}

// ValidateAccessToken returns the user id carried by a valid access token.
func (s *TokenService) ValidateAccessToken(accessToken string) (uuid.UUID, error) {
	claims, err := jwt.ParseToken(accessToken, s.secret)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}
	if claims.Kind != jwt.KindAccess {
		return uuid.Nil, ErrInvalidTokenClaims
	}

	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, ErrInvalidTokenClaims
	}

	return userID, nil
}

// Logout revokes every refresh token of the user.
func (s *TokenService) Logout(ctx context.Context, userID uuid.UUID) error {
	const op = "services.TokenService.Logout"

	if err := s.repo.DeleteAllUserTokens(ctx, userID.String()); err != nil {
		s.log.Error("failed to revoke tokens", slog.String("op", op), sl.Err(err))
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
