package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/logger/sl"
	"github.com/mikutaniguchi/ticket-collection/internal/repository"
	"github.com/mikutaniguchi/ticket-collection/internal/storage"
)

const MaxDisplayNameLength = 50

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidDisplayName = errors.New("display name is required and must be at most 50 characters")
)

type UserService struct {
	log  *slog.Logger
	repo repository.UserRepository
}

func NewUserService(log *slog.Logger, repo repository.UserRepository) *UserService {
	return &UserService{
		log:  log,
		repo: repo,
	}
}

func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (models.User, error) {
	const op = "services.UserService.Me"

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		s.log.Error("failed to get user", slog.String("op", op), sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	return user, nil
}

// UpdateDisplayName stores a trimmed, non-empty display name and returns the
// updated user.
func (s *UserService) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) (models.User, error) {
	const op = "services.UserService.UpdateDisplayName"

	log := s.log.With(
		slog.String("op", op),
		slog.String("user_id", userID.String()),
	)

	displayName = strings.TrimSpace(displayName)
	if displayName == "" || utf8.RuneCountInString(displayName) > MaxDisplayNameLength {
		return models.User{}, fmt.Errorf("%s: %w", op, ErrInvalidDisplayName)
	}

	if err := s.repo.UpdateDisplayName(ctx, userID, displayName); err != nil {
		if errors.Is(err, storage.ErrUserNotFound) {
			return models.User{}, fmt.Errorf("%s: %w", op, ErrUserNotFound)
		}
		log.Error("failed to update display name", sl.Err(err))
		return models.User{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("display name updated")

	return s.Me(ctx, userID)
}
