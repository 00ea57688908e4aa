package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/storage"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) UpsertExternalUser(ctx context.Context, identity models.ExternalIdentity) (models.User, error) {
	args := m.Called(ctx, identity)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserRepository) GetUserByID(ctx context.Context, userID uuid.UUID) (models.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(models.User), args.Error(1)
}

func (m *MockUserRepository) UpdateDisplayName(ctx context.Context, userID uuid.UUID, displayName string) error {
	args := m.Called(ctx, userID, displayName)
	return args.Error(0)
}

func TestUserService_Me(t *testing.T) {
	ctx := context.Background()
	repo := new(MockUserRepository)
	svc := NewUserService(slog.Default(), repo)

	known := models.User{ID: uuid.New(), Email: "a@example.com", DisplayName: "A"}
	unknown := uuid.New()

	repo.On("GetUserByID", ctx, known.ID).Return(known, nil)
	repo.On("GetUserByID", ctx, unknown).Return(models.User{}, storage.ErrUserNotFound)

	got, err := svc.Me(ctx, known.ID)
	require.NoError(t, err)
	assert.Equal(t, known, got)

	_, err = svc.Me(ctx, unknown)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserService_UpdateDisplayName(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	tests := []struct {
		name    string
		input   string
		setup   func(repo *MockUserRepository)
		want    string
		wantErr error
	}{
		{
			name:  "trimmed",
			input: "  Hanako  ",
			setup: func(repo *MockUserRepository) {
				repo.On("UpdateDisplayName", ctx, userID, "Hanako").Return(nil)
				repo.On("GetUserByID", ctx, userID).Return(models.User{ID: userID, DisplayName: "Hanako"}, nil)
			},
			want: "Hanako",
		},
		{
			name:    "blank",
			input:   "   ",
			setup:   func(repo *MockUserRepository) {},
			wantErr: ErrInvalidDisplayName,
		},
		{
			name:    "too long",
			input:   strings.Repeat("名", MaxDisplayNameLength+1),
			setup:   func(repo *MockUserRepository) {},
			wantErr: ErrInvalidDisplayName,
		},
		{
			name:  "missing user",
			input: "Taro",
			setup: func(repo *MockUserRepository) {
				repo.On("UpdateDisplayName", ctx, userID, "Taro").Return(storage.ErrUserNotFound)
			},
			wantErr: ErrUserNotFound,
		},
		{
			name:  "storage failure",
			input: "Taro",
			setup: func(repo *MockUserRepository) {
				repo.On("UpdateDisplayName", ctx, userID, "Taro").Return(errors.New("db down"))
			},
			wantErr: errors.New("db down"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockUserRepository)
			tt.setup(repo)
			svc := NewUserService(slog.Default(), repo)

			got, err := svc.UpdateDisplayName(ctx, userID, tt.input)

			if tt.wantErr != nil {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr.Error())
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got.DisplayName)
			repo.AssertExpectations(t)
		})
	}
}
