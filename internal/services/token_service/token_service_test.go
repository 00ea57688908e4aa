package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/jwt"
)

type MockTokenRepository struct {
	mock.Mock
}

func (m *MockTokenRepository) SaveRefreshToken(ctx context.Context, userID, token string, exp time.Duration) error {
	args := m.Called(ctx, userID, token, exp)
	return args.Error(0)
}

func (m *MockTokenRepository) GetRefreshToken(ctx context.Context, userID, token string) (bool, error) {
	args := m.Called(ctx, userID, token)
	return args.Bool(0), args.Error(1)
}

func (m *MockTokenRepository) DeleteRefreshToken(ctx context.Context, userID, token string) error {
	args := m.Called(ctx, userID, token)
	return args.Error(0)
}

func (m *MockTokenRepository) DeleteAllUserTokens(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

const testSecret = "test-secret"

var (
	testUser = models.User{
		ID:    uuid.MustParse("123e4567-e89b-12d3-a456-426614174000"),
		Email: "test@example.com",
	}
	testCtx = context.Background()
)

func newTestService(repo *MockTokenRepository) *TokenService {
	return NewTokenService(slog.Default(), repo, testSecret, 15*time.Minute, 7*24*time.Hour)
}

func TestGenerateTokens_Success(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	repo.On("SaveRefreshToken", testCtx, testUser.ID.String(), mock.Anything, 7*24*time.Hour).
		Return(nil)

	tokens, err := service.GenerateTokens(testCtx, testUser)

	require.NoError(t, err)
	assert.Equal(t, testUser.ID, tokens.UserID)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotEqual(t, tokens.AccessToken, tokens.RefreshToken)

	userID, err := service.ValidateAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, testUser.ID, userID)

	_, err = service.ValidateAccessToken(tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidTokenClaims)

	repo.AssertExpectations(t)
}

func TestGenerateTokens_SaveError(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	expectedErr := errors.New("redis down")
	repo.On("SaveRefreshToken", testCtx, testUser.ID.String(), mock.Anything, mock.Anything).
		Return(expectedErr)

	tokens, err := service.GenerateTokens(testCtx, testUser)

	assert.Nil(t, tokens)
	assert.ErrorIs(t, err, expectedErr)
}

func TestRefreshTokens_Success(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	refreshToken, err := jwt.NewToken(testUser, jwt.KindRefresh, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	repo.On("GetRefreshToken", testCtx, testUser.ID.String(), refreshToken).Return(true, nil)
	repo.On("DeleteRefreshToken", testCtx, testUser.ID.String(), refreshToken).Return(nil)
	repo.On("SaveRefreshToken", testCtx, testUser.ID.String(), mock.Anything, mock.Anything).Return(nil)

	tokens, err := service.RefreshTokens(testCtx, refreshToken)

	require.NoError(t, err)
	assert.NotEqual(t, refreshToken, tokens.RefreshToken)
	repo.AssertExpectations(t)
}

func TestRefreshTokens_Rejected(t *testing.T) {
	forged, err := jwt.NewToken(testUser, jwt.KindRefresh, []byte("someone-else"), time.Hour)
	require.NoError(t, err)

	access, err := jwt.NewToken(testUser, jwt.KindAccess, []byte(testSecret), time.Hour)
	require.NoError(t, err)

	expired, err := jwt.NewToken(testUser, jwt.KindRefresh, []byte(testSecret), -time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"garbage", "invalid.token.string", ErrInvalidToken},
		{"wrong signature", forged, ErrInvalidToken},
		{"expired", expired, ErrInvalidToken},
		{"access token", access, ErrInvalidTokenClaims},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockTokenRepository)
			service := newTestService(repo)

			_, err := service.RefreshTokens(testCtx, tt.token)

			assert.ErrorIs(t, err, tt.wantErr)
			repo.AssertNotCalled(t, "GetRefreshToken", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestRefreshTokens_Revoked(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	refreshToken, _ := jwt.NewToken(testUser, jwt.KindRefresh, []byte(testSecret), time.Hour)
	repo.On("GetRefreshToken", testCtx, testUser.ID.String(), refreshToken).Return(false, nil)

	_, err := service.RefreshTokens(testCtx, refreshToken)

	assert.ErrorIs(t, err, ErrTokenNotInStorage)
	repo.AssertNotCalled(t, "DeleteRefreshToken", mock.Anything, mock.Anything, mock.Anything)
}

func TestRefreshTokens_DeleteTokenError(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	refreshToken, _ := jwt.NewToken(testUser, jwt.KindRefresh, []byte(testSecret), time.Hour)
	expectedErr := errors.New("delete error")

	repo.On("GetRefreshToken", testCtx, testUser.ID.String(), refreshToken).
		Return(true, nil)
	repo.On("DeleteRefreshToken", testCtx, testUser.ID.String(), refreshToken).
		Return(expectedErr)

	_, err := service.RefreshTokens(testCtx, refreshToken)

	assert.ErrorIs(t, err, expectedErr)
	repo.AssertExpectations(t)
}

func TestLogout(t *testing.T) {
	repo := new(MockTokenRepository)
	service := newTestService(repo)

	repo.On("DeleteAllUserTokens", testCtx, testUser.ID.String()).Return(nil).Once()
	assert.NoError(t, service.Logout(testCtx, testUser.ID))

	expectedErr := errors.New("redis down")
	repo.On("DeleteAllUserTokens", testCtx, testUser.ID.String()).Return(expectedErr).Once()
	assert.ErrorIs(t, service.Logout(testCtx, testUser.ID), expectedErr)
}
