package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
)

func TestNewTokenRoundTrip(t *testing.T) {
	user := models.User{ID: uuid.New(), Email: "visitor@example.com"}
	secret := []byte("secret")

	token, err := NewToken(user, KindAccess, secret, time.Minute)
	require.NoError(t, err)

	claims, err := ParseToken(token, secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, KindAccess, claims.Kind)
	assert.NotEmpty(t, claims.ID)
}

func TestParseTokenRejects(t *testing.T) {
	user := models.User{ID: uuid.New()}

	expired, err := NewToken(user, KindRefresh, []byte("secret"), -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired, []byte("secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := NewToken(user, KindRefresh, []byte("other"), time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(other, []byte("secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = ParseToken("not.a.token", []byte("secret"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
