package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/jwt"
)

var secret = []byte("secret")

func newProtected(t *testing.T) *echo.Echo {
	t.Helper()

	e := echo.New()
	g := e.Group("/api", echojwt.WithConfig(JWTConfig(secret, "/login")))
	g.GET("/whoami", func(c echo.Context) error {
		id, ok := UserID(c)
		if !ok {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.String(http.StatusOK, id.String())
	})

	return e
}

func TestJWT_AccessToken(t *testing.T) {
	e := newProtected(t)
	user := models.User{ID: uuid.New()}

	token, err := jwt.NewToken(user, jwt.KindAccess, secret, time.Minute)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, user.ID.String(), rec.Body.String())
}

func TestJWT_Rejections(t *testing.T) {
	e := newProtected(t)
	user := models.User{ID: uuid.New()}

	refresh, err := jwt.NewToken(user, jwt.KindRefresh, secret, time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name     string
		auth     string
		accept   string
		wantCode int
		wantLoc  string
	}{
		{name: "no token api", wantCode: http.StatusUnauthorized},
		{name: "no token browser", accept: "text/html,application/xhtml+xml", wantCode: http.StatusFound, wantLoc: "/login"},
		{name: "refresh token", auth: "Bearer " + refresh, wantCode: http.StatusUnauthorized},
		{name: "garbage", auth: "Bearer abc", wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/whoami", nil)
			if tt.auth != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.auth)
			}
			if tt.accept != "" {
				req.Header.Set(echo.HeaderAccept, tt.accept)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			if tt.wantLoc != "" {
				assert.Equal(t, tt.wantLoc, rec.Header().Get(echo.HeaderLocation))
			}
		})
	}
}
