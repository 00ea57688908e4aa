package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/mikutaniguchi/ticket-collection/internal/lib/jwt"
	"github.com/mikutaniguchi/ticket-collection/internal/transport/http/dto/response"
)

const contextKey = "user"

var errNotAccessToken = errors.New("not an access token")

// JWTConfig verifies access tokens from the Authorization header or the
// access_token cookie. Browsers without a valid token are sent to loginURL,
// other clients get 401.
func JWTConfig(secret []byte, loginURL string) echojwt.Config {
	return echojwt.Config{
		ContextKey:  contextKey,
		TokenLookup: "header:Authorization:Bearer ,cookie:access_token",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			claims, err := jwt.ParseToken(auth, secret)
			if err != nil {
				return nil, err
			}
			if claims.Kind != jwt.KindAccess {
				return nil, errNotAccessToken
			}
			if _, err := uuid.Parse(claims.UserID); err != nil {
				return nil, err
			}
			return claims, nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			if WantsHTML(c.Request()) && loginURL != "" {
				return c.Redirect(http.StatusFound, loginURL)
			}
			return c.JSON(http.StatusUnauthorized, response.ErrUnauthorized)
		},
	}
}

// UserID returns the caller identity set by the JWT middleware.
func UserID(c echo.Context) (uuid.UUID, bool) {
	claims, ok := c.Get(contextKey).(*jwt.Claims)
	if !ok {
		return uuid.Nil, false
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return uuid.Nil, false
	}

	return id, true
}

func WantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get(echo.HeaderAccept), echo.MIMETextHTML)
}
