package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
	"github.com/mikutaniguchi/ticket-collection/internal/lib/logger/sl"
)

var (
	ErrInvalidIdentity = errors.New("identity provider returned no subject or email")
	ErrSignInFailed    = errors.New("sign-in failed")
)

type Auth struct {
	log      *slog.Logger
	provider IdentityProvider
	users    UserSaver
	tokens   TokenIssuer
}

type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (models.ExternalIdentity, error)
}

type UserSaver interface {
	UpsertExternalUser(ctx context.Context, identity models.ExternalIdentity) (models.User, error)
}

type TokenIssuer interface {
	GenerateTokens(ctx context.Context, user models.User) (*models.TokenPair, error)
}

func New(log *slog.Logger, provider IdentityProvider, users UserSaver, tokens TokenIssuer) *Auth {
	return &Auth{
		log:      log,
		provider: provider,
		users:    users,
		tokens:   tokens,
	}
}

// NewState returns a random value binding the provider redirect to the
// browser session that started it.
func NewState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (a *Auth) LoginURL(state string) string {
	return a.provider.AuthCodeURL(state)
}

// Callback finishes the redirect flow: the code is exchanged for a verified
// identity, the user is created or refreshed, and a token pair is issued.
func (a *Auth) Callback(ctx context.Context, code string) (*models.TokenPair, error) {
	const op = "auth.Callback"

	log := a.log.With(slog.String("op", op))

	identity, err := a.provider.Exchange(ctx, code)
	if err != nil {
		log.Warn("identity exchange failed", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, ErrSignInFailed)
	}

	if identity.Subject == "" || identity.Email == "" {
		log.Warn("incomplete identity", slog.String("subject", identity.Subject))
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidIdentity)
	}

	user, err := a.users.UpsertExternalUser(ctx, identity)
	if err != nil {
		log.Error("failed to save user", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tokens, err := a.tokens.GenerateTokens(ctx, user)
	if err != nil {
		log.Error("failed to issue tokens", sl.Err(err))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user signed in", slog.String("user_id", user.ID.String()))

	return tokens, nil
}
