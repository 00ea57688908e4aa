package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/mikutaniguchi/ticket-collection/internal/domain/models"
)

const googleIssuer = "https://accounts.google.com"

var ErrMissingIDToken = errors.New("missing id_token")

type googleIDClaims struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// GoogleProvider signs users in with Google's OpenID Connect flow. The
// discovery document is fetched on first use.
type GoogleProvider struct {
	cfg *oauth2.Config

	mu       sync.Mutex
	verifier *oidc.IDTokenVerifier
}

func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				oidc.ScopeOpenID,
				"email",
				"profile",
			},
			Endpoint: google.Endpoint,
		},
	}
}

func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

func (g *GoogleProvider) Exchange(ctx context.Context, code string) (models.ExternalIdentity, error) {
	const op = "auth.GoogleProvider.Exchange"

	tok, err := g.cfg.Exchange(ctx, code)
	if err != nil {
		return models.ExternalIdentity{}, fmt.Errorf("%s: exchange code: %w", op, err)
	}

	rawIDToken, ok := tok.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return models.ExternalIdentity{}, fmt.Errorf("%s: %w", op, ErrMissingIDToken)
	}

	verifier, err := g.idTokenVerifier(ctx)
	if err != nil {
		return models.ExternalIdentity{}, fmt.Errorf("%s: %w", op, err)
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return models.ExternalIdentity{}, fmt.Errorf("%s: verify id_token: %w", op, err)
	}

	var claims googleIDClaims
	if err := idToken.Claims(&claims); err != nil {
		return models.ExternalIdentity{}, fmt.Errorf("%s: decode claims: %w", op, err)
	}

	return models.ExternalIdentity{
		Subject:    claims.Sub,
		Email:      claims.Email,
		Name:       claims.Name,
		PictureURL: claims.Picture,
	}, nil
}

func (g *GoogleProvider) idTokenVerifier(ctx context.Context) (*oidc.IDTokenVerifier, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.verifier != nil {
		return g.verifier, nil
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("init google oidc provider: %w", err)
	}

	g.verifier = provider.Verifier(&oidc.Config{ClientID: g.cfg.ClientID})

	return g.verifier, nil
}
