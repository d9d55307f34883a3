package oauth

import (
	"context"
	"fmt"
	"log/slog"

	"cordfriend.app/server/core/config"
	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	GoogleProviderName = "google"
	googleIssuer       = "https://accounts.google.com"
)

type googleProvider struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewGoogleProvider discovers Google's OIDC endpoints, so it needs network
// access at startup.
func NewGoogleProvider(ctx context.Context, cfg config.GoogleConfig) (Provider, error) {
	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		return nil, fmt.Errorf("discovering google oidc provider: %w", err)
	}

	return &googleProvider{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "email"},
		},
	}, nil
}

func (p *googleProvider) Name() string {
	return GoogleProviderName
}

func (p *googleProvider) AuthCodeURL(state string) (string, error) {
	return p.oauth2Config.AuthCodeURL(state), nil
}

func (p *googleProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	token, err := p.oauth2Config.Exchange(ctx, code)
	if err != nil {
		slog.WarnContext(ctx, "google code exchange failed", "error", err)
		return nil, ErrExchange
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return nil, fmt.Errorf("%w: missing id_token", ErrExchange)
	}

	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		slog.WarnContext(ctx, "google id token rejected", "error", err)
		return nil, ErrExchange
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%w: parsing claims: %v", ErrExchange, err)
	}
	if !claims.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	return &Identity{
		Provider: GoogleProviderName,
		Subject:  idToken.Subject,
		Email:    claims.Email,
	}, nil
}
