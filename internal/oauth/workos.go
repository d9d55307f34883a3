package oauth

import (
	"context"
	"fmt"
	"log/slog"

	"cordfriend.app/server/core/config"
	"github.com/workos/workos-go/v6/pkg/usermanagement"
)

const WorkOSProviderName = "workos"

type workosProvider struct {
	cfg config.WorkOSConfig
}

func NewWorkOSProvider(cfg config.WorkOSConfig) Provider {
	usermanagement.SetAPIKey(cfg.APIKey)
	return &workosProvider{cfg: cfg}
}

func (p *workosProvider) Name() string {
	return WorkOSProviderName
}

func (p *workosProvider) AuthCodeURL(state string) (string, error) {
	url, err := usermanagement.GetAuthorizationURL(usermanagement.GetAuthorizationURLOpts{
		ClientID:    p.cfg.ClientID,
		RedirectURI: p.cfg.RedirectURI,
		State:       state,
		Provider:    "authkit",
	})
	if err != nil {
		return "", fmt.Errorf("generating authorization URL: %w", err)
	}
	return url.String(), nil
}

func (p *workosProvider) Exchange(ctx context.Context, code string) (*Identity, error) {
	resp, err := usermanagement.AuthenticateWithCode(ctx, usermanagement.AuthenticateWithCodeOpts{
		ClientID: p.cfg.ClientID,
		Code:     code,
	})
	if err != nil {
		slog.WarnContext(ctx, "workos code exchange failed", "error", err)
		return nil, ErrExchange
	}
	if !resp.User.EmailVerified {
		return nil, ErrUnverifiedEmail
	}

	return &Identity{
		Provider: WorkOSProviderName,
		Subject:  resp.User.ID,
		Email:    resp.User.Email,
	}, nil
}
