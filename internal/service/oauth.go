package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/internal/auth"
	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/oauth"
	"cordfriend.app/server/internal/store"
)

type OAuthService interface {
	AuthorizationURL(provider, state string) (string, error)
	// Callback exchanges the code, finds or creates the linked account and
	// issues a session for it.
	Callback(ctx context.Context, provider, code string) (*Session, error)
}

type oauthService struct {
	providers   *oauth.Registry
	accounts    store.AccountStore
	credentials store.CredentialStore
	runner      TxRunner
	issuer      *auth.TokenIssuer
}

func NewOAuthService(
	providers *oauth.Registry,
	accounts store.AccountStore,
	credentials store.CredentialStore,
	runner TxRunner,
	issuer *auth.TokenIssuer,
) OAuthService {
	return &oauthService{
		providers:   providers,
		accounts:    accounts,
		credentials: credentials,
		runner:      runner,
		issuer:      issuer,
	}
}

func (s *oauthService) provider(name string) (oauth.Provider, error) {
	p, err := s.providers.Get(name)
	if err != nil {
		return nil, notFoundError("Unknown sign-in provider.")
	}
	return p, nil
}

func (s *oauthService) AuthorizationURL(provider, state string) (string, error) {
	p, err := s.provider(provider)
	if err != nil {
		return "", err
	}
	return p.AuthCodeURL(state)
}

func (s *oauthService) Callback(ctx context.Context, provider, code string) (*Session, error) {
	p, err := s.provider(provider)
	if err != nil {
		return nil, err
	}
	if code == "" {
		return nil, validationError("Missing authorization code.")
	}

	identity, err := p.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, oauth.ErrUnverifiedEmail) {
			return nil, unauthorizedError("Your provider email address is not verified.")
		}
		slog.WarnContext(ctx, "oauth exchange failed", "provider", provider, "error", err)
		return nil, unauthorizedError("Sign-in with the provider failed.")
	}

	account, err := s.linkedAccount(ctx, identity)
	if err != nil {
		return nil, err
	}

	token, expiresAt, err := s.issuer.Issue(account.ID, account.Email, account.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	return &Session{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

func (s *oauthService) linkedAccount(ctx context.Context, identity *oauth.Identity) (*model.Account, error) {
	link, err := s.credentials.GetByProviderSubject(ctx, identity.Provider, identity.Subject)
	if err == nil {
		account, err := s.accounts.GetByID(ctx, link.AccountID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return nil, notFoundError("User does not exist.")
			}
			return nil, storeFailure("loading linked account", err)
		}
		return account, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, storeFailure("loading credential link", err)
	}

	if identity.Email == "" {
		return nil, validationError("The provider did not share an email address.")
	}

	// An existing password account is never linked implicitly.
	if _, err := s.accounts.GetByEmail(ctx, identity.Email); err == nil {
		return nil, conflictError("An account with this email already exists. Sign in with your password.")
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storeFailure("checking email", err)
	}

	account := &model.Account{
		ID:    id.New(),
		Email: identity.Email,
		Bots:  []int64{},
	}
	link = &model.CredentialLink{
		ID:        id.New(),
		AccountID: account.ID,
		Provider:  identity.Provider,
		Subject:   identity.Subject,
	}

	err = s.runner.WithTx(ctx, func(ctx context.Context, stores StoreProvider) error {
		if err := stores.Accounts().Create(ctx, account); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return conflictError(msgAccountExists)
			}
			return storeFailure("creating account", err)
		}
		if err := stores.Credentials().Create(ctx, link); err != nil {
			if !s.runner.Transactional() {
				if delErr := stores.Accounts().Delete(ctx, account.ID); delErr != nil {
					slog.ErrorContext(ctx, "failed to remove unlinked account", "account_id", account.ID, "error", delErr)
				}
			}
			if errors.Is(err, store.ErrDuplicate) {
				return conflictError("This provider account is already linked.")
			}
			return storeFailure("creating credential link", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "account created from oauth",
		"account_id", account.ID,
		"provider", identity.Provider,
	)
	return account, nil
}
