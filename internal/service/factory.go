package service

import (
	"cordfriend.app/server/common/metrics"
	"cordfriend.app/server/internal/auth"
	"cordfriend.app/server/internal/oauth"
	"cordfriend.app/server/internal/secret"
	"cordfriend.app/server/internal/store"
)

type Services struct {
	stores    *store.Stores
	txRunner  TxRunner
	codec     *secret.Codec
	issuer    *auth.TokenIssuer
	providers *oauth.Registry
	metrics   *metrics.Metrics
}

func NewServices(
	stores *store.Stores,
	txRunner TxRunner,
	codec *secret.Codec,
	issuer *auth.TokenIssuer,
	providers *oauth.Registry,
	m *metrics.Metrics,
) *Services {
	return &Services{
		stores:    stores,
		txRunner:  txRunner,
		codec:     codec,
		issuer:    issuer,
		providers: providers,
		metrics:   m,
	}
}

func (s *Services) Sessions() SessionService {
	return NewSessionService(s.stores.Accounts(), s.issuer, s.metrics)
}

func (s *Services) BotDeleter() BotDeleter {
	return NewBotDeleter(s.txRunner, s.stores.Images(), s.metrics)
}

func (s *Services) Accounts() AccountService {
	return NewAccountService(
		s.stores.Accounts(),
		s.stores.Bots(),
		s.stores.Credentials(),
		s.BotDeleter(),
		s.issuer,
	)
}

func (s *Services) Bots() BotService {
	return NewBotService(
		s.stores.Accounts(),
		s.stores.Bots(),
		s.stores.Images(),
		s.txRunner,
		s.BotDeleter(),
		s.codec,
		s.metrics,
	)
}

func (s *Services) Images() ImageService {
	return NewImageService(s.stores.Images(), s.metrics)
}

func (s *Services) OAuth() OAuthService {
	return NewOAuthService(
		s.providers,
		s.stores.Accounts(),
		s.stores.Credentials(),
		s.txRunner,
		s.issuer,
	)
}
