package service

import (
	"context"
	"errors"
	"log/slog"

	"cordfriend.app/server/common/metrics"
	"cordfriend.app/server/internal/auth"
	"cordfriend.app/server/internal/store"
)

const (
	msgInvalidToken = "Invalid or expired token."
	msgStaleToken   = "Token is no longer valid."
)

type SessionService interface {
	// Authenticate verifies a session token and checks it against the stored
	// token version. Every call reads the account.
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

type sessionService struct {
	accounts store.AccountStore
	issuer   *auth.TokenIssuer
	metrics  *metrics.Metrics
}

func NewSessionService(accounts store.AccountStore, issuer *auth.TokenIssuer, m *metrics.Metrics) SessionService {
	return &sessionService{accounts: accounts, issuer: issuer, metrics: m}
}

func (s *sessionService) Authenticate(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.issuer.Verify(token)
	if err != nil {
		reason := "malformed"
		switch {
		case errors.Is(err, auth.ErrExpiredToken):
			reason = "expired"
		case errors.Is(err, auth.ErrInvalidSignature):
			reason = "signature"
		}
		s.metrics.SessionRejected(reason)
		slog.DebugContext(ctx, "session token rejected", "reason", reason, "error", err)
		return nil, unauthorizedError(msgInvalidToken)
	}

	account, err := s.accounts.GetByID(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.metrics.SessionRejected("account_missing")
			return nil, unauthorizedError(msgStaleToken)
		}
		return nil, storeFailure("loading session account", err)
	}

	if account.TokenVersion != claims.TokenVersion {
		s.metrics.SessionRejected("stale_version")
		slog.DebugContext(ctx, "stale session token",
			"account_id", account.ID,
			"token_version", claims.TokenVersion,
			"stored_version", account.TokenVersion,
		)
		return nil, unauthorizedError(msgStaleToken)
	}

	return claims, nil
}
