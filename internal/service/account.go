package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/common/logger"
	"cordfriend.app/server/internal/auth"
	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/store"
)

const (
	msgMissingCredentials = "Please provide an email or a password."
	msgIncorrectPassword  = "The password you entered is incorrect."
	msgAccountExists      = "User already exists."
	msgAccountNotFound    = "User not found."
)

// Session is a freshly issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Account   *model.Account
}

type EditAccountInput struct {
	Email       string
	OldPassword string
	NewPassword string
}

type AccountService interface {
	Signup(ctx context.Context, email, password string) (*model.Account, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	// Logout invalidates every token of the account the given token belongs
	// to. A missing or unverifiable token is not an error.
	Logout(ctx context.Context, token string) error
	Get(ctx context.Context, accountID int64) (*model.Account, error)
	Edit(ctx context.Context, accountID int64, input EditAccountInput) error
	// Delete removes the account together with its bots, their images and
	// its credential links. Failures on individual bots are logged and skipped.
	Delete(ctx context.Context, accountID int64) error
}

type accountService struct {
	accounts    store.AccountStore
	bots        store.BotStore
	credentials store.CredentialStore
	deleter     BotDeleter
	issuer      *auth.TokenIssuer
}

func NewAccountService(
	accounts store.AccountStore,
	bots store.BotStore,
	credentials store.CredentialStore,
	deleter BotDeleter,
	issuer *auth.TokenIssuer,
) AccountService {
	return &accountService{
		accounts:    accounts,
		bots:        bots,
		credentials: credentials,
		deleter:     deleter,
		issuer:      issuer,
	}
}

func (s *accountService) Signup(ctx context.Context, email, password string) (*model.Account, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError(msgMissingCredentials)
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, conflictError(msgAccountExists)
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, storeFailure("checking email", err)
	}

	hash, err := auth.HashPassword(ctx, password)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	account := &model.Account{
		ID:           id.New(),
		Email:        email,
		PasswordHash: &hash,
		Bots:         []int64{},
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, conflictError(msgAccountExists)
		}
		slog.ErrorContext(ctx, "failed to create account", "error", err)
		return nil, storeFailure("creating account", err)
	}

	slog.InfoContext(ctx, "account created", "account_id", account.ID)
	return account, nil
}

func (s *accountService) Login(ctx context.Context, email, password string) (*Session, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, validationError(msgMissingCredentials)
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError(fmt.Sprintf("Your email %s cannot be found in our database.", email))
		}
		return nil, storeFailure("loading account", err)
	}

	if !account.HasPassword() {
		return nil, unauthorizedError("Your email or password could not be found in our database.")
	}

	result, err := auth.ComparePassword(ctx, *account.PasswordHash, password)
	switch result {
	case auth.Match:
	case auth.NoMatch:
		slog.InfoContext(ctx, "login rejected: wrong password", "account_id", account.ID)
		return nil, unauthorizedError(msgIncorrectPassword)
	default:
		return nil, fmt.Errorf("comparing password: %w", err)
	}

	return s.issue(ctx, account)
}

func (s *accountService) issue(ctx context.Context, account *model.Account) (*Session, error) {
	token, expiresAt, err := s.issuer.Issue(account.ID, account.Email, account.TokenVersion)
	if err != nil {
		return nil, fmt.Errorf("issuing token: %w", err)
	}
	slog.InfoContext(ctx, "session issued", "account_id", account.ID, "expires_at", expiresAt)
	return &Session{Token: token, ExpiresAt: expiresAt, Account: account}, nil
}

func (s *accountService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := s.issuer.Verify(token)
	if err != nil {
		slog.DebugContext(ctx, "logout with unverifiable token", "error", err)
		return nil
	}

	if err := s.accounts.IncrementTokenVersion(ctx, claims.AccountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return storeFailure("bumping token version", err)
	}

	slog.InfoContext(ctx, "account logged out", "account_id", claims.AccountID)
	return nil
}

func (s *accountService) Get(ctx context.Context, accountID int64) (*model.Account, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError(msgAccountNotFound)
		}
		return nil, storeFailure("loading account", err)
	}
	return account, nil
}

func (s *accountService) Edit(ctx context.Context, accountID int64, input EditAccountInput) error {
	email := strings.TrimSpace(input.Email)
	if email == "" {
		return validationError("Please provide an email.")
	}
	changePassword := input.OldPassword != "" || input.NewPassword != ""
	if changePassword && (input.OldPassword == "" || input.NewPassword == "") {
		return validationError("You need both your old and new passwords to change your password.")
	}

	account, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}

	if email != account.Email {
		if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
			return conflictError(msgAccountExists)
		} else if !errors.Is(err, store.ErrNotFound) {
			return storeFailure("checking email", err)
		}
	}

	var newHash *string
	if changePassword {
		if !account.HasPassword() {
			return validationError("This account signs in with an external provider and has no password to change.")
		}
		result, err := auth.ComparePassword(ctx, *account.PasswordHash, input.OldPassword)
		switch result {
		case auth.Match:
		case auth.NoMatch:
			return unauthorizedError(msgIncorrectPassword)
		default:
			return fmt.Errorf("comparing password: %w", err)
		}

		hash, err := auth.HashPassword(ctx, input.NewPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}
		newHash = &hash
	}

	if err := s.accounts.UpdateProfile(ctx, accountID, email, newHash); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return notFoundError(msgAccountNotFound)
		case errors.Is(err, store.ErrDuplicate):
			return conflictError(msgAccountExists)
		}
		return storeFailure("updating account", err)
	}

	slog.InfoContext(ctx, "account updated",
		"account_id", accountID,
		"email_changed", email != account.Email,
		"password_changed", newHash != nil,
	)
	return nil
}

func (s *accountService) Delete(ctx context.Context, accountID int64) error {
	sc := logger.StartSpan(ctx, "service.delete_account")
	defer sc.End()
	ctx = logger.WithLogFields(sc.Context(), logger.LogFields{AccountID: &accountID, Component: "account_deletion"})

	account, err := s.Get(ctx, accountID)
	if err != nil {
		return err
	}

	ownerID := id.Format(accountID)
	for i, botID := range account.Bots {
		bot, err := s.bots.GetByID(ctx, botID)
		if err != nil {
			slog.WarnContext(ctx, "skipping bot during account deletion",
				"position", i+1,
				"total", len(account.Bots),
				"bot_id", botID,
				"error", err,
			)
			continue
		}

		params := DeleteBotParams{BotID: id.Format(bot.ID), OwnerID: ownerID}
		if bot.ImageID != 0 {
			params.ImageID = id.Format(bot.ImageID)
		}
		result, err := s.deleter.Delete(ctx, params)
		if err != nil {
			slog.ErrorContext(ctx, "failed to delete bot during account deletion",
				"bot_id", botID,
				"error", err,
			)
			continue
		}
		if len(result.Warnings) > 0 {
			slog.WarnContext(ctx, "bot deleted with warnings",
				"bot_id", botID,
				"warnings", result.Warnings,
			)
		}
	}

	if err := s.credentials.DeleteByAccount(ctx, accountID); err != nil {
		return storeFailure("deleting credential links", err)
	}

	if err := s.accounts.Delete(ctx, accountID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Could not find the user while deleting.")
		}
		return storeFailure("deleting account", err)
	}

	slog.InfoContext(ctx, "account deleted", "bots", len(account.Bots))
	return nil
}
