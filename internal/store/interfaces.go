package store

import (
	"context"
	"errors"
	"io"

	"cordfriend.app/server/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist
var (
	ErrNotFound    = errors.New("not found")
	ErrDuplicate   = errors.New("duplicate key")
	ErrUnavailable = errors.New("store unavailable")
)

// AccountStore defines the contract for account data access
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetByEmail(ctx context.Context, email string) (*model.Account, error)
	Create(ctx context.Context, account *model.Account) error
	// UpdateProfile sets the email and, when passwordHash is non-nil, the password.
	UpdateProfile(ctx context.Context, id int64, email string, passwordHash *string) error
	IncrementTokenVersion(ctx context.Context, id int64) error
	AddBot(ctx context.Context, accountID, botID int64) error
	RemoveBot(ctx context.Context, accountID, botID int64) error
	Delete(ctx context.Context, id int64) error
}

// CredentialStore maps external identity provider subjects to accounts
type CredentialStore interface {
	GetByProviderSubject(ctx context.Context, provider, subject string) (*model.CredentialLink, error)
	Create(ctx context.Context, link *model.CredentialLink) error
	DeleteByAccount(ctx context.Context, accountID int64) error
}

type BotStore interface {
	GetByID(ctx context.Context, id int64) (*model.Bot, error)
	// ServerIDTaken reports whether another bot than excludeID already serves serverID.
	ServerIDTaken(ctx context.Context, serverID string, excludeID int64) (bool, error)
	Create(ctx context.Context, bot *model.Bot) error
	Update(ctx context.Context, bot *model.Bot) error
	// Delete removes the bot only if it belongs to ownerID.
	Delete(ctx context.Context, id, ownerID int64) error
}

// ImageStore holds bot images. Blobs live independently of the bots that reference them.
type ImageStore interface {
	Put(ctx context.Context, image *model.Image, content io.Reader) error
	Open(ctx context.Context, id int64) (*model.Image, io.ReadCloser, error)
	Delete(ctx context.Context, id int64) error
}
