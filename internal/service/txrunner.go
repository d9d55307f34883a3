package service

import (
	"context"

	"cordfriend.app/server/core/db"
	"cordfriend.app/server/internal/store"
)

// StoreProvider exposes only the stores needed by a multi-collection operation.
type StoreProvider interface {
	Accounts() store.AccountStore
	Credentials() store.CredentialStore
	Bots() store.BotStore
}

// TxRunner runs fn against stores whose calls share one unit of work. With a
// transactional runner a returned error rolls back every write made through
// the ctx handed to fn; otherwise writes are committed one by one in order.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, stores StoreProvider) error) error
	Transactional() bool
}

type dbTxRunner struct {
	db     *db.DB
	stores StoreProvider
}

// NewTxRunner builds a TxRunner backed by MongoDB sessions. It needs a replica
// set or sharded cluster.
func NewTxRunner(db *db.DB, stores StoreProvider) TxRunner {
	return &dbTxRunner{db: db, stores: stores}
}

func (r *dbTxRunner) WithTx(ctx context.Context, fn func(ctx context.Context, stores StoreProvider) error) error {
	return r.db.WithTx(ctx, func(txCtx context.Context) error {
		return fn(txCtx, r.stores)
	})
}

func (r *dbTxRunner) Transactional() bool {
	return true
}

type sequentialRunner struct {
	stores StoreProvider
}

// NewSequentialRunner runs fn directly, for standalone servers without
// transaction support.
func NewSequentialRunner(stores StoreProvider) TxRunner {
	return &sequentialRunner{stores: stores}
}

func (r *sequentialRunner) WithTx(ctx context.Context, fn func(ctx context.Context, stores StoreProvider) error) error {
	return fn(ctx, r.stores)
}

func (r *sequentialRunner) Transactional() bool {
	return false
}
