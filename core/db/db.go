package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// DB wraps a mongo.Client bound to one database and provides transaction support.
// It serves as the main entry point for database operations.
type DB struct {
	client   *mongo.Client
	database *mongo.Database
}

type Config struct {
	URI      string
	Database string

	// Applied to connect, server selection and every operation.
	Timeout time.Duration

	// Multi-document transactions need a replica set or sharded cluster.
	Transactions bool
}

// New connects to MongoDB and pings the primary before returning.
func New(ctx context.Context, cfg Config) (*DB, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	opts := options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout).
		SetTimeout(timeout)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("creating mongo client: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return &DB{
		client:   client,
		database: client.Database(cfg.Database),
	}, nil
}

func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// Database returns the handle all collections and buckets are created from.
func (db *DB) Database() *mongo.Database {
	return db.database
}

func (db *DB) Ping(ctx context.Context) error {
	return db.client.Ping(ctx, readpref.Primary())
}

// WithTx executes fn inside a multi-document transaction. The ctx handed to fn
// carries the session; every collection call made with it joins the transaction.
// If fn returns an error the transaction is aborted, otherwise it is committed.
//
// Usage:
//
//	err := db.WithTx(ctx, func(ctx context.Context) error {
//	    if err := bots.Delete(ctx, botID, ownerID); err != nil {
//	        return err
//	    }
//	    return accounts.RemoveBot(ctx, ownerID, botID)
//	})
func (db *DB) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := db.client.StartSession()
	if err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, fn(txCtx)
	})
	return err
}
