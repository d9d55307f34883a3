package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// EnsureIndexes creates the unique indexes the stores rely on for conflict
// detection. Creating an index that already exists is a no-op.
func EnsureIndexes(ctx context.Context, database *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		accountsCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true).SetName("email_unique")},
		},
		botsCollection: {
			{Keys: bson.D{{Key: "server_id", Value: 1}}, Options: options.Index().SetUnique(true).SetName("server_id_unique")},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("user_id")},
		},
		credentialsCollection: {
			{
				Keys:    bson.D{{Key: "provider", Value: 1}, {Key: "subject", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("provider_subject_unique"),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetName("user_id")},
		},
	}

	for collection, models := range indexes {
		if _, err := database.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", collection, translate(err))
		}
	}
	return nil
}
