package store

import (
	"context"
	"time"

	"cordfriend.app/server/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const credentialsCollection = "credentials"

type credentialDoc struct {
	ID        int64     `bson:"_id"`
	AccountID int64     `bson:"user_id"`
	Provider  string    `bson:"provider"`
	Subject   string    `bson:"subject"`
	CreatedAt time.Time `bson:"created_at"`
}

type credentialStore struct {
	coll *mongo.Collection
}

func newCredentialStore(database *mongo.Database) CredentialStore {
	return &credentialStore{coll: database.Collection(credentialsCollection)}
}

func (s *credentialStore) GetByProviderSubject(ctx context.Context, provider, subject string) (*model.CredentialLink, error) {
	filter := bson.D{
		{Key: "provider", Value: provider},
		{Key: "subject", Value: subject},
	}
	var doc credentialDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return toCredentialModel(doc), nil
}

func (s *credentialStore) Create(ctx context.Context, link *model.CredentialLink) error {
	doc := credentialDoc{
		ID:        link.ID,
		AccountID: link.AccountID,
		Provider:  link.Provider,
		Subject:   link.Subject,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}
	*link = *toCredentialModel(doc)
	return nil
}

func (s *credentialStore) DeleteByAccount(ctx context.Context, accountID int64) error {
	_, err := s.coll.DeleteMany(ctx, bson.D{{Key: "user_id", Value: accountID}})
	return translate(err)
}

func toCredentialModel(doc credentialDoc) *model.CredentialLink {
	return &model.CredentialLink{
		ID:        doc.ID,
		AccountID: doc.AccountID,
		Provider:  doc.Provider,
		Subject:   doc.Subject,
		CreatedAt: doc.CreatedAt,
	}
}
