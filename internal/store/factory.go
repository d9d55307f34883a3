package store

import (
	"go.mongodb.org/mongo-driver/v2/mongo"
)

type Stores struct {
	database *mongo.Database
	images   ImageStore
}

func NewStores(database *mongo.Database, images ImageStore) *Stores {
	return &Stores{database: database, images: images}
}

func (s *Stores) Accounts() AccountStore {
	return newAccountStore(s.database)
}

func (s *Stores) Credentials() CredentialStore {
	return newCredentialStore(s.database)
}

func (s *Stores) Bots() BotStore {
	return newBotStore(s.database)
}

func (s *Stores) Images() ImageStore {
	return s.images
}
