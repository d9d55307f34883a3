package store

import (
	"context"
	"time"

	"cordfriend.app/server/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

const accountsCollection = "users"

type accountDoc struct {
	ID           int64     `bson:"_id"`
	Email        string    `bson:"email"`
	Password     *string   `bson:"password"`
	Bots         []int64   `bson:"bots"`
	TokenVersion int64     `bson:"tokenVersion"`
	CreatedAt    time.Time `bson:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at"`
}

type accountStore struct {
	coll *mongo.Collection
}

func newAccountStore(database *mongo.Database) AccountStore {
	return &accountStore{coll: database.Collection(accountsCollection)}
}

func (s *accountStore) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	return s.findOne(ctx, bson.D{{Key: "_id", Value: id}})
}

func (s *accountStore) GetByEmail(ctx context.Context, email string) (*model.Account, error) {
	return s.findOne(ctx, bson.D{{Key: "email", Value: email}})
}

func (s *accountStore) findOne(ctx context.Context, filter bson.D) (*model.Account, error) {
	var doc accountDoc
	if err := s.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return toAccountModel(doc), nil
}

func (s *accountStore) Create(ctx context.Context, account *model.Account) error {
	now := time.Now().UTC()
	doc := accountDoc{
		ID:           account.ID,
		Email:        account.Email,
		Password:     account.PasswordHash,
		Bots:         account.Bots,
		TokenVersion: account.TokenVersion,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if doc.Bots == nil {
		doc.Bots = []int64{}
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}
	*account = *toAccountModel(doc)
	return nil
}

func (s *accountStore) UpdateProfile(ctx context.Context, id int64, email string, passwordHash *string) error {
	set := bson.D{
		{Key: "email", Value: email},
		{Key: "updated_at", Value: time.Now().UTC()},
	}
	if passwordHash != nil {
		set = append(set, bson.E{Key: "password", Value: *passwordHash})
	}
	return s.updateOne(ctx, id, bson.D{{Key: "$set", Value: set}})
}

func (s *accountStore) IncrementTokenVersion(ctx context.Context, id int64) error {
	return s.updateOne(ctx, id, bson.D{{Key: "$inc", Value: bson.D{{Key: "tokenVersion", Value: 1}}}})
}

func (s *accountStore) AddBot(ctx context.Context, accountID, botID int64) error {
	return s.updateOne(ctx, accountID, bson.D{{Key: "$push", Value: bson.D{{Key: "bots", Value: botID}}}})
}

func (s *accountStore) RemoveBot(ctx context.Context, accountID, botID int64) error {
	return s.updateOne(ctx, accountID, bson.D{{Key: "$pull", Value: bson.D{{Key: "bots", Value: botID}}}})
}

func (s *accountStore) updateOne(ctx context.Context, id int64, update bson.D) error {
	res, err := s.coll.UpdateOne(ctx, bson.D{{Key: "_id", Value: id}}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *accountStore) Delete(ctx context.Context, id int64) error {
	res, err := s.coll.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}})
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func toAccountModel(doc accountDoc) *model.Account {
	bots := doc.Bots
	if bots == nil {
		bots = []int64{}
	}
	return &model.Account{
		ID:           doc.ID,
		Email:        doc.Email,
		PasswordHash: doc.Password,
		Bots:         bots,
		TokenVersion: doc.TokenVersion,
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}
