package store

import (
	"context"
	"fmt"
	"time"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/secret"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const botsCollection = "bots"

// botDoc mirrors the document the bot runtime reads, which expects owner and
// image ids as strings.
type botDoc struct {
	ID             int64             `bson:"_id"`
	Name           string            `bson:"name"`
	Persona        string            `bson:"persona"`
	ServerID       string            `bson:"server_id"`
	UserID         string            `bson:"user_id"`
	GoogleAIAPI    secret.Encrypted  `bson:"google_ai_api"`
	OpenWeatherAPI secret.Encrypted  `bson:"openweathermap_api"`
	ImageID        string            `bson:"image_id"`
	ImageFilename  string            `bson:"image_filename"`
	Conversations  []conversationDoc `bson:"conversations"`
	CreatedAt      time.Time         `bson:"created_at"`
	UpdatedAt      time.Time         `bson:"updated_at"`
}

type conversationDoc struct {
	User struct {
		Name    string `bson:"name"`
		Message string `bson:"message"`
	} `bson:"user"`
	Bot string `bson:"bot"`
}

type botStore struct {
	coll *mongo.Collection
}

func newBotStore(database *mongo.Database) BotStore {
	return &botStore{coll: database.Collection(botsCollection)}
}

func (s *botStore) GetByID(ctx context.Context, botID int64) (*model.Bot, error) {
	var doc botDoc
	if err := s.coll.FindOne(ctx, bson.D{{Key: "_id", Value: botID}}).Decode(&doc); err != nil {
		return nil, translate(err)
	}
	return toBotModel(doc)
}

func (s *botStore) ServerIDTaken(ctx context.Context, serverID string, excludeID int64) (bool, error) {
	filter := bson.D{
		{Key: "server_id", Value: serverID},
		{Key: "_id", Value: bson.D{{Key: "$ne", Value: excludeID}}},
	}
	n, err := s.coll.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, translate(err)
	}
	return n > 0, nil
}

func (s *botStore) Create(ctx context.Context, bot *model.Bot) error {
	now := time.Now().UTC()
	doc := toBotDoc(bot)
	doc.Conversations = []conversationDoc{}
	doc.CreatedAt = now
	doc.UpdatedAt = now
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return translate(err)
	}
	bot.Conversations = []model.Conversation{}
	bot.CreatedAt = now
	bot.UpdatedAt = now
	return nil
}

func (s *botStore) Update(ctx context.Context, bot *model.Bot) error {
	doc := toBotDoc(bot)
	doc.UpdatedAt = time.Now().UTC()
	filter := bson.D{
		{Key: "_id", Value: bot.ID},
		{Key: "user_id", Value: doc.UserID},
	}
	update := bson.D{{Key: "$set", Value: bson.D{
		{Key: "name", Value: doc.Name},
		{Key: "persona", Value: doc.Persona},
		{Key: "server_id", Value: doc.ServerID},
		{Key: "google_ai_api", Value: doc.GoogleAIAPI},
		{Key: "openweathermap_api", Value: doc.OpenWeatherAPI},
		{Key: "image_id", Value: doc.ImageID},
		{Key: "image_filename", Value: doc.ImageFilename},
		{Key: "updated_at", Value: doc.UpdatedAt},
	}}}
	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	bot.UpdatedAt = doc.UpdatedAt
	return nil
}

func (s *botStore) Delete(ctx context.Context, botID, ownerID int64) error {
	filter := bson.D{
		{Key: "_id", Value: botID},
		{Key: "user_id", Value: id.Format(ownerID)},
	}
	res, err := s.coll.DeleteOne(ctx, filter)
	if err != nil {
		return translate(err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func toBotDoc(bot *model.Bot) botDoc {
	doc := botDoc{
		ID:             bot.ID,
		Name:           bot.Name,
		Persona:        bot.Persona,
		ServerID:       bot.ServerID,
		UserID:         id.Format(bot.OwnerID),
		GoogleAIAPI:    bot.GoogleAIKey,
		OpenWeatherAPI: bot.OpenWeatherKey,
		ImageFilename:  bot.ImageFilename,
		CreatedAt:      bot.CreatedAt,
		UpdatedAt:      bot.UpdatedAt,
	}
	if bot.ImageID != 0 {
		doc.ImageID = id.Format(bot.ImageID)
	}
	return doc
}

func toBotModel(doc botDoc) (*model.Bot, error) {
	ownerID, err := id.Parse(doc.UserID)
	if err != nil {
		return nil, fmt.Errorf("bot %d has malformed user_id %q: %w", doc.ID, doc.UserID, err)
	}
	var imageID int64
	if doc.ImageID != "" {
		if imageID, err = id.Parse(doc.ImageID); err != nil {
			return nil, fmt.Errorf("bot %d has malformed image_id %q: %w", doc.ID, doc.ImageID, err)
		}
	}

	conversations := make([]model.Conversation, 0, len(doc.Conversations))
	for _, c := range doc.Conversations {
		conversations = append(conversations, model.Conversation{
			User: model.ConversationUser{Name: c.User.Name, Message: c.User.Message},
			Bot:  c.Bot,
		})
	}

	return &model.Bot{
		ID:             doc.ID,
		Name:           doc.Name,
		Persona:        doc.Persona,
		ServerID:       doc.ServerID,
		OwnerID:        ownerID,
		GoogleAIKey:    doc.GoogleAIAPI,
		OpenWeatherKey: doc.OpenWeatherAPI,
		ImageID:        imageID,
		ImageFilename:  doc.ImageFilename,
		Conversations:  conversations,
		CreatedAt:      doc.CreatedAt,
		UpdatedAt:      doc.UpdatedAt,
	}, nil
}
