package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/common/logger"
	"cordfriend.app/server/common/metrics"
	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/secret"
	"cordfriend.app/server/internal/store"
	"golang.org/x/sync/errgroup"
)

const (
	msgBotExists   = "Bot already exists in server."
	msgBotNotFound = "Bot not found."

	listConcurrency = 8
)

type BotInput struct {
	Name           string
	Persona        string
	ServerID       string
	GoogleAIKey    string
	OpenWeatherKey string
	ImageID        string
	ImageFilename  string
}

// BotView is a bot with its secrets decrypted for its owner.
type BotView struct {
	Bot            *model.Bot
	GoogleAIKey    string
	OpenWeatherKey string
}

type BotList struct {
	Bots []BotView
	// Missing counts ids on the account that no longer resolve to a bot.
	Missing int
}

type BotService interface {
	Create(ctx context.Context, ownerID int64, input BotInput) (*model.Bot, error)
	List(ctx context.Context, ownerID int64) (*BotList, error)
	Get(ctx context.Context, ownerID int64, botID string) (*BotView, error)
	Edit(ctx context.Context, ownerID int64, botID string, input BotInput) error
	Delete(ctx context.Context, ownerID int64, botID, imageID string) (*DeletionResult, error)
}

type botService struct {
	accounts store.AccountStore
	bots     store.BotStore
	images   store.ImageStore
	runner   TxRunner
	deleter  BotDeleter
	codec    *secret.Codec
	metrics  *metrics.Metrics
}

func NewBotService(
	accounts store.AccountStore,
	bots store.BotStore,
	images store.ImageStore,
	runner TxRunner,
	deleter BotDeleter,
	codec *secret.Codec,
	m *metrics.Metrics,
) BotService {
	return &botService{
		accounts: accounts,
		bots:     bots,
		images:   images,
		runner:   runner,
		deleter:  deleter,
		codec:    codec,
		metrics:  m,
	}
}

func validateBotInput(input *BotInput) (int64, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.ServerID = strings.TrimSpace(input.ServerID)
	input.ImageFilename = strings.TrimSpace(input.ImageFilename)

	fields := map[string]string{}
	if input.Name == "" {
		fields["name"] = "is required"
	}
	if input.ServerID == "" {
		fields["server_id"] = "is required"
	}
	if input.GoogleAIKey == "" {
		fields["google_ai_api"] = "is required"
	}
	if input.ImageID == "" {
		fields["image_id"] = "is required"
	}
	if input.ImageFilename == "" {
		fields["image_filename"] = "is required"
	}
	if len(fields) > 0 {
		return 0, &Error{Kind: ErrValidation, Message: "Invalid bot data.", Fields: fields}
	}

	return parseID(input.ImageID, "Invalid image ID format.")
}

func (s *botService) encryptKeys(input BotInput) (secret.Encrypted, secret.Encrypted, error) {
	google, err := s.codec.Encrypt(input.GoogleAIKey)
	if err != nil {
		return secret.Encrypted{}, secret.Encrypted{}, fmt.Errorf("encrypting google ai key: %w", err)
	}
	var weather secret.Encrypted
	if input.OpenWeatherKey != "" {
		if weather, err = s.codec.Encrypt(input.OpenWeatherKey); err != nil {
			return secret.Encrypted{}, secret.Encrypted{}, fmt.Errorf("encrypting openweathermap key: %w", err)
		}
	}
	return google, weather, nil
}

func (s *botService) requireImage(ctx context.Context, imageID int64) error {
	_, content, err := s.images.Open(ctx, imageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFoundError("Image not found.")
		}
		return storeFailure("checking image", err)
	}
	return content.Close()
}

func (s *botService) Create(ctx context.Context, ownerID int64, input BotInput) (*model.Bot, error) {
	imageID, err := validateBotInput(&input)
	if err != nil {
		return nil, err
	}

	taken, err := s.bots.ServerIDTaken(ctx, input.ServerID, 0)
	if err != nil {
		return nil, storeFailure("checking server id", err)
	}
	if taken {
		return nil, conflictError(msgBotExists)
	}

	if err := s.requireImage(ctx, imageID); err != nil {
		return nil, err
	}

	googleKey, weatherKey, err := s.encryptKeys(input)
	if err != nil {
		return nil, err
	}

	bot := &model.Bot{
		ID:             id.New(),
		Name:           input.Name,
		Persona:        input.Persona,
		ServerID:       input.ServerID,
		OwnerID:        ownerID,
		GoogleAIKey:    googleKey,
		OpenWeatherKey: weatherKey,
		ImageID:        imageID,
		ImageFilename:  input.ImageFilename,
	}

	err = s.runner.WithTx(ctx, func(ctx context.Context, stores StoreProvider) error {
		if err := stores.Bots().Create(ctx, bot); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				return conflictError(msgBotExists)
			}
			return storeFailure("creating bot", err)
		}
		if err := stores.Accounts().AddBot(ctx, ownerID, bot.ID); err != nil {
			if !s.runner.Transactional() {
				if delErr := stores.Bots().Delete(ctx, bot.ID, ownerID); delErr != nil {
					slog.ErrorContext(ctx, "failed to remove unlinked bot", "bot_id", bot.ID, "error", delErr)
				}
			}
			if errors.Is(err, store.ErrNotFound) {
				return notFoundError(msgAccountNotFound)
			}
			return storeFailure("adding bot to account", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "bot created", "bot_id", bot.ID, "owner_id", ownerID)
	return bot, nil
}

func (s *botService) view(bot *model.Bot) (*BotView, error) {
	google, err := s.codec.Decrypt(bot.GoogleAIKey)
	if err != nil {
		return nil, fmt.Errorf("decrypting google ai key of bot %d: %w", bot.ID, err)
	}
	var weather string
	if !bot.OpenWeatherKey.IsZero() {
		if weather, err = s.codec.Decrypt(bot.OpenWeatherKey); err != nil {
			return nil, fmt.Errorf("decrypting openweathermap key of bot %d: %w", bot.ID, err)
		}
	}
	return &BotView{Bot: bot, GoogleAIKey: google, OpenWeatherKey: weather}, nil
}

func (s *botService) List(ctx context.Context, ownerID int64) (*BotList, error) {
	account, err := s.accounts.GetByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError(msgAccountNotFound)
		}
		return nil, storeFailure("loading account", err)
	}

	views := make([]*BotView, len(account.Bots))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listConcurrency)
	for i, botID := range account.Bots {
		g.Go(func() error {
			bot, err := s.bots.GetByID(gctx, botID)
			if err != nil {
				if errors.Is(err, store.ErrNotFound) {
					slog.WarnContext(gctx, "bot listed on account not found", "bot_id", botID)
					return nil
				}
				return storeFailure("loading bot", err)
			}
			if bot.OwnerID != ownerID {
				slog.WarnContext(gctx, "bot listed on account belongs to another owner", "bot_id", botID)
				return nil
			}
			view, err := s.view(bot)
			if err != nil {
				return err
			}
			views[i] = view
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	list := &BotList{Bots: make([]BotView, 0, len(views))}
	for _, v := range views {
		if v == nil {
			list.Missing++
			continue
		}
		list.Bots = append(list.Bots, *v)
	}
	return list, nil
}

func (s *botService) Get(ctx context.Context, ownerID int64, rawBotID string) (*BotView, error) {
	botID, err := parseID(rawBotID, "Invalid bot ID format.")
	if err != nil {
		return nil, err
	}

	bot, err := s.owned(ctx, ownerID, botID, fmt.Sprintf("Bot with ID %s not found.", id.Format(botID)))
	if err != nil {
		return nil, err
	}
	return s.view(bot)
}

// owned loads a bot and hides bots of other owners behind the same not-found
// error as missing ones.
func (s *botService) owned(ctx context.Context, ownerID, botID int64, notFoundMsg string) (*model.Bot, error) {
	bot, err := s.bots.GetByID(ctx, botID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, notFoundError(notFoundMsg)
		}
		return nil, storeFailure("loading bot", err)
	}
	if bot.OwnerID != ownerID {
		return nil, notFoundError(notFoundMsg)
	}
	return bot, nil
}

func (s *botService) Edit(ctx context.Context, ownerID int64, rawBotID string, input BotInput) error {
	botID, err := parseID(rawBotID, "Invalid bot ID format.")
	if err != nil {
		return err
	}
	imageID, err := validateBotInput(&input)
	if err != nil {
		return err
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{BotID: &botID})

	existing, err := s.owned(ctx, ownerID, botID, msgBotNotFound)
	if err != nil {
		return err
	}

	if input.ServerID != existing.ServerID {
		taken, err := s.bots.ServerIDTaken(ctx, input.ServerID, botID)
		if err != nil {
			return storeFailure("checking server id", err)
		}
		if taken {
			return conflictError(msgBotExists)
		}
	}

	if imageID != existing.ImageID {
		if err := s.requireImage(ctx, imageID); err != nil {
			return err
		}
	}

	googleKey, weatherKey, err := s.encryptKeys(input)
	if err != nil {
		return err
	}

	updated := *existing
	updated.Name = input.Name
	updated.Persona = input.Persona
	updated.ServerID = input.ServerID
	updated.GoogleAIKey = googleKey
	updated.OpenWeatherKey = weatherKey
	updated.ImageID = imageID
	updated.ImageFilename = input.ImageFilename

	if err := s.bots.Update(ctx, &updated); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			return notFoundError(msgBotNotFound)
		case errors.Is(err, store.ErrDuplicate):
			return conflictError(msgBotExists)
		}
		return storeFailure("updating bot", err)
	}

	if existing.ImageID != 0 && existing.ImageID != imageID {
		if err := s.images.Delete(ctx, existing.ImageID); err != nil {
			s.metrics.DeletionWarning("replaced_image")
			slog.WarnContext(ctx, "failed to delete replaced bot image",
				"image_id", existing.ImageID,
				"error", err,
			)
		}
	}

	slog.InfoContext(ctx, "bot updated", "image_replaced", existing.ImageID != imageID)
	return nil
}

// Delete removes an owned bot. The image deleted is always the one stored on
// the bot; a client-supplied image id must match it.
func (s *botService) Delete(ctx context.Context, ownerID int64, rawBotID, rawImageID string) (*DeletionResult, error) {
	botID, err := parseID(rawBotID, "Invalid bot ID format.")
	if err != nil {
		return nil, err
	}
	var imageID int64
	if rawImageID != "" {
		if imageID, err = parseID(rawImageID, "Invalid bot image ID format."); err != nil {
			return nil, err
		}
	}

	bot, err := s.owned(ctx, ownerID, botID, "Bot not found.")
	if err != nil {
		return nil, err
	}
	if imageID != 0 && imageID != bot.ImageID {
		return nil, validationError("The image does not belong to this bot.")
	}

	params := DeleteBotParams{
		BotID:           id.Format(bot.ID),
		OwnerID:         id.Format(ownerID),
		DetachFromOwner: true,
	}
	if bot.ImageID != 0 {
		params.ImageID = id.Format(bot.ImageID)
	}
	return s.deleter.Delete(ctx, params)
}
