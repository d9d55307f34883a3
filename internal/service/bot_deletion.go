package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"cordfriend.app/server/common/logger"
	"cordfriend.app/server/common/metrics"
	"cordfriend.app/server/internal/store"
)

type DeleteBotParams struct {
	BotID           string
	OwnerID         string
	ImageID         string // empty when the bot has no image
	DetachFromOwner bool
}

// DeletionResult reports how far a bot deletion got. Warnings collect the
// failures that happened after the bot record was already gone.
type DeletionResult struct {
	BotDeleted   bool     `json:"bot_deleted"`
	Detached     bool     `json:"detached"`
	ImageDeleted bool     `json:"image_deleted"`
	Warnings     []string `json:"warnings,omitempty"`
}

type BotDeleter interface {
	Delete(ctx context.Context, params DeleteBotParams) (*DeletionResult, error)
}

type botDeleter struct {
	runner  TxRunner
	images  store.ImageStore
	metrics *metrics.Metrics
}

func NewBotDeleter(runner TxRunner, images store.ImageStore, m *metrics.Metrics) BotDeleter {
	return &botDeleter{runner: runner, images: images, metrics: m}
}

// Delete removes the bot record, optionally pulls it from the owner's bot
// list, then removes its image. The record and owner steps share a
// transaction when the runner supports one; the image is always deleted last
// and its failure only produces a warning.
func (d *botDeleter) Delete(ctx context.Context, params DeleteBotParams) (*DeletionResult, error) {
	botID, err := parseID(params.BotID, "Invalid bot ID format.")
	if err != nil {
		return nil, err
	}
	ownerID, err := parseID(params.OwnerID, "Invalid user ID format.")
	if err != nil {
		return nil, err
	}
	var imageID int64
	if params.ImageID != "" {
		if imageID, err = parseID(params.ImageID, "Invalid bot image ID format."); err != nil {
			return nil, err
		}
	}

	sc := logger.StartSpan(ctx, "service.delete_bot")
	defer sc.End()
	ctx = logger.WithLogFields(sc.Context(), logger.LogFields{BotID: &botID, Component: "bot_deletion"})
	result := &DeletionResult{}

	err = d.runner.WithTx(ctx, func(ctx context.Context, stores StoreProvider) error {
		result.BotDeleted, result.Detached = false, false

		if err := stores.Bots().Delete(ctx, botID, ownerID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFoundError("Bot not found.")
			}
			return storeFailure("deleting bot", err)
		}
		result.BotDeleted = true

		if !params.DetachFromOwner {
			return nil
		}
		if err := stores.Accounts().RemoveBot(ctx, ownerID, botID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return notFoundError("User not found.")
			}
			return storeFailure("detaching bot from owner", err)
		}
		result.Detached = true
		return nil
	})
	if err != nil {
		sc.RecordError(err)
		if d.runner.Transactional() {
			result.BotDeleted, result.Detached = false, false
		}
		if result.BotDeleted {
			slog.WarnContext(ctx, "bot deleted but not detached from owner",
				"owner_id", ownerID,
				"error", err,
			)
		}
		return result, err
	}

	if imageID != 0 {
		d.deleteImage(ctx, imageID, result)
	}

	slog.InfoContext(ctx, "bot deleted",
		"owner_id", ownerID,
		"detached", result.Detached,
		"image_deleted", result.ImageDeleted,
	)
	return result, nil
}

func (d *botDeleter) deleteImage(ctx context.Context, imageID int64, result *DeletionResult) {
	err := d.images.Delete(ctx, imageID)
	if err == nil {
		result.ImageDeleted = true
		return
	}

	warning := fmt.Sprintf("image %d was not deleted: %v", imageID, err)
	if errors.Is(err, store.ErrNotFound) {
		warning = fmt.Sprintf("image %d was already missing", imageID)
	}
	result.Warnings = append(result.Warnings, warning)
	d.metrics.DeletionWarning("image")
	slog.WarnContext(ctx, "failed to delete bot image",
		"image_id", imageID,
		"error", err,
	)
}
