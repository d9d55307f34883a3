package service

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"cordfriend.app/server/common/id"
	"cordfriend.app/server/common/metrics"
	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/store"
)

const MaxImageSize = 5 << 20

var allowedImageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/webp": true,
}

type ImageService interface {
	Upload(ctx context.Context, filename, contentType string, size int64, content io.Reader) (*model.Image, error)
	// Open returns the image metadata and a stream the caller must close.
	Open(ctx context.Context, imageID string) (*model.Image, io.ReadCloser, error)
}

type imageService struct {
	images  store.ImageStore
	metrics *metrics.Metrics
}

func NewImageService(images store.ImageStore, m *metrics.Metrics) ImageService {
	return &imageService{images: images, metrics: m}
}

func (s *imageService) Upload(ctx context.Context, filename, contentType string, size int64, content io.Reader) (*model.Image, error) {
	if !allowedImageTypes[contentType] {
		return nil, validationError("Only PNG, JPG, JPEG, and WebP image formats are allowed.")
	}
	if size > MaxImageSize {
		return nil, validationError("Images must be 5 MB or smaller.")
	}

	image := &model.Image{
		ID:          id.New(),
		Filename:    filename,
		ContentType: contentType,
	}
	if err := s.images.Put(ctx, image, io.LimitReader(content, MaxImageSize)); err != nil {
		slog.ErrorContext(ctx, "failed to store image", "image_id", image.ID, "error", err)
		return nil, storeFailure("storing image", err)
	}

	s.metrics.ImageUploaded(image.Length)
	slog.InfoContext(ctx, "image uploaded",
		"image_id", image.ID,
		"content_type", contentType,
		"bytes", image.Length,
	)
	return image, nil
}

func (s *imageService) Open(ctx context.Context, rawID string) (*model.Image, io.ReadCloser, error) {
	imageID, err := parseID(rawID, "Invalid image ID format.")
	if err != nil {
		return nil, nil, err
	}

	image, content, err := s.images.Open(ctx, imageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, notFoundError("Image not found.")
		}
		return nil, nil, storeFailure("opening image", err)
	}
	if image.ContentType == "" {
		image.ContentType = "image/*"
	}
	return image, content, nil
}
