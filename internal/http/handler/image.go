package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"cordfriend.app/server/internal/http/dto"
	"cordfriend.app/server/internal/service"
	"github.com/gin-gonic/gin"
)

const (
	imageFormField = "bot-profile-picture"
	// multipart framing and the other form fields
	uploadOverhead = 64 << 10
)

type ImageHandler struct {
	imageService service.ImageService
}

func NewImageHandler(imageService service.ImageService) *ImageHandler {
	return &ImageHandler{imageService: imageService}
}

func (h *ImageHandler) Upload(c *gin.Context) {
	ctx := c.Request.Context()
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, service.MaxImageSize+uploadOverhead)

	header, err := c.FormFile(imageFormField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusBadRequest, dto.NewError("Images must be 5 MB or smaller.", nil))
			return
		}
		slog.WarnContext(ctx, "missing image upload", "error", err)
		c.JSON(http.StatusBadRequest, dto.NewError("Please upload an image.", nil))
		return
	}

	file, err := header.Open()
	if err != nil {
		respondError(c, "open uploaded image", err)
		return
	}
	defer file.Close()

	img, err := h.imageService.Upload(ctx, header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if err != nil {
		respondError(c, "upload image", err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToImageUploadResponse(img))
}

func (h *ImageHandler) Download(c *gin.Context) {
	ctx := c.Request.Context()

	img, content, err := h.imageService.Open(ctx, c.Param("id"))
	if err != nil {
		respondError(c, "download image", err)
		return
	}
	defer content.Close()

	c.Header("Content-Type", img.ContentType)
	c.Header("Cache-Control", "public, max-age=86400")
	if img.Length > 0 {
		c.Header("Content-Length", strconv.FormatInt(img.Length, 10))
	}
	c.Status(http.StatusOK)

	if _, err := io.Copy(c.Writer, content); err != nil {
		// headers are already sent
		slog.WarnContext(ctx, "image stream interrupted", "image_id", img.ID, "error", err)
	}
}
