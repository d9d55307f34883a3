package dto

import (
	"cordfriend.app/server/common/id"
	"cordfriend.app/server/internal/model"
)

type ImageUploadResponse struct {
	Message  string `json:"message"`
	FileID   string `json:"fileId"`
	Filename string `json:"filename"`
}

func ToImageUploadResponse(img *model.Image) ImageUploadResponse {
	return ImageUploadResponse{
		Message:  "Image successfully uploaded and staged.",
		FileID:   id.Format(img.ID),
		Filename: img.Filename,
	}
}
