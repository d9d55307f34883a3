package model

import "time"

type Image struct {
	ID          int64     `json:"id"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"content_type"`
	Length      int64     `json:"length"`
	UploadedAt  time.Time `json:"uploaded_at"`
}
