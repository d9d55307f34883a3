package model

import (
	"time"

	"cordfriend.app/server/internal/secret"
)

type Bot struct {
	ID             int64            `json:"id"`
	Name           string           `json:"name"`
	Persona        string           `json:"persona"`
	ServerID       string           `json:"server_id"`
	OwnerID        int64            `json:"user_id"`
	GoogleAIKey    secret.Encrypted `json:"google_ai_api"`
	OpenWeatherKey secret.Encrypted `json:"openweathermap_api"`
	ImageID        int64            `json:"image_id"`
	ImageFilename  string           `json:"image_filename"`
	Conversations  []Conversation   `json:"conversations"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// Conversation is one exchange recorded by the bot runtime. The API only reads them.
type Conversation struct {
	User ConversationUser `json:"user"`
	Bot  string           `json:"bot"`
}

type ConversationUser struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}
