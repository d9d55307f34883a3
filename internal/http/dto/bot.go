package dto

import (
	"cordfriend.app/server/common/id"
	"cordfriend.app/server/internal/model"
	"cordfriend.app/server/internal/service"
)

// BotRequest is the body of bot create and edit. Clients also send _id,
// user_id and old_image_id; those are ignored in favour of the session and
// the stored record.
type BotRequest struct {
	Name           string `json:"name" binding:"max=100"`
	Persona        string `json:"persona" binding:"max=4000"`
	ServerID       string `json:"server_id" binding:"max=64"`
	GoogleAIKey    string `json:"google_ai_api" binding:"max=512"`
	OpenWeatherKey string `json:"openweathermap_api" binding:"max=512"`
	ImageID        string `json:"image_id"`
	ImageFilename  string `json:"image_filename" binding:"max=255"`
}

func (r BotRequest) ToInput() service.BotInput {
	return service.BotInput{
		Name:           r.Name,
		Persona:        r.Persona,
		ServerID:       r.ServerID,
		GoogleAIKey:    r.GoogleAIKey,
		OpenWeatherKey: r.OpenWeatherKey,
		ImageID:        r.ImageID,
		ImageFilename:  r.ImageFilename,
	}
}

type DeleteBotRequest struct {
	ID      string `json:"_id"`
	ImageID string `json:"image_id"`
}

type BotResponse struct {
	ID             string                 `json:"_id"`
	Name           string                 `json:"name"`
	Persona        string                 `json:"persona"`
	ServerID       string                 `json:"server_id"`
	UserID         string                 `json:"user_id"`
	GoogleAIKey    string                 `json:"google_ai_api"`
	OpenWeatherKey string                 `json:"openweathermap_api"`
	ImageID        string                 `json:"image_id"`
	ImageFilename  string                 `json:"image_filename"`
	Conversations  []ConversationResponse `json:"conversations"`
}

type ConversationResponse struct {
	User struct {
		Name    string `json:"name"`
		Message string `json:"message"`
	} `json:"user"`
	Bot string `json:"bot"`
}

func ToBotResponse(v *service.BotView) BotResponse {
	b := v.Bot
	resp := BotResponse{
		ID:             id.Format(b.ID),
		Name:           b.Name,
		Persona:        b.Persona,
		ServerID:       b.ServerID,
		UserID:         id.Format(b.OwnerID),
		GoogleAIKey:    v.GoogleAIKey,
		OpenWeatherKey: v.OpenWeatherKey,
		ImageFilename:  b.ImageFilename,
		Conversations:  toConversations(b.Conversations),
	}
	if b.ImageID != 0 {
		resp.ImageID = id.Format(b.ImageID)
	}
	return resp
}

func toConversations(in []model.Conversation) []ConversationResponse {
	out := make([]ConversationResponse, 0, len(in))
	for _, c := range in {
		var r ConversationResponse
		r.User.Name = c.User.Name
		r.User.Message = c.User.Message
		r.Bot = c.Bot
		out = append(out, r)
	}
	return out
}

type BotListResponse struct {
	Message string        `json:"message"`
	Bots    []BotResponse `json:"bots"`
}

func ToBotListResponse(list *service.BotList) BotListResponse {
	resp := BotListResponse{
		Message: "All bots were successfully fetched.",
		Bots:    make([]BotResponse, 0, len(list.Bots)),
	}
	if list.Missing > 0 {
		resp.Message = "Some bots were not fetched."
	}
	for i := range list.Bots {
		resp.Bots = append(resp.Bots, ToBotResponse(&list.Bots[i]))
	}
	return resp
}

type GetBotResponse struct {
	Bot BotResponse `json:"bot"`
}

type CreateBotResponse struct {
	Message string `json:"message"`
	BotID   string `json:"botId"`
}

type DeleteBotResponse struct {
	Message string `json:"message"`
	service.DeletionResult
}
