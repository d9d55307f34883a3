package dto

import (
	"cordfriend.app/server/internal/model"
)

// Emptiness is checked by the account service so callers get its messages.
type CredentialsRequest struct {
	Email    string `json:"email" binding:"omitempty,max=254"`
	Password string `json:"password" binding:"omitempty,max=72"`
}

type SignupRequest struct {
	Email    string `json:"email" binding:"omitempty,email,max=254"`
	Password string `json:"password" binding:"omitempty,max=72"`
}

type EditAccountRequest struct {
	Email       string `json:"email" binding:"required,email,max=254"`
	OldPassword string `json:"old_password" binding:"omitempty,max=72"`
	NewPassword string `json:"new_password" binding:"omitempty,max=72"`
}

type AccountResponse struct {
	ID    int64  `json:"id,string"`
	Email string `json:"email"`
}

type GetAccountResponse struct {
	Message string          `json:"message"`
	User    AccountResponse `json:"user"`
}

func ToAccountResponse(a *model.Account) AccountResponse {
	return AccountResponse{ID: a.ID, Email: a.Email}
}
