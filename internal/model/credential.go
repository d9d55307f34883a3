package model

import "time"

// CredentialLink maps an external identity provider subject to an account.
type CredentialLink struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Provider  string    `json:"provider"`
	Subject   string    `json:"subject"`
	CreatedAt time.Time `json:"created_at"`
}
