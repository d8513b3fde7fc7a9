package transfer

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/postdeckhq/postdeck/internal/models"
)

type CustomClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// CredentialInput is a decrypted secret bundle ready for provider calls.
// Twitter fills all four fields; LinkedIn only AccessToken.
type CredentialInput struct {
	ConsumerKey    string `json:"consumer_key"`
	ConsumerSecret string `json:"consumer_secret"`
	AccessToken    string `json:"access_token"`
	AccessSecret   string `json:"access_secret"`
}

type CredentialValidationRequest struct {
	Platform    string          `json:"platform"`
	Credentials CredentialInput `json:"credentials"`
}

// CredentialValidation is the outcome of a "who am I" round trip. Provider
// rejections land here as data; only transport failures surface as errors.
type CredentialValidation struct {
	IsValid     bool   `json:"is_valid"`
	AccountName string `json:"account_name,omitempty"`
	AccountID   string `json:"account_id,omitempty"`
	Error       string `json:"error,omitempty"`
}

type PostCreation struct {
	Content       string   `json:"content"`
	Platforms     []string `json:"platforms"`
	AssetIDs      []int64  `json:"asset_ids"`
	ScheduledTime string   `json:"scheduled_time"`
}

type PostResult struct {
	PostID  int64                            `json:"post_id"`
	Results map[string]models.PublishOutcome `json:"results"`
}

type ProcessSummary struct {
	Processed int          `json:"processed"`
	Results   []PostResult `json:"results"`
}
