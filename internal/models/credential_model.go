package models

import "time"

const (
	PlatformTwitter  = "twitter"
	PlatformLinkedin = "linkedin"
)

func IsValidPlatform(p string) bool {
	switch p {
	case PlatformTwitter, PlatformLinkedin:
		return true
	default:
		return false
	}
}

// PlatformCredential holds one tenant's secret bundle for one platform.
// Twitter uses the OAuth 1.0a 4-tuple; LinkedIn only the bearer access token.
// Secret columns are AES-GCM encrypted at rest. One row per (user_id, platform).
type PlatformCredential struct {
	ID              int64      `db:"id" json:"id"`
	UserID          int64      `db:"user_id" json:"user_id"`
	Platform        string     `db:"platform" json:"platform"`
	ConsumerKey     string     `db:"consumer_key" json:"-"`
	ConsumerSecret  string     `db:"consumer_secret" json:"-"`
	AccessToken     string     `db:"access_token" json:"-"`
	AccessSecret    string     `db:"access_secret" json:"-"`
	IsValid         bool       `db:"is_valid" json:"is_valid"`
	AccountName     string     `db:"account_name" json:"account_name"`
	AccountID       string     `db:"account_id" json:"account_id"`
	LastValidatedAt *time.Time `db:"last_validated_at" json:"last_validated_at,omitempty"`
	ValidationError string     `db:"validation_error" json:"validation_error,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}
