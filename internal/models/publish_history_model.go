package models

import "time"

// PublishHistory is the append-only log of per-platform publish attempts.
type PublishHistory struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	PostID         int64     `db:"post_id" json:"post_id"`
	Platform       string    `db:"platform" json:"platform"`
	Success        bool      `db:"success" json:"success"`
	ExternalPostID string    `db:"external_post_id" json:"external_post_id"`
	ErrorMessage   string    `db:"error_message" json:"error_message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
