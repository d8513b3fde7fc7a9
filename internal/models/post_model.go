package models

import "time"

type ScheduledPost struct {
	ID             int64          `db:"id" json:"id"`
	UserID         int64          `db:"user_id" json:"user_id"`
	Content        string         `db:"content" json:"content"`
	Platforms      []string       `db:"platforms" json:"platforms"`
	ScheduledAt    time.Time      `db:"scheduled_at" json:"scheduled_at"`
	Status         string         `db:"status" json:"status"` // scheduled, publishing, published, failed
	PublishedAt    *time.Time     `db:"published_at" json:"published_at,omitempty"`
	PublishResults PublishResults `db:"publish_results" json:"publish_results,omitempty"`
	ErrorMessage   string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount     int            `db:"retry_count" json:"retry_count"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}

// PublishOutcome is the per-platform result embedded in publish_results.
type PublishOutcome struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type PublishResults map[string]PublishOutcome

type MediaAsset struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	FileName  string    `db:"file_name" json:"file_name"`
	FileType  string    `db:"file_type" json:"file_type"`
	FileSize  int64     `db:"file_size" json:"file_size"`
	FileURL   string    `db:"file_url" json:"file_url"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type PostMedia struct {
	PostID       int64     `db:"post_id"`
	AssetID      int64     `db:"asset_id"`
	DisplayOrder int       `db:"display_order"`
	CreatedAt    time.Time `db:"created_at"`
}

const (
	PostStatusScheduled  = "scheduled"
	PostStatusPublishing = "publishing"
	PostStatusPublished  = "published"
	PostStatusFailed     = "failed"
)

// MaxPostMedia caps the ordered media sequence attached to one post.
const MaxPostMedia = 9
