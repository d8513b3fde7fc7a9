package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/postdeckhq/postdeck/internal/models"
)

type PublishHistoryRepository interface {
	Create(ctx context.Context, history *models.PublishHistory) (int64, error)
	ListByPostID(ctx context.Context, postID int64) ([]*models.PublishHistory, error)
}

type publishHistoryRepository struct {
	db *sql.DB
}

func NewPublishHistoryRepository(db *sql.DB) PublishHistoryRepository {
	return &publishHistoryRepository{db: db}
}

func (r *publishHistoryRepository) Create(ctx context.Context, history *models.PublishHistory) (int64, error) {
	query := `
		INSERT INTO publish_history (user_id, post_id, platform, success, external_post_id, error_message)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query, history.UserID, history.PostID, history.Platform,
		history.Success, history.ExternalPostID, history.ErrorMessage).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func (r *publishHistoryRepository) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishHistory, error) {
	query := `SELECT id, user_id, post_id, platform, success, external_post_id, error_message, created_at
		FROM publish_history WHERE post_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, postID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var entries []*models.PublishHistory
	for rows.Next() {
		var h models.PublishHistory
		err := rows.Scan(&h.ID, &h.UserID, &h.PostID, &h.Platform, &h.Success,
			&h.ExternalPostID, &h.ErrorMessage, &h.CreatedAt)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		entries = append(entries, &h)
	}
	return entries, rows.Err()
}
