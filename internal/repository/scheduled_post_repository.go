package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/postdeckhq/postdeck/internal/models"
)

type ScheduledPostRepository interface {
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error)
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	GetByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	CheckByUserID(ctx context.Context, postID, userID int64) (bool, error)
	ClaimDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error)
	ClaimByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	Finish(ctx context.Context, postID int64, status string, publishedAt *time.Time, results models.PublishResults, errorMessage string) error
	ResetForRetry(ctx context.Context, userID, postID int64) error
	Remove(ctx context.Context, id int64) error
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const scheduledPostColumns = `id, user_id, content, platforms, scheduled_at, status, published_at, publish_results, error_message, retry_count, created_at, updated_at`

func (r *scheduledPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO scheduled_posts (user_id, content, platforms, scheduled_at, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	var id int64
	var err error

	if tx != nil {
		err = tx.QueryRowContext(ctx, query, post.UserID, post.Content, pq.Array(post.Platforms), post.ScheduledAt, models.PostStatusScheduled).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, post.UserID, post.Content, pq.Array(post.Platforms), post.ScheduledAt, models.PostStatusScheduled).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func scanScheduledPost(row interface{ Scan(...any) error }) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	var platforms pq.StringArray
	var publishedAt sql.NullTime
	var results []byte
	var errorMessage sql.NullString

	err := row.Scan(&post.ID, &post.UserID, &post.Content, &platforms, &post.ScheduledAt,
		&post.Status, &publishedAt, &results, &errorMessage, &post.RetryCount,
		&post.CreatedAt, &post.UpdatedAt)
	if err != nil {
		return nil, err
	}

	post.Platforms = platforms
	if publishedAt.Valid {
		post.PublishedAt = &publishedAt.Time
	}
	if errorMessage.Valid {
		post.ErrorMessage = errorMessage.String
	}
	if len(results) > 0 {
		if err := json.Unmarshal(results, &post.PublishResults); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
	}

	return &post, nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE id = $1`
	post, err := scanScheduledPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *scheduledPostRepository) GetByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE user_id = $1 ORDER BY scheduled_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

func (r *scheduledPostRepository) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	query := "SELECT 1 FROM scheduled_posts WHERE id = $1 AND user_id = $2"

	var result int
	err := r.db.QueryRowContext(ctx, query, postID, userID).Scan(&result)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		slog.Info(err.Error())
		return false, err
	}

	return result == 1, nil
}

// ClaimDue atomically flips every due scheduled post to publishing and returns
// the claimed rows. The conditional update is the selection step, so two
// overlapping ticks can never claim the same post twice.
func (r *scheduledPostRepository) ClaimDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, updated_at = $2
		WHERE status = $3 AND scheduled_at <= $2
		RETURNING ` + scheduledPostColumns

	rows, err := r.db.QueryContext(ctx, query, models.PostStatusPublishing, now, models.PostStatusScheduled)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	return posts, rows.Err()
}

// ClaimByID claims a single scheduled post. Returns nil when the post is
// missing or already past the scheduled state, which makes redelivered queue
// tasks a no-op.
func (r *scheduledPostRepository) ClaimByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `
		UPDATE scheduled_posts
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING ` + scheduledPostColumns

	post, err := scanScheduledPost(r.db.QueryRowContext(ctx, query, models.PostStatusPublishing, time.Now(), id, models.PostStatusScheduled))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *scheduledPostRepository) Finish(ctx context.Context, postID int64, status string, publishedAt *time.Time, results models.PublishResults, errorMessage string) error {
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	query := `
		UPDATE scheduled_posts
		SET status = $2,
			published_at = COALESCE($3, published_at),
			publish_results = $4,
			error_message = NULLIF($5, ''),
			retry_count = retry_count + CASE WHEN $2 = 'failed' THEN 1 ELSE 0 END,
			updated_at = $6
		WHERE id = $1
	`
	_, err = r.db.ExecContext(ctx, query, postID, status, publishedAt, resultsJSON, errorMessage, time.Now())
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}

// ResetForRetry is the manual failed -> scheduled transition. It touches
// nothing else: retry_count keeps its value and results stay visible until
// the next attempt overwrites them.
func (r *scheduledPostRepository) ResetForRetry(ctx context.Context, userID, postID int64) error {
	query := `
		UPDATE scheduled_posts
		SET status = $1, error_message = NULL, updated_at = $2
		WHERE id = $3 AND user_id = $4 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, models.PostStatusScheduled, time.Now(), postID, userID, models.PostStatusFailed)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	if affected != 1 {
		slog.Info("no rows affected; post is not in failed state")
		return errors.New("post is not in failed state")
	}
	return nil
}

func (r *scheduledPostRepository) Remove(ctx context.Context, id int64) error {
	query := `DELETE FROM scheduled_posts WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
