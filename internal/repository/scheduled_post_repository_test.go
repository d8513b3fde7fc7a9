package repository

import (
	"context"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/postdeckhq/postdeck/internal/models"
)

var postColumns = []string{
	"id", "user_id", "content", "platforms", "scheduled_at", "status",
	"published_at", "publish_results", "error_message", "retry_count",
	"created_at", "updated_at",
}

func postRow(id int64, status string) []driver.Value {
	now := time.Now()
	return []driver.Value{
		id, int64(1), "hello", "{twitter,linkedin}", now.Add(-time.Minute), status,
		nil, []byte(`{}`), nil, 0, now, now,
	}
}

func TestClaimDueFlipsStatusAndReturnsRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	rows := sqlmock.NewRows(postColumns).
		AddRow(postRow(1, models.PostStatusPublishing)...).
		AddRow(postRow(2, models.PostStatusPublishing)...)

	mock.ExpectQuery(`UPDATE scheduled_posts\s+SET status = \$1, updated_at = \$2\s+WHERE status = \$3 AND scheduled_at <= \$2\s+RETURNING`).
		WithArgs(models.PostStatusPublishing, now, models.PostStatusScheduled).
		WillReturnRows(rows)

	r := NewScheduledPostRepository(db)

	posts, err := r.ClaimDue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, int64(1), posts[0].ID)
	assert.Equal(t, []string{"twitter", "linkedin"}, posts[0].Platforms)
	assert.Equal(t, models.PostStatusPublishing, posts[0].Status)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClaimDueEmpty(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery(`UPDATE scheduled_posts`).
		WithArgs(models.PostStatusPublishing, now, models.PostStatusScheduled).
		WillReturnRows(sqlmock.NewRows(postColumns))

	r := NewScheduledPostRepository(db)

	posts, err := r.ClaimDue(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestClaimByIDNotClaimable(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`UPDATE scheduled_posts\s+SET status = \$1, updated_at = \$2\s+WHERE id = \$3 AND status = \$4\s+RETURNING`).
		WithArgs(models.PostStatusPublishing, sqlmock.AnyArg(), int64(9), models.PostStatusScheduled).
		WillReturnRows(sqlmock.NewRows(postColumns))

	r := NewScheduledPostRepository(db)

	post, err := r.ClaimByID(context.Background(), 9)
	require.NoError(t, err)
	assert.Nil(t, post)
}

func TestFinishPublishedIncludesPublishedAt(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	results := models.PublishResults{
		models.PlatformTwitter: {Success: true, PostID: "123"},
	}

	mock.ExpectExec(`UPDATE scheduled_posts\s+SET status = \$2`).
		WithArgs(int64(5), models.PostStatusPublished, now, sqlmock.AnyArg(), "", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewScheduledPostRepository(db)

	require.NoError(t, r.Finish(context.Background(), 5, models.PostStatusPublished, &now, results, ""))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFinishFailedKeepsPublishedAtNull(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE scheduled_posts\s+SET status = \$2`).
		WithArgs(int64(6), models.PostStatusFailed, nil, sqlmock.AnyArg(), "twitter: duplicate content", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewScheduledPostRepository(db)

	results := models.PublishResults{
		models.PlatformTwitter: {Error: "duplicate content"},
	}
	require.NoError(t, r.Finish(context.Background(), 6, models.PostStatusFailed, nil, results, "twitter: duplicate content"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetForRetryRequiresFailedState(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE scheduled_posts\s+SET status = \$1, error_message = NULL`).
		WithArgs(models.PostStatusScheduled, sqlmock.AnyArg(), int64(3), int64(1), models.PostStatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 0))

	r := NewScheduledPostRepository(db)

	err = r.ResetForRetry(context.Background(), 1, 3)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not in failed state")
}

func TestResetForRetrySucceeds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`UPDATE scheduled_posts\s+SET status = \$1, error_message = NULL`).
		WithArgs(models.PostStatusScheduled, sqlmock.AnyArg(), int64(3), int64(1), models.PostStatusFailed).
		WillReturnResult(sqlmock.NewResult(0, 1))

	r := NewScheduledPostRepository(db)

	require.NoError(t, r.ResetForRetry(context.Background(), 1, 3))
	assert.NoError(t, mock.ExpectationsWereMet())
}
