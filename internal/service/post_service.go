package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/transfer"
)

type PostService interface {
	CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, time.Duration, error)
	List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error)
	PostInfo(ctx context.Context, postID, userID int64) (*models.ScheduledPost, error)
	Retry(ctx context.Context, userID, postID int64) error
	Remove(ctx context.Context, userID, postID int64) error
}

type postService struct {
	db *sql.DB
	pr repository.ScheduledPostRepository
	ma repository.MediaAssetRepository
	pm repository.PostMediaRepository
}

func NewPostService(
	db *sql.DB,
	pr repository.ScheduledPostRepository,
	ma repository.MediaAssetRepository,
	pm repository.PostMediaRepository) PostService {
	return &postService{
		db: db,
		pr: pr,
		ma: ma,
		pm: pm,
	}
}

func (s *postService) CreatePost(ctx context.Context, userID int64, pc *transfer.PostCreation) (int64, time.Duration, error) {
	if pc == nil {
		err := errors.New("post creation data is nil")
		slog.Error(err.Error())
		return 0, 0, err
	}
	if pc.Content == "" {
		err := errors.New("content cannot be empty")
		slog.Info(err.Error())
		return 0, 0, err
	}
	if len(pc.Platforms) == 0 {
		err := errors.New("no platforms selected")
		slog.Info(err.Error())
		return 0, 0, err
	}
	for _, platform := range pc.Platforms {
		if !models.IsValidPlatform(platform) {
			err := fmt.Errorf("platform %s is not supported", platform)
			slog.Info(err.Error())
			return 0, 0, err
		}
	}
	if len(pc.AssetIDs) > models.MaxPostMedia {
		err := fmt.Errorf("a post can carry at most %d media items", models.MaxPostMedia)
		slog.Info(err.Error())
		return 0, 0, err
	}

	scheduledAt, err := time.Parse("2006-01-02T15:04", pc.ScheduledTime)
	if err != nil {
		err = fmt.Errorf("invalid scheduled time format: %w", err)
		slog.Error(err.Error())
		return 0, 0, err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, 0, fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		}
	}()

	post := models.ScheduledPost{
		UserID:      userID,
		Content:     pc.Content,
		Platforms:   pc.Platforms,
		ScheduledAt: scheduledAt,
	}

	postID, err := s.pr.Create(ctx, tx, &post)
	if err != nil {
		return 0, 0, fmt.Errorf("error creating post: %w", err)
	}

	if err = s.attachMedia(ctx, tx, userID, postID, pc.AssetIDs); err != nil {
		return 0, 0, fmt.Errorf("error attaching media: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	delay := time.Until(scheduledAt)
	if delay < 0 {
		delay = 0
	}

	return postID, delay, nil
}

func (s *postService) attachMedia(ctx context.Context, tx *sql.Tx, userID, postID int64, assetIDs []int64) error {
	for i, assetID := range assetIDs {
		exists, err := s.ma.CheckByUserID(ctx, assetID, userID)
		if err != nil {
			return fmt.Errorf("error checking media asset %d: %w", assetID, err)
		}
		if !exists {
			return fmt.Errorf("media asset %d does not exist", assetID)
		}

		postMedia := models.PostMedia{
			PostID:       postID,
			AssetID:      assetID,
			DisplayOrder: i,
		}
		if err := s.pm.Create(ctx, tx, &postMedia); err != nil {
			return fmt.Errorf("error saving media link %d: %w", assetID, err)
		}
	}
	return nil
}

func (s *postService) PostInfo(ctx context.Context, postID, userID int64) (*models.ScheduledPost, error) {
	var err error

	if userID == 0 {
		err = errors.New("user is not valid")
		slog.Info(err.Error())
		return nil, err
	}
	if postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return nil, err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return nil, err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return nil, err
	}

	post, err := s.pr.GetByID(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("error getting post info")
	}

	return post, nil
}

func (s *postService) List(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	posts, err := s.pr.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing posts")
	}
	return posts, nil
}

// Retry re-queues a failed post. The conditional update inside the repository
// refuses anything that is not in the failed state.
func (s *postService) Retry(ctx context.Context, userID, postID int64) error {
	if userID == 0 || postID == 0 {
		err := errors.New("post id is not valid")
		slog.Info(err.Error())
		return err
	}

	return s.pr.ResetForRetry(ctx, userID, postID)
}

func (s *postService) Remove(ctx context.Context, userID, postID int64) error {
	var err error

	if userID == 0 || postID == 0 {
		err = errors.New("post id is not valid")
		slog.Info(err.Error())
		return err
	}

	isValid, err := s.pr.CheckByUserID(ctx, postID, userID)
	if err != nil {
		return err
	}
	if !isValid {
		err = errors.New("post doesn't exist")
		slog.Info(err.Error())
		return err
	}

	err = s.pr.Remove(ctx, postID)
	if err != nil {
		return fmt.Errorf("error removing post")
	}

	return nil
}
