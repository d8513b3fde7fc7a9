package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/events"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/transfer"
)

const processorConcurrency = 10

type ProcessorService interface {
	// ProcessDue claims every due scheduled post and publishes it. Only an
	// infrastructure failure (store unreachable) returns an error; per-post
	// and per-platform failures are folded into the summary.
	ProcessDue(ctx context.Context) (*transfer.ProcessSummary, error)

	// PublishByID handles a single queued post. A post that is no longer
	// claimable (already picked up by a tick) is a silent no-op.
	PublishByID(ctx context.Context, postID int64) error
}

type processorService struct {
	cfg        config.Config
	pr         repository.ScheduledPostRepository
	cr         repository.CredentialRepository
	pm         repository.PostMediaRepository
	ph         repository.PublishHistoryRepository
	publishers map[string]Publisher
	bus        *events.Bus
}

func NewProcessorService(
	cfg config.Config,
	pr repository.ScheduledPostRepository,
	cr repository.CredentialRepository,
	pm repository.PostMediaRepository,
	ph repository.PublishHistoryRepository,
	publishers map[string]Publisher,
	bus *events.Bus) ProcessorService {
	return &processorService{
		cfg:        cfg,
		pr:         pr,
		cr:         cr,
		pm:         pm,
		ph:         ph,
		publishers: publishers,
		bus:        bus,
	}
}

func (s *processorService) ProcessDue(ctx context.Context) (*transfer.ProcessSummary, error) {
	posts, err := s.pr.ClaimDue(ctx, time.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to claim due posts: %w", err)
	}

	summary := &transfer.ProcessSummary{Processed: len(posts)}
	if len(posts) == 0 {
		return summary, nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	semaphore := make(chan struct{}, processorConcurrency)

	for _, post := range posts {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(post *models.ScheduledPost) {
			defer wg.Done()
			defer func() { <-semaphore }()

			result := s.publishPost(ctx, post)

			mu.Lock()
			summary.Results = append(summary.Results, result)
			mu.Unlock()
		}(post)
	}

	wg.Wait()
	return summary, nil
}

func (s *processorService) PublishByID(ctx context.Context, postID int64) error {
	post, err := s.pr.ClaimByID(ctx, postID)
	if err != nil {
		return fmt.Errorf("failed to claim post %d: %w", postID, err)
	}
	if post == nil {
		slog.Info("post not claimable, skipping", "post_id", postID)
		return nil
	}

	s.publishPost(ctx, post)
	return nil
}

// publishPost fans out to every requested platform, aggregates the outcomes
// and writes the terminal status back. A failure on one platform never stops
// the attempt on the others.
func (s *processorService) publishPost(ctx context.Context, post *models.ScheduledPost) transfer.PostResult {
	mediaURLs, err := s.pm.ListURLsByPostID(ctx, post.ID)
	if err != nil {
		slog.Info("failed to load media, publishing without it", "post_id", post.ID, "error", err.Error())
		mediaURLs = nil
	}

	results := make(models.PublishResults, len(post.Platforms))
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, platform := range post.Platforms {
		wg.Add(1)

		go func(platform string) {
			defer wg.Done()

			outcome := s.publishToPlatform(ctx, post, platform, mediaURLs)

			mu.Lock()
			results[platform] = outcome
			mu.Unlock()

			history := &models.PublishHistory{
				UserID:         post.UserID,
				PostID:         post.ID,
				Platform:       platform,
				Success:        outcome.Success,
				ExternalPostID: outcome.PostID,
				ErrorMessage:   outcome.Error,
			}
			if _, err := s.ph.Create(ctx, history); err != nil {
				slog.Info("failed to record publish history", "post_id", post.ID, "error", err.Error())
			}
		}(platform)
	}

	wg.Wait()

	allSuccess := true
	errorMessage := ""
	for _, platform := range post.Platforms {
		outcome := results[platform]
		if !outcome.Success {
			allSuccess = false
			if errorMessage == "" {
				errorMessage = fmt.Sprintf("%s: %s", platform, outcome.Error)
			}
		}
	}

	status := models.PostStatusFailed
	var publishedAt *time.Time
	if allSuccess {
		status = models.PostStatusPublished
		now := time.Now()
		publishedAt = &now
	}

	if err := s.pr.Finish(ctx, post.ID, status, publishedAt, results, errorMessage); err != nil {
		slog.Error("failed to persist publish outcome", "post_id", post.ID, "error", err.Error())
	}

	if allSuccess && s.bus != nil {
		s.bus.Publish(ctx, events.PostPublished{
			PostID:      post.ID,
			UserID:      post.UserID,
			PublishedAt: *publishedAt,
		})
	}

	return transfer.PostResult{PostID: post.ID, Results: results}
}

func (s *processorService) publishToPlatform(ctx context.Context, post *models.ScheduledPost, platform string, mediaURLs []string) models.PublishOutcome {
	publisher, ok := s.publishers[platform]
	if !ok {
		return models.PublishOutcome{Error: fmt.Sprintf("unsupported platform: %s", platform)}
	}

	cred, err := s.cr.GetByUserPlatform(ctx, post.UserID, platform)
	if err != nil {
		return models.PublishOutcome{Error: fmt.Sprintf("failed to load credential: %v", err)}
	}
	if cred == nil {
		return models.PublishOutcome{Error: fmt.Sprintf("no %s account connected", platform)}
	}

	input, err := DecryptStoredCredential(cred, s.cfg.SecretKey)
	if err != nil {
		return models.PublishOutcome{Error: fmt.Sprintf("failed to decrypt credential: %v", err)}
	}

	return publisher.Publish(ctx, post.Content, mediaURLs, input, cred.AccountID)
}
