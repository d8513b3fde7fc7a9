package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/transfer"
	"github.com/postdeckhq/postdeck/pkg/utils"
)

const testSecretKey = "0123456789abcdef0123456789abcdef"

type stubPostRepo struct {
	mu       sync.Mutex
	due      []*models.ScheduledPost
	byID     map[int64]*models.ScheduledPost
	finished []finishCall
}

type finishCall struct {
	postID       int64
	status       string
	publishedAt  *time.Time
	results      models.PublishResults
	errorMessage string
}

func (r *stubPostRepo) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	return 0, nil
}

func (r *stubPostRepo) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	return r.byID[id], nil
}

func (r *stubPostRepo) GetByUserID(ctx context.Context, userID int64) ([]*models.ScheduledPost, error) {
	return nil, nil
}

func (r *stubPostRepo) CheckByUserID(ctx context.Context, postID, userID int64) (bool, error) {
	return true, nil
}

func (r *stubPostRepo) ClaimDue(ctx context.Context, now time.Time) ([]*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	claimed := r.due
	r.due = nil
	for _, post := range claimed {
		post.Status = models.PostStatusPublishing
	}
	return claimed, nil
}

func (r *stubPostRepo) ClaimByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	post, ok := r.byID[id]
	if !ok || post.Status != models.PostStatusScheduled {
		return nil, nil
	}
	post.Status = models.PostStatusPublishing
	return post, nil
}

func (r *stubPostRepo) Finish(ctx context.Context, postID int64, status string, publishedAt *time.Time, results models.PublishResults, errorMessage string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.finished = append(r.finished, finishCall{postID, status, publishedAt, results, errorMessage})
	if post, ok := r.byID[postID]; ok {
		post.Status = status
	}
	return nil
}

func (r *stubPostRepo) ResetForRetry(ctx context.Context, userID, postID int64) error { return nil }
func (r *stubPostRepo) Remove(ctx context.Context, id int64) error                   { return nil }

type stubCredRepo struct {
	creds map[string]*models.PlatformCredential
}

func (r *stubCredRepo) Upsert(ctx context.Context, cred *models.PlatformCredential) (int64, error) {
	return 1, nil
}

func (r *stubCredRepo) GetByUserPlatform(ctx context.Context, userID int64, platform string) (*models.PlatformCredential, error) {
	return r.creds[platform], nil
}

func (r *stubCredRepo) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformCredential, error) {
	return nil, nil
}

func (r *stubCredRepo) ListValidatedBefore(ctx context.Context, cutoff time.Time) ([]*models.PlatformCredential, error) {
	return nil, nil
}

func (r *stubCredRepo) Remove(ctx context.Context, userID int64, platform string) error { return nil }

type stubMediaRepo struct {
	urls []string
}

func (r *stubMediaRepo) Create(ctx context.Context, tx *sql.Tx, postMedia *models.PostMedia) error {
	return nil
}

func (r *stubMediaRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PostMedia, error) {
	return nil, nil
}

func (r *stubMediaRepo) ListURLsByPostID(ctx context.Context, postID int64) ([]string, error) {
	return r.urls, nil
}

type stubHistoryRepo struct {
	mu      sync.Mutex
	entries []*models.PublishHistory
}

func (r *stubHistoryRepo) Create(ctx context.Context, history *models.PublishHistory) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, history)
	return int64(len(r.entries)), nil
}

func (r *stubHistoryRepo) ListByPostID(ctx context.Context, postID int64) ([]*models.PublishHistory, error) {
	return nil, nil
}

type stubPublisher struct {
	platform string
	outcome  models.PublishOutcome
}

func (p *stubPublisher) Platform() string { return p.platform }

func (p *stubPublisher) Validate(ctx context.Context, creds *transfer.CredentialInput) (*transfer.CredentialValidation, error) {
	return &transfer.CredentialValidation{IsValid: true}, nil
}

func (p *stubPublisher) Publish(ctx context.Context, content string, mediaURLs []string, creds *transfer.CredentialInput, accountID string) models.PublishOutcome {
	return p.outcome
}

func encryptedCredential(t *testing.T, platform string) *models.PlatformCredential {
	t.Helper()

	token, err := utils.Encrypt([]byte("secret-token"), []byte(testSecretKey))
	require.NoError(t, err)

	return &models.PlatformCredential{
		UserID:      1,
		Platform:    platform,
		AccessToken: token,
		IsValid:     true,
		AccountID:   "acct",
	}
}

func newTestProcessor(pr *stubPostRepo, cr *stubCredRepo, publishers ...Publisher) ProcessorService {
	cfg := config.Config{SecretKey: testSecretKey}
	return NewProcessorService(cfg, pr, cr, &stubMediaRepo{}, &stubHistoryRepo{}, NewPublisherRegistry(publishers...), nil)
}

func duePost(id int64, platforms ...string) *models.ScheduledPost {
	return &models.ScheduledPost{
		ID:          id,
		UserID:      1,
		Content:     "hello",
		Platforms:   platforms,
		ScheduledAt: time.Now().Add(-time.Minute),
		Status:      models.PostStatusScheduled,
	}
}

func TestProcessDueAllPlatformsSucceed(t *testing.T) {
	pr := &stubPostRepo{due: []*models.ScheduledPost{duePost(1, models.PlatformTwitter)}}
	cr := &stubCredRepo{creds: map[string]*models.PlatformCredential{
		models.PlatformTwitter: encryptedCredential(t, models.PlatformTwitter),
	}}

	proc := newTestProcessor(pr, cr,
		&stubPublisher{platform: models.PlatformTwitter, outcome: models.PublishOutcome{Success: true, PostID: "123"}},
	)

	summary, err := proc.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Processed)
	require.Len(t, summary.Results, 1)
	assert.Equal(t, "123", summary.Results[0].Results[models.PlatformTwitter].PostID)

	require.Len(t, pr.finished, 1)
	assert.Equal(t, models.PostStatusPublished, pr.finished[0].status)
	require.NotNil(t, pr.finished[0].publishedAt)
	assert.Empty(t, pr.finished[0].errorMessage)
}

func TestProcessDuePartialFailureFailsPost(t *testing.T) {
	pr := &stubPostRepo{due: []*models.ScheduledPost{duePost(1, models.PlatformTwitter, models.PlatformLinkedin)}}
	cr := &stubCredRepo{creds: map[string]*models.PlatformCredential{
		models.PlatformTwitter:  encryptedCredential(t, models.PlatformTwitter),
		models.PlatformLinkedin: encryptedCredential(t, models.PlatformLinkedin),
	}}

	proc := newTestProcessor(pr, cr,
		&stubPublisher{platform: models.PlatformTwitter, outcome: models.PublishOutcome{Error: "duplicate content"}},
		&stubPublisher{platform: models.PlatformLinkedin, outcome: models.PublishOutcome{Success: true, PostID: "urn:li:share:1"}},
	)

	summary, err := proc.ProcessDue(context.Background())
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	// One platform failing must not stop the other.
	results := summary.Results[0].Results
	assert.False(t, results[models.PlatformTwitter].Success)
	assert.True(t, results[models.PlatformLinkedin].Success)

	require.Len(t, pr.finished, 1)
	assert.Equal(t, models.PostStatusFailed, pr.finished[0].status)
	assert.Nil(t, pr.finished[0].publishedAt)
	assert.Equal(t, "twitter: duplicate content", pr.finished[0].errorMessage)
}

func TestProcessDueMissingCredential(t *testing.T) {
	pr := &stubPostRepo{due: []*models.ScheduledPost{duePost(1, models.PlatformLinkedin)}}
	cr := &stubCredRepo{creds: map[string]*models.PlatformCredential{}}

	proc := newTestProcessor(pr, cr,
		&stubPublisher{platform: models.PlatformLinkedin, outcome: models.PublishOutcome{Success: true}},
	)

	summary, err := proc.ProcessDue(context.Background())
	require.NoError(t, err)

	outcome := summary.Results[0].Results[models.PlatformLinkedin]
	assert.False(t, outcome.Success)
	assert.Contains(t, outcome.Error, "no linkedin account connected")

	require.Len(t, pr.finished, 1)
	assert.Equal(t, models.PostStatusFailed, pr.finished[0].status)
}

func TestProcessDueNothingDue(t *testing.T) {
	pr := &stubPostRepo{}
	cr := &stubCredRepo{}

	proc := newTestProcessor(pr, cr)

	summary, err := proc.ProcessDue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Processed)
	assert.Empty(t, summary.Results)
	assert.Empty(t, pr.finished)
}

func TestPublishByIDNotClaimableIsNoOp(t *testing.T) {
	post := duePost(7, models.PlatformTwitter)
	post.Status = models.PostStatusPublished

	pr := &stubPostRepo{byID: map[int64]*models.ScheduledPost{7: post}}
	cr := &stubCredRepo{}

	proc := newTestProcessor(pr, cr)

	require.NoError(t, proc.PublishByID(context.Background(), 7))
	assert.Empty(t, pr.finished)
}

func TestPublishByIDClaimsAndPublishes(t *testing.T) {
	post := duePost(8, models.PlatformTwitter)

	pr := &stubPostRepo{byID: map[int64]*models.ScheduledPost{8: post}}
	cr := &stubCredRepo{creds: map[string]*models.PlatformCredential{
		models.PlatformTwitter: encryptedCredential(t, models.PlatformTwitter),
	}}

	proc := newTestProcessor(pr, cr,
		&stubPublisher{platform: models.PlatformTwitter, outcome: models.PublishOutcome{Success: true, PostID: "123"}},
	)

	require.NoError(t, proc.PublishByID(context.Background(), 8))
	require.Len(t, pr.finished, 1)
	assert.Equal(t, models.PostStatusPublished, pr.finished[0].status)
	assert.Equal(t, models.PostStatusPublished, post.Status)

	// A second delivery of the same task finds the post already terminal.
	require.NoError(t, proc.PublishByID(context.Background(), 8))
	assert.Len(t, pr.finished, 1)
}
