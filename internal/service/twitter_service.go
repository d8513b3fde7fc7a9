package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/transfer"
	"github.com/postdeckhq/postdeck/pkg/oauth1"
)

type twitterService struct {
	cfg    config.Config
	client *http.Client
}

func NewTwitterService(cfg config.Config) Publisher {
	return &twitterService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

func (s *twitterService) Platform() string {
	return models.PlatformTwitter
}

func (s *twitterService) signer(creds *transfer.CredentialInput) *oauth1.Signer {
	return oauth1.NewSigner(oauth1.Credentials{
		ConsumerKey:    creds.ConsumerKey,
		ConsumerSecret: creds.ConsumerSecret,
		Token:          creds.AccessToken,
		TokenSecret:    creds.AccessSecret,
	})
}

func (s *twitterService) Validate(ctx context.Context, creds *transfer.CredentialInput) (*transfer.CredentialValidation, error) {
	url := s.cfg.TwitterBaseURL + "/2/users/me"

	header, err := s.signer(creds).AuthorizationHeader(http.MethodGet, url)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	req.Header.Set("Authorization", header)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var user transfer.TwitterUserResponse
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			slog.Info(err.Error())
			return nil, fmt.Errorf("failed to decode user response: %w", err)
		}
		return &transfer.CredentialValidation{
			IsValid:     true,
			AccountName: user.Data.Username,
			AccountID:   user.Data.ID,
		}, nil

	case resp.StatusCode == http.StatusUnauthorized:
		return &transfer.CredentialValidation{
			IsValid: false,
			Error:   "Twitter rejected the keys. Check that the app has read and write permissions and OAuth 1.0a enabled, then regenerate the access token.",
		}, nil

	case resp.StatusCode == http.StatusForbidden:
		return &transfer.CredentialValidation{
			IsValid: false,
			Error:   "Twitter denied access. The app's permission level does not allow posting on behalf of this account.",
		}, nil

	default:
		body, _ := io.ReadAll(resp.Body)
		return &transfer.CredentialValidation{
			IsValid: false,
			Error:   fmt.Sprintf("Twitter returned status %d: %s", resp.StatusCode, body),
		}, nil
	}
}

// Publish sends a text-only tweet.
// TODO: attach media via the v1.1 chunked media/upload endpoint before
// referencing media ids here.
func (s *twitterService) Publish(ctx context.Context, content string, mediaURLs []string, creds *transfer.CredentialInput, accountID string) models.PublishOutcome {
	url := s.cfg.TwitterBaseURL + "/2/tweets"

	header, err := s.signer(creds).AuthorizationHeader(http.MethodPost, url)
	if err != nil {
		slog.Info(err.Error())
		return models.PublishOutcome{Error: err.Error()}
	}

	payload, err := json.Marshal(transfer.TwitterTweetRequest{Text: content})
	if err != nil {
		slog.Info(err.Error())
		return models.PublishOutcome{Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		slog.Info(err.Error())
		return models.PublishOutcome{Error: err.Error()}
	}
	req.Header.Set("Authorization", header)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return models.PublishOutcome{Error: fmt.Sprintf("%v: %v", ErrConnection, err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		var twitterErr transfer.TwitterErrorResponse
		if err := json.Unmarshal(body, &twitterErr); err == nil && twitterErr.Message() != "" {
			return models.PublishOutcome{Error: twitterErr.Message()}
		}
		return models.PublishOutcome{Error: fmt.Sprintf("Twitter returned status %d: %s", resp.StatusCode, body)}
	}

	var tweet transfer.TwitterTweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&tweet); err != nil {
		slog.Info(err.Error())
		return models.PublishOutcome{Error: fmt.Sprintf("failed to decode tweet response: %v", err)}
	}

	return models.PublishOutcome{Success: true, PostID: tweet.Data.ID}
}
