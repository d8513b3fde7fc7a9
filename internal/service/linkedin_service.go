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
)

const (
	restliHeader        = "X-Restli-Protocol-Version"
	restliVersion       = "2.0.0"
	feedshareRecipe     = "urn:li:digitalmediaRecipe:feedshare-image"
	ugcIdentifier       = "urn:li:userGeneratedContent"
	visibilityPublic    = "PUBLIC"
	lifecyclePublished  = "PUBLISHED"
	mediaCategoryImage  = "IMAGE"
	mediaCategoryNone   = "NONE"
)

type linkedinService struct {
	cfg    config.Config
	client *http.Client
}

func NewLinkedinService(cfg config.Config) Publisher {
	return &linkedinService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.HTTPTimeout},
	}
}

func (s *linkedinService) Platform() string {
	return models.PlatformLinkedin
}

func (s *linkedinService) Validate(ctx context.Context, creds *transfer.CredentialInput) (*transfer.CredentialValidation, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.cfg.LinkedinBaseURL+"/v2/userinfo", nil)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &transfer.CredentialValidation{
			IsValid: false,
			Error:   "LinkedIn token is invalid or expired. Reconnect the account to obtain a fresh token.",
		}, nil
	}

	var user transfer.LinkedinUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("failed to decode userinfo response: %w", err)
	}

	return &transfer.CredentialValidation{
		IsValid:     true,
		AccountName: user.Name,
		AccountID:   user.Sub,
	}, nil
}

func (s *linkedinService) Publish(ctx context.Context, content string, mediaURLs []string, creds *transfer.CredentialInput, accountID string) models.PublishOutcome {
	if accountID == "" {
		validation, err := s.Validate(ctx, creds)
		if err != nil || !validation.IsValid {
			return models.PublishOutcome{Error: "unable to resolve LinkedIn member id for posting"}
		}
		accountID = validation.AccountID
	}
	author := "urn:li:person:" + accountID

	// Upload is best-effort per image: a failed asset is skipped and the post
	// degrades to text-only rather than failing.
	var assets []string
	for i, mediaURL := range mediaURLs {
		if i >= models.MaxPostMedia {
			break
		}
		asset := s.uploadImage(ctx, mediaURL, creds.AccessToken, author)
		if asset != "" {
			assets = append(assets, asset)
		}
	}

	share := transfer.LinkedinShareContent{
		ShareCommentary:    transfer.LinkedinText{Text: content},
		ShareMediaCategory: mediaCategoryNone,
	}
	if len(assets) > 0 {
		share.ShareMediaCategory = mediaCategoryImage
		for _, asset := range assets {
			share.Media = append(share.Media, transfer.LinkedinShareMedia{Status: "READY", Media: asset})
		}
	}

	payload, err := json.Marshal(transfer.LinkedinUGCPostRequest{
		Author:          author,
		LifecycleState:  lifecyclePublished,
		SpecificContent: transfer.LinkedinSpecificContent{ShareContent: share},
		Visibility:      transfer.LinkedinVisibility{MemberNetworkVisibility: visibilityPublic},
	})
	if err != nil {
		slog.Info(err.Error())
		return models.PublishOutcome{Error: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.LinkedinBaseURL+"/v2/ugcPosts", bytes.NewReader(payload))
	if err != nil {
		slog.Info(err.Error())
		return models.PublishOutcome{Error: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+creds.AccessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(restliHeader, restliVersion)

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return models.PublishOutcome{Error: fmt.Sprintf("%v: %v", ErrConnection, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var linkedinErr transfer.LinkedinErrorResponse
		if err := json.Unmarshal(body, &linkedinErr); err == nil && linkedinErr.Message != "" {
			return models.PublishOutcome{Error: linkedinErr.Message}
		}
		return models.PublishOutcome{Error: fmt.Sprintf("LinkedIn returned status %d: %s", resp.StatusCode, body)}
	}

	// The created post id arrives in the x-restli-id header, with the JSON
	// body id as fallback.
	postID := resp.Header.Get("x-restli-id")
	if postID == "" {
		var created transfer.LinkedinUGCPostResponse
		if err := json.Unmarshal(body, &created); err == nil {
			postID = created.ID
		}
	}

	return models.PublishOutcome{Success: true, PostID: postID}
}

// uploadImage runs LinkedIn's two-phase media flow: register the upload to
// obtain an uploadUrl plus asset URN, then PUT the raw image bytes. Returns
// the asset URN, or "" on any step failure.
func (s *linkedinService) uploadImage(ctx context.Context, imageURL, accessToken, owner string) string {
	register := transfer.LinkedinRegisterUploadRequest{
		RegisterUploadRequest: transfer.LinkedinRegisterUpload{
			Recipes: []string{feedshareRecipe},
			Owner:   owner,
			ServiceRelationships: []transfer.LinkedinServiceRelationship{
				{RelationshipType: "OWNER", Identifier: ugcIdentifier},
			},
		},
	}

	payload, err := json.Marshal(register)
	if err != nil {
		slog.Info(err.Error())
		return ""
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.LinkedinBaseURL+"/v2/assets?action=registerUpload", bytes.NewReader(payload))
	if err != nil {
		slog.Info(err.Error())
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		slog.Info("LinkedIn registerUpload failed", "status", resp.StatusCode, "body", string(body))
		return ""
	}

	var registered transfer.LinkedinRegisterUploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&registered); err != nil {
		slog.Info(err.Error())
		return ""
	}

	uploadURL := registered.Value.UploadMechanism.MediaUploadHTTPRequest.UploadURL
	asset := registered.Value.Asset
	if uploadURL == "" || asset == "" {
		slog.Info("LinkedIn registerUpload response missing uploadUrl or asset")
		return ""
	}

	imageBytes, err := s.downloadImage(ctx, imageURL)
	if err != nil {
		slog.Info(err.Error())
		return ""
	}

	putReq, err := http.NewRequestWithContext(ctx, http.MethodPut, uploadURL, bytes.NewReader(imageBytes))
	if err != nil {
		slog.Info(err.Error())
		return ""
	}
	putReq.Header.Set("Authorization", "Bearer "+accessToken)

	putResp, err := s.client.Do(putReq)
	if err != nil {
		slog.Info(err.Error())
		return ""
	}
	defer putResp.Body.Close()

	if putResp.StatusCode < 200 || putResp.StatusCode > 299 {
		slog.Info("LinkedIn binary upload failed", "status", putResp.StatusCode)
		return ""
	}

	return asset
}

func (s *linkedinService) downloadImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("image download returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
