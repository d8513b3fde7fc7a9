package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/transfer"
	"github.com/postdeckhq/postdeck/pkg/utils"
)

type CredentialService interface {
	Validate(ctx context.Context, userID int64, platform string, input *transfer.CredentialInput) (*transfer.CredentialValidation, error)
	List(ctx context.Context, userID int64) ([]*models.PlatformCredential, error)
	Remove(ctx context.Context, userID int64, platform string) error
}

type credentialService struct {
	cfg        config.Config
	cr         repository.CredentialRepository
	publishers map[string]Publisher
}

func NewCredentialService(cfg config.Config, cr repository.CredentialRepository, publishers map[string]Publisher) CredentialService {
	return &credentialService{
		cfg:        cfg,
		cr:         cr,
		publishers: publishers,
	}
}

// Validate round-trips the platform's "who am I" call and upserts the
// credential row with the outcome, success or failure, so stale failures stay
// visible to the tenant. Only transport errors escape as errors.
func (s *credentialService) Validate(ctx context.Context, userID int64, platform string, input *transfer.CredentialInput) (*transfer.CredentialValidation, error) {
	publisher, ok := s.publishers[platform]
	if !ok {
		err := fmt.Errorf("unsupported platform: %s", platform)
		slog.Info(err.Error())
		return nil, err
	}

	validation, err := publisher.Validate(ctx, input)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.encryptInput(input)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	cred := &models.PlatformCredential{
		UserID:          userID,
		Platform:        platform,
		ConsumerKey:     encrypted.ConsumerKey,
		ConsumerSecret:  encrypted.ConsumerSecret,
		AccessToken:     encrypted.AccessToken,
		AccessSecret:    encrypted.AccessSecret,
		IsValid:         validation.IsValid,
		AccountName:     validation.AccountName,
		AccountID:       validation.AccountID,
		LastValidatedAt: &now,
		ValidationError: validation.Error,
	}

	if _, err := s.cr.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}

	return validation, nil
}

func (s *credentialService) List(ctx context.Context, userID int64) ([]*models.PlatformCredential, error) {
	creds, err := s.cr.ListByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	return creds, nil
}

func (s *credentialService) Remove(ctx context.Context, userID int64, platform string) error {
	if !models.IsValidPlatform(platform) {
		err := errors.New("platform is not valid")
		slog.Info(err.Error())
		return err
	}
	return s.cr.Remove(ctx, userID, platform)
}

func (s *credentialService) encryptInput(input *transfer.CredentialInput) (*transfer.CredentialInput, error) {
	key := []byte(s.cfg.SecretKey)
	out := &transfer.CredentialInput{}

	fields := []struct {
		src string
		dst *string
	}{
		{input.ConsumerKey, &out.ConsumerKey},
		{input.ConsumerSecret, &out.ConsumerSecret},
		{input.AccessToken, &out.AccessToken},
		{input.AccessSecret, &out.AccessSecret},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		enc, err := utils.Encrypt([]byte(f.src), key)
		if err != nil {
			return nil, err
		}
		*f.dst = enc
	}

	return out, nil
}

// DecryptStoredCredential turns a stored row back into a usable secret bundle.
func DecryptStoredCredential(cred *models.PlatformCredential, secretKey string) (*transfer.CredentialInput, error) {
	key := []byte(secretKey)
	out := &transfer.CredentialInput{}

	fields := []struct {
		src string
		dst *string
	}{
		{cred.ConsumerKey, &out.ConsumerKey},
		{cred.ConsumerSecret, &out.ConsumerSecret},
		{cred.AccessToken, &out.AccessToken},
		{cred.AccessSecret, &out.AccessSecret},
	}
	for _, f := range fields {
		if f.src == "" {
			continue
		}
		dec, err := utils.Decrypt(f.src, key)
		if err != nil {
			return nil, err
		}
		*f.dst = dec
	}

	return out, nil
}
