package service

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/linkedin"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/transfer"
)

// ConnectService runs the OAuth2 authorization-code flow for platforms that
// support it and hands the resulting token to the credential validator.
type ConnectService interface {
	AuthURL(ctx context.Context, platform, state string) string
	LinkedinCallback(ctx context.Context, code string, userID int64) error
}

type connectService struct {
	cfg config.Config
	cs  CredentialService
}

func NewConnectService(cfg config.Config, cs CredentialService) ConnectService {
	return &connectService{
		cfg: cfg,
		cs:  cs,
	}
}

func (s *connectService) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.cfg.LinkedinClientID,
		ClientSecret: s.cfg.LinkedinSecret,
		RedirectURL:  s.cfg.LinkedinRedirect,
		Scopes:       []string{"openid", "profile", "w_member_social"},
		Endpoint:     linkedin.Endpoint,
	}
}

func (s *connectService) AuthURL(ctx context.Context, platform, state string) string {
	switch platform {
	case models.PlatformLinkedin:
		return s.oauth2Config().AuthCodeURL(state)
	default:
		return ""
	}
}

// LinkedinCallback exchanges the authorization code and stores the member
// token through the same validation path a manually entered credential takes.
func (s *connectService) LinkedinCallback(ctx context.Context, code string, userID int64) error {
	cfg := s.oauth2Config()

	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RedirectURL == "" {
		err := errors.New("OAuth2 configuration is incomplete")
		slog.Info(err.Error())
		return err
	}

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		slog.Info(err.Error())
		return err
	}

	validation, err := s.cs.Validate(ctx, userID, models.PlatformLinkedin, &transfer.CredentialInput{
		AccessToken: token.AccessToken,
	})
	if err != nil {
		return err
	}

	if !validation.IsValid {
		err = errors.New(validation.Error)
		slog.Info(err.Error())
		return err
	}

	return nil
}
