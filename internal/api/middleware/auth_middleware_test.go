package middleware

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/pkg/utils"
)

type stubApiKeyService struct {
	userID int64
	err    error
}

func (s *stubApiKeyService) Create(ctx context.Context, userID int64) error { return nil }

func (s *stubApiKeyService) List(ctx context.Context, userID int64) ([]*models.ApiKey, error) {
	return nil, nil
}

func (s *stubApiKeyService) GetUserID(ctx context.Context, apiKey string) (int64, error) {
	return s.userID, s.err
}

func (s *stubApiKeyService) RemoveAPIKey(ctx context.Context, userID, keyID int64) error {
	return nil
}

func newAuthApp(cfg config.Config, keys *stubApiKeyService) *fiber.App {
	app := fiber.New()
	m := NewAuthMiddleware(cfg, keys)
	app.Use(m.AuthMiddleware())
	app.Get("/whoami", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("user_id").(string))
	})
	return app
}

func TestAuthMiddlewareRejectsAnonymous(t *testing.T) {
	app := newAuthApp(config.Config{CookieName: "session"}, &stubApiKeyService{})

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddlewareAcceptsApiKey(t *testing.T) {
	app := newAuthApp(config.Config{CookieName: "session"}, &stubApiKeyService{userID: 42})

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami?api_key=abc", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "42", string(body))
}

func TestAuthMiddlewareRejectsUnknownApiKey(t *testing.T) {
	app := newAuthApp(config.Config{CookieName: "session"}, &stubApiKeyService{err: errors.New("key doesn't exist")})

	resp, err := app.Test(httptest.NewRequest("GET", "/whoami?api_key=bogus", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestAuthMiddlewareAcceptsSessionCookie(t *testing.T) {
	cfg := config.Config{CookieName: "session", SecretKey: "0123456789abcdef0123456789abcdef"}
	app := newAuthApp(cfg, &stubApiKeyService{})

	token, err := utils.GenerateToken(cfg.SecretKey, "7", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Cookie", "session="+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "7", string(body))
}

func TestAuthMiddlewareRejectsExpiredToken(t *testing.T) {
	cfg := config.Config{CookieName: "session", SecretKey: "0123456789abcdef0123456789abcdef"}
	app := newAuthApp(cfg, &stubApiKeyService{})

	token, err := utils.GenerateToken(cfg.SecretKey, "7", -time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest("GET", "/whoami", nil)
	req.Header.Set("Cookie", "session="+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
