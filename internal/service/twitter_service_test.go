package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/transfer"
)

func twitterTestCreds() *transfer.CredentialInput {
	return &transfer.CredentialInput{
		ConsumerKey:    "ck",
		ConsumerSecret: "cs",
		AccessToken:    "at",
		AccessSecret:   "as",
	}
}

func newTwitterService(baseURL string) Publisher {
	return NewTwitterService(config.Config{
		TwitterBaseURL: baseURL,
		HTTPTimeout:    5 * time.Second,
	})
}

func TestTwitterValidateSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/2/users/me", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_consumer_key="ck"`)
		assert.Contains(t, r.Header.Get("Authorization"), `oauth_signature_method="HMAC-SHA1"`)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":{"id":"2244994945","name":"Dev Account","username":"devaccount"}}`))
	}))
	defer server.Close()

	s := newTwitterService(server.URL)

	validation, err := s.Validate(context.Background(), twitterTestCreds())
	require.NoError(t, err)
	assert.True(t, validation.IsValid)
	assert.Equal(t, "devaccount", validation.AccountName)
	assert.Equal(t, "2244994945", validation.AccountID)
	assert.Empty(t, validation.Error)
}

func TestTwitterValidateUnauthorized(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"title":"Unauthorized","status":401}`))
	}))
	defer server.Close()

	s := newTwitterService(server.URL)

	validation, err := s.Validate(context.Background(), twitterTestCreds())
	require.NoError(t, err)
	assert.False(t, validation.IsValid)
	assert.Contains(t, validation.Error, "read and write")
}

func TestTwitterValidateConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	s := newTwitterService(server.URL)

	_, err := s.Validate(context.Background(), twitterTestCreds())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConnection))
}

func TestTwitterPublishSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/2/tweets", r.URL.Path)
		assert.True(t, strings.HasPrefix(r.Header.Get("Authorization"), "OAuth "))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body transfer.TwitterTweetRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "hello world", body.Text)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"data":{"id":"123","text":"hello world"}}`))
	}))
	defer server.Close()

	s := newTwitterService(server.URL)

	outcome := s.Publish(context.Background(), "hello world", nil, twitterTestCreds(), "")
	assert.True(t, outcome.Success)
	assert.Equal(t, "123", outcome.PostID)
	assert.Empty(t, outcome.Error)
}

func TestTwitterPublishProviderRejection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"title":"Forbidden","detail":"You are not permitted to perform this action.","status":403}`))
	}))
	defer server.Close()

	s := newTwitterService(server.URL)

	outcome := s.Publish(context.Background(), "hello", nil, twitterTestCreds(), "")
	assert.False(t, outcome.Success)
	assert.Equal(t, "You are not permitted to perform this action.", outcome.Error)
}

func TestTwitterPublishConnectionError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close()

	s := newTwitterService(server.URL)

	outcome := s.Publish(context.Background(), "hello", nil, twitterTestCreds(), "")
	assert.False(t, outcome.Success)
	assert.NotEmpty(t, outcome.Error)
}
