package service

import (
	"context"

	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/transfer"
)

// Publisher is the per-platform publishing contract. One implementation per
// platform in the closed enum; adding a platform means adding an
// implementation and a registry entry, nothing else changes.
type Publisher interface {
	Platform() string

	// Validate round-trips a lightweight "who am I" call. Provider rejections
	// come back as data; only transport failures return an error.
	Validate(ctx context.Context, creds *transfer.CredentialInput) (*transfer.CredentialValidation, error)

	// Publish sends one post. Never returns an error: every failure mode is
	// folded into the outcome so sibling platforms keep going.
	Publish(ctx context.Context, content string, mediaURLs []string, creds *transfer.CredentialInput, accountID string) models.PublishOutcome
}

// NewPublisherRegistry indexes publishers by platform for enum-based lookup.
func NewPublisherRegistry(publishers ...Publisher) map[string]Publisher {
	registry := make(map[string]Publisher, len(publishers))
	for _, p := range publishers {
		registry[p.Platform()] = p
	}
	return registry
}
