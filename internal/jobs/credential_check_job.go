package job

import (
	"context"
	"log/slog"
	"sync"
	"time"

	config "github.com/postdeckhq/postdeck/configs"
	"github.com/postdeckhq/postdeck/internal/models"
	"github.com/postdeckhq/postdeck/internal/repository"
	"github.com/postdeckhq/postdeck/internal/service"
)

// CredentialCheckJob periodically re-validates platform credentials that have
// not been checked recently, so is_valid and validation_error reflect reality
// before the next publish picks them up.
type CredentialCheckJob struct {
	cfg config.Config
	cr  repository.CredentialRepository
	cs  service.CredentialService
}

func NewCredentialCheckJob(cfg config.Config, cr repository.CredentialRepository, cs service.CredentialService) *CredentialCheckJob {
	return &CredentialCheckJob{
		cfg: cfg,
		cr:  cr,
		cs:  cs,
	}
}

const revalidateAfter = 24 * time.Hour

func (c *CredentialCheckJob) CheckCredentials() {
	ctx := context.Background()

	cutoff := time.Now().Add(-revalidateAfter)
	creds, err := c.cr.ListValidatedBefore(ctx, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return
	}

	var wg sync.WaitGroup

	concurrencyLimit := 10
	semaphore := make(chan struct{}, concurrencyLimit)

	for _, cred := range creds {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(cred *models.PlatformCredential) {
			defer wg.Done()
			defer func() { <-semaphore }()

			input, err := service.DecryptStoredCredential(cred, c.cfg.SecretKey)
			if err != nil {
				slog.Info("unable to decrypt credential", "user_id", cred.UserID, "platform", cred.Platform)
				return
			}

			if _, err := c.cs.Validate(ctx, cred.UserID, cred.Platform, input); err != nil {
				slog.Info("unable to re-validate credential", "user_id", cred.UserID, "platform", cred.Platform)
			}
		}(cred)
	}

	wg.Wait()
}
