package repository

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/postdeckhq/postdeck/internal/models"
)

type CredentialRepository interface {
	Upsert(ctx context.Context, cred *models.PlatformCredential) (int64, error)
	GetByUserPlatform(ctx context.Context, userID int64, platform string) (*models.PlatformCredential, error)
	ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformCredential, error)
	ListValidatedBefore(ctx context.Context, cutoff time.Time) ([]*models.PlatformCredential, error)
	Remove(ctx context.Context, userID int64, platform string) error
}

type credentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) CredentialRepository {
	return &credentialRepository{db: db}
}

const credentialColumns = `id, user_id, platform, consumer_key, consumer_secret, access_token, access_secret, is_valid, account_name, account_id, last_validated_at, validation_error, created_at, updated_at`

// Upsert keeps exactly one row per (user_id, platform): every validation
// attempt overwrites the previous outcome, failures included.
func (r *credentialRepository) Upsert(ctx context.Context, cred *models.PlatformCredential) (int64, error) {
	query := `
		INSERT INTO platform_credentials (
			user_id,
			platform,
			consumer_key,
			consumer_secret,
			access_token,
			access_secret,
			is_valid,
			account_name,
			account_id,
			last_validated_at,
			validation_error
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
		ON CONFLICT (user_id, platform) DO UPDATE SET
			consumer_key = EXCLUDED.consumer_key,
			consumer_secret = EXCLUDED.consumer_secret,
			access_token = EXCLUDED.access_token,
			access_secret = EXCLUDED.access_secret,
			is_valid = EXCLUDED.is_valid,
			account_name = EXCLUDED.account_name,
			account_id = EXCLUDED.account_id,
			last_validated_at = EXCLUDED.last_validated_at,
			validation_error = EXCLUDED.validation_error,
			updated_at = CURRENT_TIMESTAMP
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		cred.UserID,
		cred.Platform,
		cred.ConsumerKey,
		cred.ConsumerSecret,
		cred.AccessToken,
		cred.AccessSecret,
		cred.IsValid,
		cred.AccountName,
		cred.AccountID,
		cred.LastValidatedAt,
		cred.ValidationError,
	).Scan(&id)
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	return id, nil
}

func scanCredential(row interface{ Scan(...any) error }) (*models.PlatformCredential, error) {
	var cred models.PlatformCredential
	var lastValidatedAt sql.NullTime
	var validationError sql.NullString

	err := row.Scan(&cred.ID, &cred.UserID, &cred.Platform, &cred.ConsumerKey,
		&cred.ConsumerSecret, &cred.AccessToken, &cred.AccessSecret, &cred.IsValid,
		&cred.AccountName, &cred.AccountID, &lastValidatedAt, &validationError,
		&cred.CreatedAt, &cred.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastValidatedAt.Valid {
		cred.LastValidatedAt = &lastValidatedAt.Time
	}
	if validationError.Valid {
		cred.ValidationError = validationError.String
	}

	return &cred, nil
}

func (r *credentialRepository) GetByUserPlatform(ctx context.Context, userID int64, platform string) (*models.PlatformCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM platform_credentials WHERE user_id = $1 AND platform = $2`
	cred, err := scanCredential(r.db.QueryRowContext(ctx, query, userID, platform))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return cred, nil
}

func (r *credentialRepository) ListByUserID(ctx context.Context, userID int64) ([]*models.PlatformCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM platform_credentials WHERE user_id = $1`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var creds []*models.PlatformCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

func (r *credentialRepository) ListValidatedBefore(ctx context.Context, cutoff time.Time) ([]*models.PlatformCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM platform_credentials
		WHERE last_validated_at IS NULL OR last_validated_at < $1`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var creds []*models.PlatformCredential
	for rows.Next() {
		cred, err := scanCredential(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

func (r *credentialRepository) Remove(ctx context.Context, userID int64, platform string) error {
	query := `DELETE FROM platform_credentials WHERE user_id = $1 AND platform = $2`
	_, err := r.db.ExecContext(ctx, query, userID, platform)
	if err != nil {
		slog.Info(err.Error())
		return err
	}
	return nil
}
