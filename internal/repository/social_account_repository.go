package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
)

type SocialAccountRepository interface {
	GetActiveByPlatform(ctx context.Context, platform string) (*models.SocialAccount, error)
}

type socialAccountRepository struct {
	db *sql.DB
}

func NewSocialAccountRepository(db *sql.DB) SocialAccountRepository {
	return &socialAccountRepository{db: db}
}

// GetActiveByPlatform returns the most recently refreshed active account for
// the platform, or nil when none is connected.
func (r *socialAccountRepository) GetActiveByPlatform(ctx context.Context, platform string) (*models.SocialAccount, error) {
	query := `
		SELECT id, platform, account_id, account_username, access_token, token_expires_at, account_status, updated_at
		FROM social_accounts
		WHERE platform = $1 AND account_status = 'active'
		ORDER BY updated_at DESC
		LIMIT 1
	`

	var sa models.SocialAccount
	var expires sql.NullTime
	err := r.db.QueryRowContext(ctx, query, platform).Scan(
		&sa.ID, &sa.Platform, &sa.AccountID, &sa.AccountUsername,
		&sa.AccessToken, &expires, &sa.AccountStatus, &sa.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	sa.TokenExpiresAt = expires.Time
	return &sa, nil
}
