package service

import (
	"context"
	"fmt"
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/adapter"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/repository"
	"github.com/IsaiahDupree/MediaPoster-sub001/pkg/utils"
)

type accountTokenProvider struct {
	accounts  repository.SocialAccountRepository
	secretKey []byte
	now       func() time.Time
}

// NewAccountTokenProvider reads connected accounts and decrypts their stored
// access tokens with the server secret.
func NewAccountTokenProvider(accounts repository.SocialAccountRepository, secretKey string) adapter.TokenProvider {
	return &accountTokenProvider{accounts: accounts, secretKey: []byte(secretKey), now: time.Now}
}

func (p *accountTokenProvider) Credentials(ctx context.Context, platform string) (*adapter.Credentials, error) {
	acc, err := p.accounts.GetActiveByPlatform(ctx, platform)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, fmt.Errorf("%s: %w", platform, adapter.ErrNoCredentials)
	}
	if !acc.TokenExpiresAt.IsZero() && acc.TokenExpiresAt.Before(p.now()) {
		return nil, fmt.Errorf("%s access token expired at %s", platform, acc.TokenExpiresAt.Format(time.RFC3339))
	}

	token, err := utils.Decrypt(acc.AccessToken, p.secretKey)
	if err != nil {
		return nil, fmt.Errorf("decrypting %s token: %w", platform, err)
	}
	return &adapter.Credentials{AccountID: acc.AccountID, AccessToken: token}, nil
}
