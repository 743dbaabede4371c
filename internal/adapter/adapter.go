// Package adapter defines the uniform publishing surface every destination
// platform implements, plus the registry the publisher dispatches through.
//
// Publish is not idempotent. A retried call may create a duplicate remote
// post, so callers bound retries and pass PublishRequest.IdempotencyKey for
// adapters whose remote API can deduplicate.
package adapter

import (
	"context"
	"errors"
	"strings"
	"time"
)

const (
	PlatformTikTok    = "tiktok"
	PlatformInstagram = "instagram"
	PlatformYouTube   = "youtube"
)

var (
	ErrPlatformNotRegistered = errors.New("platform not registered")
	ErrRegistryFrozen        = errors.New("adapter registry is frozen")
	ErrNoCredentials         = errors.New("no connected account for platform")
)

type Adapter interface {
	Platform() string
	Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error)
	FetchMetrics(ctx context.Context, platformPostID string) (*MetricsSnapshot, error)
	FetchComments(ctx context.Context, platformPostID string, limit int) ([]Comment, error)
}

// PublishRequest is platform agnostic; adapters map it onto their API.
type PublishRequest struct {
	AssetURL       string   `json:"asset_url"`
	Title          string   `json:"title"`
	Caption        string   `json:"caption"`
	Hashtags       []string `json:"hashtags,omitempty"`
	ThumbnailURL   string   `json:"thumbnail_url,omitempty"`
	LongForm       bool     `json:"long_form"`
	IdempotencyKey string   `json:"idempotency_key,omitempty"`
}

// Description joins the caption and hashtags the way captions are posted.
func (r *PublishRequest) Description() string {
	if len(r.Hashtags) == 0 {
		return r.Caption
	}
	tags := make([]string, 0, len(r.Hashtags))
	for _, h := range r.Hashtags {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		if !strings.HasPrefix(h, "#") {
			h = "#" + h
		}
		tags = append(tags, h)
	}
	if len(tags) == 0 {
		return r.Caption
	}
	if r.Caption == "" {
		return strings.Join(tags, " ")
	}
	return r.Caption + "\n\n" + strings.Join(tags, " ")
}

type PublishResult struct {
	Success        bool   `json:"success"`
	PlatformPostID string `json:"platform_post_id,omitempty"`
	PostURL        string `json:"post_url,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
}

func Failed(msg string) *PublishResult {
	return &PublishResult{Success: false, ErrorMessage: msg}
}

type MetricsSnapshot struct {
	Platform       string           `json:"platform"`
	PlatformPostID string           `json:"platform_post_id"`
	Views          int64            `json:"views"`
	Likes          int64            `json:"likes"`
	Comments       int64            `json:"comments"`
	Shares         int64            `json:"shares"`
	Extra          map[string]int64 `json:"extra,omitempty"`
	FetchedAt      time.Time        `json:"fetched_at"`
}

type Comment struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	LikeCount int64     `json:"like_count"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials are the decrypted account details an adapter posts with.
type Credentials struct {
	AccountID   string
	AccessToken string
}

// TokenProvider hands out credentials for a platform. Token refresh happens
// elsewhere; adapters only read.
type TokenProvider interface {
	Credentials(ctx context.Context, platform string) (*Credentials, error)
}
