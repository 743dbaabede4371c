package models

import "time"

type PostStatus string

const (
	PostStatusScheduled         PostStatus = "scheduled"
	PostStatusPublishing        PostStatus = "publishing"
	PostStatusPublished         PostStatus = "published"
	PostStatusFailed            PostStatus = "failed"
	PostStatusMaxRetriesReached PostStatus = "max_retries_reached"
	PostStatusCancelled         PostStatus = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s PostStatus) Terminal() bool {
	switch s {
	case PostStatusPublished, PostStatusMaxRetriesReached, PostStatusCancelled:
		return true
	}
	return false
}

// Cancellable reports whether the post has not been claimed yet.
func (s PostStatus) Cancellable() bool {
	return s == PostStatusScheduled || s == PostStatusFailed
}

func (s PostStatus) Valid() bool {
	switch s {
	case PostStatusScheduled, PostStatusPublishing, PostStatusPublished,
		PostStatusFailed, PostStatusMaxRetriesReached, PostStatusCancelled:
		return true
	}
	return false
}

type ScheduledPost struct {
	ID                      int64      `db:"id" json:"id"`
	ClipID                  *int64     `db:"clip_id" json:"clip_id,omitempty"`
	VariantID               *int64     `db:"variant_id" json:"variant_id,omitempty"`
	Platform                string     `db:"platform" json:"platform"`
	ScheduledTime           time.Time  `db:"scheduled_time" json:"scheduled_time"`
	Status                  PostStatus `db:"status" json:"status"`
	RetryCount              int        `db:"retry_count" json:"retry_count"`
	NextRetryAt             *time.Time `db:"next_retry_at" json:"next_retry_at,omitempty"`
	LastError               *string    `db:"last_error" json:"last_error,omitempty"`
	PlatformPostID          *string    `db:"platform_post_id" json:"platform_post_id,omitempty"`
	PlatformURL             *string    `db:"platform_url" json:"platform_url,omitempty"`
	PublishedAt             *time.Time `db:"published_at" json:"published_at,omitempty"`
	IdempotencyKey          string     `db:"idempotency_key" json:"idempotency_key"`
	IsAIRecommended         bool       `db:"is_ai_recommended" json:"is_ai_recommended"`
	RecommendationScore     *float64   `db:"recommendation_score" json:"recommendation_score,omitempty"`
	RecommendationReasoning *string    `db:"recommendation_reasoning" json:"recommendation_reasoning,omitempty"`
	CreatedAt               time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at" json:"updated_at"`
}

func (p *ScheduledPost) ContentRef() ContentRef {
	return ContentRef{ClipID: p.ClipID, VariantID: p.VariantID}
}

// PostFilter narrows List queries. Zero values mean "no constraint".
type PostFilter struct {
	From      *time.Time
	To        *time.Time
	Platforms []string
	Statuses  []PostStatus
	Limit     int
}
