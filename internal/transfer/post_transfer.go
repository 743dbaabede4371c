package transfer

import "time"

type SchedulePostRequest struct {
	ClipID                  *int64    `json:"clip_id"`
	VariantID               *int64    `json:"variant_id"`
	Platform                string    `json:"platform"`
	ScheduledTime           time.Time `json:"scheduled_time"`
	IsAIRecommended         bool      `json:"is_ai_recommended"`
	RecommendationScore     *float64  `json:"recommendation_score"`
	RecommendationReasoning *string   `json:"recommendation_reasoning"`
}

type BulkScheduleRequest struct {
	Posts []SchedulePostRequest `json:"posts"`
}

type RescheduleRequest struct {
	ScheduledTime time.Time `json:"scheduled_time"`
}

type PublishBatchRequest struct {
	PostIDs []int64 `json:"post_ids"`
}

type DirectPublishRequest struct {
	Platforms    []string `json:"platforms"`
	AssetURL     string   `json:"asset_url"`
	Title        string   `json:"title"`
	Caption      string   `json:"caption"`
	Hashtags     []string `json:"hashtags"`
	ThumbnailURL string   `json:"thumbnail_url"`
	LongForm     bool     `json:"long_form"`
}
