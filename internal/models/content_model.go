package models

import (
	"errors"
	"fmt"
	"time"
)

type ContentKind string

const (
	ContentKindClip    ContentKind = "clip"
	ContentKindVariant ContentKind = "variant"
)

var ErrInvalidContentRef = errors.New("content reference must set exactly one of clip_id or variant_id")

// ContentItem is a ready-to-post clip or rendered variant.
type ContentItem struct {
	ID        int64       `db:"id" json:"id"`
	Kind      ContentKind `db:"kind" json:"kind"`
	Duration  float64     `db:"duration_seconds" json:"duration_seconds"`
	Ready     bool        `db:"ready" json:"ready"`
	SourceID  int64       `db:"source_id" json:"source_id"`
	CreatedAt time.Time   `db:"created_at" json:"created_at"`
}

func (c *ContentItem) Ref() ContentRef {
	id := c.ID
	if c.Kind == ContentKindVariant {
		return ContentRef{VariantID: &id}
	}
	return ContentRef{ClipID: &id}
}

type ContentRef struct {
	ClipID    *int64 `json:"clip_id,omitempty"`
	VariantID *int64 `json:"variant_id,omitempty"`
}

func (r ContentRef) Validate() error {
	if (r.ClipID == nil) == (r.VariantID == nil) {
		return ErrInvalidContentRef
	}
	return nil
}

func (r ContentRef) String() string {
	switch {
	case r.ClipID != nil && r.VariantID == nil:
		return fmt.Sprintf("clip:%d", *r.ClipID)
	case r.VariantID != nil && r.ClipID == nil:
		return fmt.Sprintf("variant:%d", *r.VariantID)
	default:
		return "invalid"
	}
}

// ContentAsset is the renderable payload behind a content reference.
type ContentAsset struct {
	StorageKey   string   `db:"storage_key"`
	Duration     float64  `db:"duration_seconds"`
	Title        string   `db:"title"`
	Caption      string   `db:"caption"`
	Hashtags     []string `db:"hashtags"`
	ThumbnailURL string   `db:"thumbnail_url"`
}
