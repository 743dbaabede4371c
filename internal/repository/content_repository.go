package repository

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/lib/pq"
)

type ContentRepository interface {
	ListReadyUnscheduled(ctx context.Context) ([]*models.ContentItem, error)
	GetAsset(ctx context.Context, ref models.ContentRef) (*models.ContentAsset, error)
}

type contentRepository struct {
	db *sql.DB
}

func NewContentRepository(db *sql.DB) ContentRepository {
	return &contentRepository{db: db}
}

// ListReadyUnscheduled returns ready clips and variants that no live or
// already published post points at, oldest first.
func (r *contentRepository) ListReadyUnscheduled(ctx context.Context) ([]*models.ContentItem, error) {
	query := `
		SELECT id, kind, duration_seconds, source_video_id, created_at FROM (
			SELECT c.id, 'clip' AS kind, c.duration_seconds, c.source_video_id, c.created_at
			FROM clips c
			WHERE c.status = 'ready'
			  AND NOT EXISTS (
				SELECT 1 FROM scheduled_posts sp
				WHERE sp.clip_id = c.id
				  AND sp.status IN ('scheduled', 'publishing', 'failed', 'published')
			  )
			UNION ALL
			SELECT v.id, 'variant' AS kind, v.duration_seconds, v.source_video_id, v.created_at
			FROM clip_variants v
			WHERE v.status = 'ready'
			  AND NOT EXISTS (
				SELECT 1 FROM scheduled_posts sp
				WHERE sp.variant_id = v.id
				  AND sp.status IN ('scheduled', 'publishing', 'failed', 'published')
			  )
		) items
		ORDER BY created_at, kind, id
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var items []*models.ContentItem
	for rows.Next() {
		var item models.ContentItem
		var kind string
		if err := rows.Scan(&item.ID, &kind, &item.Duration, &item.SourceID, &item.CreatedAt); err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		item.Kind = models.ContentKind(kind)
		item.Ready = true
		items = append(items, &item)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return items, nil
}

func (r *contentRepository) GetAsset(ctx context.Context, ref models.ContentRef) (*models.ContentAsset, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	table, id := "clips", ref.ClipID
	if ref.VariantID != nil {
		table, id = "clip_variants", ref.VariantID
	}
	query := `SELECT storage_key, duration_seconds, title, caption, hashtags, thumbnail_url FROM ` + table + ` WHERE id = $1`

	var asset models.ContentAsset
	err := r.db.QueryRowContext(ctx, query, *id).Scan(
		&asset.StorageKey,
		&asset.Duration,
		&asset.Title,
		&asset.Caption,
		pq.Array(&asset.Hashtags),
		&asset.ThumbnailURL,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return &asset, nil
}
