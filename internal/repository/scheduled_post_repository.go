package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/lib/pq"
)

// ErrStaleState is returned when a guarded update finds the row in an
// unexpected status, i.e. another worker changed it first.
var ErrStaleState = errors.New("scheduled post state changed concurrently")

// ClaimGuard is the version of a post a worker loaded. Claim only succeeds
// while the row still matches it.
type ClaimGuard struct {
	Status     models.PostStatus
	RetryCount int
	Ceiling    int
	// DueBy, when set, also requires the scheduled or retry time to have
	// passed. Nil claims regardless of due time.
	DueBy *time.Time
}

type ScheduledPostRepository interface {
	GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error)
	Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error)
	BulkCreate(ctx context.Context, posts []*models.ScheduledPost) (int, error)
	Claim(ctx context.Context, id int64, guard ClaimGuard) (bool, error)
	SaveOutcome(ctx context.Context, post *models.ScheduledPost, claimedRetryCount int) error
	Cancel(ctx context.Context, id int64) (bool, error)
	Reschedule(ctx context.Context, id int64, scheduledTime time.Time) (bool, error)
	List(ctx context.Context, filter models.PostFilter) ([]*models.ScheduledPost, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error)
	ListRetryDue(ctx context.Context, now time.Time, ceiling, limit int) ([]*models.ScheduledPost, error)
	LatestActiveScheduledTime(ctx context.Context) (*time.Time, error)
}

type scheduledPostRepository struct {
	db *sql.DB
}

func NewScheduledPostRepository(db *sql.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

const scheduledPostColumns = `id, clip_id, variant_id, platform, scheduled_time, status, retry_count,
	next_retry_at, last_error, platform_post_id, platform_url, published_at, idempotency_key,
	is_ai_recommended, recommendation_score, recommendation_reasoning, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheduledPost(row rowScanner) (*models.ScheduledPost, error) {
	var p models.ScheduledPost
	var status string
	err := row.Scan(
		&p.ID, &p.ClipID, &p.VariantID, &p.Platform, &p.ScheduledTime, &status, &p.RetryCount,
		&p.NextRetryAt, &p.LastError, &p.PlatformPostID, &p.PlatformURL, &p.PublishedAt, &p.IdempotencyKey,
		&p.IsAIRecommended, &p.RecommendationScore, &p.RecommendationReasoning, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.Status = models.PostStatus(status)
	return &p, nil
}

func (r *scheduledPostRepository) GetByID(ctx context.Context, id int64) (*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts WHERE id = $1`

	post, err := scanScheduledPost(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		slog.Info(err.Error())
		return nil, err
	}
	return post, nil
}

func (r *scheduledPostRepository) Create(ctx context.Context, tx *sql.Tx, post *models.ScheduledPost) (int64, error) {
	query := `
		INSERT INTO scheduled_posts (clip_id, variant_id, platform, scheduled_time, status, idempotency_key,
			is_ai_recommended, recommendation_score, recommendation_reasoning)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`
	args := []any{
		post.ClipID, post.VariantID, post.Platform, post.ScheduledTime, string(post.Status), post.IdempotencyKey,
		post.IsAIRecommended, post.RecommendationScore, post.RecommendationReasoning,
	}

	var id int64
	var err error
	if tx != nil {
		err = tx.QueryRowContext(ctx, query, args...).Scan(&id)
	} else {
		err = r.db.QueryRowContext(ctx, query, args...).Scan(&id)
	}
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return id, nil
}

// BulkCreate streams posts into the table with COPY inside one transaction,
// so either every row lands or none does.
func (r *scheduledPostRepository) BulkCreate(ctx context.Context, posts []*models.ScheduledPost) (int, error) {
	if len(posts) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("scheduled_posts",
		"clip_id", "variant_id", "platform", "scheduled_time", "status", "retry_count", "idempotency_key",
		"is_ai_recommended", "recommendation_score", "recommendation_reasoning", "created_at", "updated_at",
	))
	if err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	now := time.Now()
	for _, p := range posts {
		_, err = stmt.ExecContext(ctx,
			p.ClipID, p.VariantID, p.Platform, p.ScheduledTime, string(p.Status), p.RetryCount, p.IdempotencyKey,
			p.IsAIRecommended, p.RecommendationScore, p.RecommendationReasoning, now, now,
		)
		if err != nil {
			stmt.Close()
			slog.Info(err.Error())
			return 0, err
		}
	}
	if _, err = stmt.ExecContext(ctx); err != nil {
		stmt.Close()
		slog.Info(err.Error())
		return 0, err
	}
	if err = stmt.Close(); err != nil {
		slog.Info(err.Error())
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		slog.Info(err.Error())
		return 0, err
	}
	return len(posts), nil
}

// Claim moves a post into publishing. The row must still carry the status
// and retry count the caller loaded, so of two workers holding the same
// version only one wins, and a worker holding an older version loses.
func (r *scheduledPostRepository) Claim(ctx context.Context, id int64, guard ClaimGuard) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = 'publishing',
			updated_at = $6
		WHERE id = $1
		  AND status = $2
		  AND retry_count = $3
		  AND (status = 'scheduled' OR (status = 'failed' AND retry_count < $4))
		  AND ($5::timestamptz IS NULL
			OR (status = 'scheduled' AND scheduled_time <= $5)
			OR (status = 'failed' AND next_retry_at <= $5))
	`
	return r.execGuarded(ctx, query, id, string(guard.Status), guard.RetryCount, guard.Ceiling, guard.DueBy, time.Now())
}

// SaveOutcome writes the result of the attempt that claimed the post at
// claimedRetryCount. A failed attempt increments retry_count in SQL.
func (r *scheduledPostRepository) SaveOutcome(ctx context.Context, post *models.ScheduledPost, claimedRetryCount int) error {
	query := `
		UPDATE scheduled_posts
		SET status = $2,
			retry_count = retry_count + $3,
			next_retry_at = $4,
			last_error = $5,
			platform_post_id = $6,
			platform_url = $7,
			published_at = $8,
			updated_at = $9
		WHERE id = $1 AND status = 'publishing' AND retry_count = $10
	`
	increment := 0
	if post.RetryCount > claimedRetryCount {
		increment = 1
	}
	ok, err := r.execGuarded(ctx, query,
		post.ID, string(post.Status), increment, post.NextRetryAt, post.LastError,
		post.PlatformPostID, post.PlatformURL, post.PublishedAt, post.UpdatedAt, claimedRetryCount,
	)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("saving outcome for post %d: %w", post.ID, ErrStaleState)
	}
	return nil
}

func (r *scheduledPostRepository) Cancel(ctx context.Context, id int64) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET status = 'cancelled',
			next_retry_at = NULL,
			updated_at = $2
		WHERE id = $1 AND status IN ('scheduled', 'failed')
	`
	return r.execGuarded(ctx, query, id, time.Now())
}

func (r *scheduledPostRepository) Reschedule(ctx context.Context, id int64, scheduledTime time.Time) (bool, error) {
	query := `
		UPDATE scheduled_posts
		SET scheduled_time = $2,
			updated_at = $3
		WHERE id = $1 AND status = 'scheduled'
	`
	return r.execGuarded(ctx, query, id, scheduledTime, time.Now())
}

func (r *scheduledPostRepository) execGuarded(ctx context.Context, query string, args ...any) (bool, error) {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		slog.Info(err.Error())
		return false, err
	}
	return affected == 1, nil
}

func (r *scheduledPostRepository) List(ctx context.Context, filter models.PostFilter) ([]*models.ScheduledPost, error) {
	var where []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.From != nil {
		where = append(where, "scheduled_time >= "+arg(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "scheduled_time < "+arg(*filter.To))
	}
	if len(filter.Platforms) > 0 {
		where = append(where, "platform = ANY("+arg(pq.Array(filter.Platforms))+")")
	}
	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		where = append(where, "status = ANY("+arg(pq.Array(statuses))+")")
	}

	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY scheduled_time, id"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}

	return r.queryPosts(ctx, query, args...)
}

func (r *scheduledPostRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts
		WHERE status = 'scheduled' AND scheduled_time <= $1
		ORDER BY scheduled_time, id
		LIMIT $2`
	return r.queryPosts(ctx, query, now, limit)
}

func (r *scheduledPostRepository) ListRetryDue(ctx context.Context, now time.Time, ceiling, limit int) ([]*models.ScheduledPost, error) {
	query := `SELECT ` + scheduledPostColumns + ` FROM scheduled_posts
		WHERE status = 'failed' AND next_retry_at <= $1 AND retry_count < $2
		ORDER BY next_retry_at, id
		LIMIT $3`
	return r.queryPosts(ctx, query, now, ceiling, limit)
}

func (r *scheduledPostRepository) LatestActiveScheduledTime(ctx context.Context) (*time.Time, error) {
	query := `SELECT MAX(scheduled_time) FROM scheduled_posts WHERE status IN ('scheduled', 'publishing', 'failed')`

	var latest sql.NullTime
	if err := r.db.QueryRowContext(ctx, query).Scan(&latest); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

func (r *scheduledPostRepository) queryPosts(ctx context.Context, query string, args ...any) ([]*models.ScheduledPost, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	defer rows.Close()

	var posts []*models.ScheduledPost
	for rows.Next() {
		post, err := scanScheduledPost(rows)
		if err != nil {
			slog.Info(err.Error())
			return nil, err
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		slog.Info(err.Error())
		return nil, err
	}
	return posts, nil
}
