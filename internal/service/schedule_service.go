package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	config "github.com/IsaiahDupree/MediaPoster-sub001/configs"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/repository"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/transfer"
)

const maxGapRangeDays = 366

type ScheduleService interface {
	SchedulePost(ctx context.Context, req *transfer.SchedulePostRequest) (*models.ScheduledPost, error)
	BulkSchedule(ctx context.Context, reqs []transfer.SchedulePostRequest) (int, error)
	Reschedule(ctx context.Context, postID int64, at time.Time) (*models.ScheduledPost, error)
	Cancel(ctx context.Context, postID int64) error
	List(ctx context.Context, filter models.PostFilter) ([]*models.ScheduledPost, error)
	Gaps(ctx context.Context, from, to time.Time) ([]time.Time, error)
	Replan(ctx context.Context, mode string) (*PlanResult, error)
}

type scheduleService struct {
	posts     repository.ScheduledPostRepository
	content   repository.ContentRepository
	planner   PlannerService
	platforms []string
	loc       *time.Location
	now       func() time.Time
}

// NewScheduleService validates requests against the registered platforms.
func NewScheduleService(
	posts repository.ScheduledPostRepository,
	content repository.ContentRepository,
	planner PlannerService,
	platforms []string,
	cfg config.SchedulerConfig) (ScheduleService, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	return &scheduleService{
		posts:     posts,
		content:   content,
		planner:   planner,
		platforms: platforms,
		loc:       loc,
		now:       time.Now,
	}, nil
}

func (s *scheduleService) buildPost(ctx context.Context, req *transfer.SchedulePostRequest) (*models.ScheduledPost, error) {
	ref := models.ContentRef{ClipID: req.ClipID, VariantID: req.VariantID}
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if !slices.Contains(s.platforms, req.Platform) {
		return nil, fmt.Errorf("%q: %w", req.Platform, ErrUnknownPlatform)
	}
	if !req.ScheduledTime.After(s.now()) {
		return nil, ErrScheduledInPast
	}

	asset, err := s.content.GetAsset(ctx, ref)
	if err != nil {
		return nil, err
	}
	if asset == nil {
		return nil, fmt.Errorf("%s: %w", ref, ErrContentNotFound)
	}

	key, err := newIdempotencyKey()
	if err != nil {
		return nil, err
	}
	return &models.ScheduledPost{
		ClipID:                  req.ClipID,
		VariantID:               req.VariantID,
		Platform:                req.Platform,
		ScheduledTime:           req.ScheduledTime,
		Status:                  models.PostStatusScheduled,
		IdempotencyKey:          key,
		IsAIRecommended:         req.IsAIRecommended,
		RecommendationScore:     req.RecommendationScore,
		RecommendationReasoning: req.RecommendationReasoning,
	}, nil
}

func (s *scheduleService) SchedulePost(ctx context.Context, req *transfer.SchedulePostRequest) (*models.ScheduledPost, error) {
	post, err := s.buildPost(ctx, req)
	if err != nil {
		return nil, err
	}

	id, err := s.posts.Create(ctx, nil, post)
	if err != nil {
		return nil, err
	}
	post.ID = id

	slog.Info("post scheduled", "post_id", id, "platform", post.Platform, "at", post.ScheduledTime.Format(time.RFC3339))
	return post, nil
}

// BulkSchedule is all or nothing: one invalid request rejects the batch.
func (s *scheduleService) BulkSchedule(ctx context.Context, reqs []transfer.SchedulePostRequest) (int, error) {
	if len(reqs) == 0 {
		return 0, ErrEmptyBatch
	}

	posts := make([]*models.ScheduledPost, 0, len(reqs))
	for i := range reqs {
		post, err := s.buildPost(ctx, &reqs[i])
		if err != nil {
			return 0, fmt.Errorf("post %d: %w", i, err)
		}
		posts = append(posts, post)
	}

	n, err := s.posts.BulkCreate(ctx, posts)
	if err != nil {
		return 0, err
	}
	slog.Info("posts bulk scheduled", "count", n)
	return n, nil
}

func (s *scheduleService) Reschedule(ctx context.Context, postID int64, at time.Time) (*models.ScheduledPost, error) {
	if !at.After(s.now()) {
		return nil, ErrScheduledInPast
	}

	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	if post.Status != models.PostStatusScheduled {
		return nil, fmt.Errorf("post %d is %s: %w", postID, post.Status, ErrNotReschedulable)
	}

	ok, err := s.posts.Reschedule(ctx, postID, at)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("post %d changed state: %w", postID, ErrNotReschedulable)
	}
	post.ScheduledTime = at
	return post, nil
}

// Cancel only succeeds before a worker has claimed the post.
func (s *scheduleService) Cancel(ctx context.Context, postID int64) error {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return err
	}
	if post == nil {
		return ErrPostNotFound
	}
	if !post.Status.Cancellable() {
		return fmt.Errorf("post %d is %s: %w", postID, post.Status, ErrNotCancellable)
	}

	ok, err := s.posts.Cancel(ctx, postID)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("post %d changed state: %w", postID, ErrNotCancellable)
	}
	slog.Info("post cancelled", "post_id", postID)
	return nil
}

func (s *scheduleService) List(ctx context.Context, filter models.PostFilter) ([]*models.ScheduledPost, error) {
	for _, st := range filter.Statuses {
		if !st.Valid() {
			return nil, fmt.Errorf("%q: %w", st, ErrInvalidStatus)
		}
	}
	return s.posts.List(ctx, filter)
}

// Gaps returns the days in [from, to) that have no post other than
// cancelled ones.
func (s *scheduleService) Gaps(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	start := startOfDay(from, s.loc)
	end := startOfDay(to, s.loc)
	if !end.After(start) {
		return nil, fmt.Errorf("gap range end must be after start: %w", ErrInvalidRange)
	}
	if daysBetween(start, end) > maxGapRangeDays {
		return nil, fmt.Errorf("gap range is limited to %d days: %w", maxGapRangeDays, ErrInvalidRange)
	}

	posts, err := s.posts.List(ctx, models.PostFilter{
		From: &start,
		To:   &end,
		Statuses: []models.PostStatus{
			models.PostStatusScheduled,
			models.PostStatusPublishing,
			models.PostStatusPublished,
			models.PostStatusFailed,
			models.PostStatusMaxRetriesReached,
		},
	})
	if err != nil {
		return nil, err
	}

	busy := make(map[string]bool, len(posts))
	for _, p := range posts {
		busy[p.ScheduledTime.In(s.loc).Format(time.DateOnly)] = true
	}

	gaps := []time.Time{}
	for day := start; day.Before(end); day = day.AddDate(0, 0, 1) {
		if !busy[day.Format(time.DateOnly)] {
			gaps = append(gaps, day)
		}
	}
	return gaps, nil
}

func (s *scheduleService) Replan(ctx context.Context, mode string) (*PlanResult, error) {
	switch mode {
	case PlanModeFull:
		return s.planner.GenerateSchedule(ctx)
	case PlanModeIncremental, "":
		return s.planner.UpdateScheduleOnNewContent(ctx)
	default:
		return nil, fmt.Errorf("%q: %w", mode, ErrUnknownPlanMode)
	}
}
