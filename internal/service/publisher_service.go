package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/adapter"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/repository"
	"golang.org/x/sync/errgroup"
)

const defaultPublishConcurrency = 10

type PublisherConfig struct {
	MaxRetries         int
	Concurrency        int
	LongFormMinSeconds float64
}

// PublishOutcome is the state a post was left in by one attempt.
type PublishOutcome struct {
	PostID      int64                  `json:"post_id"`
	Status      models.PostStatus      `json:"status"`
	RetryCount  int                    `json:"retry_count"`
	NextRetryAt *time.Time             `json:"next_retry_at,omitempty"`
	Result      *adapter.PublishResult `json:"result"`
}

type BatchResult struct {
	PostID         int64             `json:"post_id"`
	Success        bool              `json:"success"`
	Status         models.PostStatus `json:"status,omitempty"`
	PlatformPostID string            `json:"platform_post_id,omitempty"`
	PostURL        string            `json:"post_url,omitempty"`
	Error          string            `json:"error,omitempty"`
}

type PlatformResult struct {
	Platform       string `json:"platform"`
	Success        bool   `json:"success"`
	PlatformPostID string `json:"platform_post_id,omitempty"`
	PostURL        string `json:"post_url,omitempty"`
	Error          string `json:"error,omitempty"`
}

type MultiPlatformResult struct {
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Failed     int              `json:"failed"`
	Results    []PlatformResult `json:"results"`
}

type PublisherService interface {
	PublishPost(ctx context.Context, postID int64) (*PublishOutcome, error)
	PublishDue(ctx context.Context, postID int64) (*PublishOutcome, error)
	PublishBatch(ctx context.Context, postIDs []int64) []BatchResult
	PublishToMultiplePlatforms(ctx context.Context, platforms []string, req *adapter.PublishRequest) *MultiPlatformResult
	FetchMetrics(ctx context.Context, postID int64) (*adapter.MetricsSnapshot, error)
	FetchComments(ctx context.Context, postID int64, limit int) ([]adapter.Comment, error)
}

type publisherService struct {
	posts    repository.ScheduledPostRepository
	resolver ContentResolver
	registry *adapter.Registry
	policy   RetryPolicy
	cfg      PublisherConfig
	now      func() time.Time
}

func NewPublisherService(
	posts repository.ScheduledPostRepository,
	resolver ContentResolver,
	registry *adapter.Registry,
	cfg PublisherConfig) PublisherService {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultPublishConcurrency
	}
	return &publisherService{
		posts:    posts,
		resolver: resolver,
		registry: registry,
		policy:   NewRetryPolicy(cfg.MaxRetries),
		cfg:      cfg,
		now:      time.Now,
	}
}

// PublishDue publishes the post only if its scheduled or retry time has
// come. Queue workers use it so a task outliving a reschedule does nothing.
func (s *publisherService) PublishDue(ctx context.Context, postID int64) (*PublishOutcome, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	switch post.Status {
	case models.PostStatusScheduled:
		if post.ScheduledTime.After(now) {
			return nil, fmt.Errorf("post %d due at %s: %w", postID, post.ScheduledTime.Format(time.RFC3339), ErrNotDue)
		}
	case models.PostStatusFailed:
		if post.NextRetryAt != nil && post.NextRetryAt.After(now) {
			return nil, fmt.Errorf("post %d retry at %s: %w", postID, post.NextRetryAt.Format(time.RFC3339), ErrNotDue)
		}
	}
	return s.publish(ctx, post, &now)
}

// PublishPost runs one attempt for a post regardless of its due time.
// Integrity problems and unknown platforms are reported before the post is
// claimed, so they never cost a retry.
func (s *publisherService) PublishPost(ctx context.Context, postID int64) (*PublishOutcome, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, err
	}
	return s.publish(ctx, post, nil)
}

func (s *publisherService) load(ctx context.Context, postID int64) (*models.ScheduledPost, error) {
	post, err := s.posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if post == nil {
		return nil, &DataIntegrityError{PostID: postID, Err: ErrPostNotFound}
	}
	return post, nil
}

// publish claims the version of post that was loaded. dueBy, when set, also
// requires the post to be due at that instant.
func (s *publisherService) publish(ctx context.Context, post *models.ScheduledPost, dueBy *time.Time) (*PublishOutcome, error) {
	ref := post.ContentRef()
	if err := ref.Validate(); err != nil {
		return nil, &DataIntegrityError{PostID: post.ID, Err: err}
	}

	content, err := s.resolver.Resolve(ctx, ref)
	if err != nil {
		if errors.Is(err, ErrContentNotFound) || errors.Is(err, ErrInvalidContentRef) {
			return nil, &DataIntegrityError{PostID: post.ID, Err: err}
		}
		return nil, fmt.Errorf("post %d: resolving content: %w", post.ID, err)
	}

	a, ok := s.registry.Get(post.Platform)
	if !ok {
		return nil, fmt.Errorf("post %d on %s: %w", post.ID, post.Platform, adapter.ErrPlatformNotRegistered)
	}

	claimedRetryCount := post.RetryCount
	claimed, err := s.posts.Claim(ctx, post.ID, repository.ClaimGuard{
		Status:     post.Status,
		RetryCount: claimedRetryCount,
		Ceiling:    s.policy.Ceiling,
		DueBy:      dueBy,
	})
	if err != nil {
		return nil, err
	}
	if !claimed {
		return nil, fmt.Errorf("post %d (%s): %w", post.ID, post.Status, ErrNotClaimable)
	}

	req := &adapter.PublishRequest{
		AssetURL:       content.AssetURL,
		Title:          content.Asset.Title,
		Caption:        content.Asset.Caption,
		Hashtags:       content.Asset.Hashtags,
		ThumbnailURL:   content.Asset.ThumbnailURL,
		LongForm:       s.cfg.LongFormMinSeconds > 0 && content.Asset.Duration >= s.cfg.LongFormMinSeconds,
		IdempotencyKey: post.IdempotencyKey,
	}
	result := safePublish(ctx, a, req)

	// the outcome must land even if the caller gave up while the adapter ran
	saveCtx := context.WithoutCancel(ctx)
	s.applyOutcome(post, result)
	if err := s.posts.SaveOutcome(saveCtx, post, claimedRetryCount); err != nil {
		return nil, err
	}

	if result.Success {
		slog.Info("post published", "post_id", post.ID, "platform", post.Platform, "platform_post_id", result.PlatformPostID)
	} else {
		slog.Info("post publish failed",
			"post_id", post.ID,
			"platform", post.Platform,
			"status", post.Status,
			"retry_count", post.RetryCount,
			"error", result.ErrorMessage,
		)
	}

	return &PublishOutcome{
		PostID:      post.ID,
		Status:      post.Status,
		RetryCount:  post.RetryCount,
		NextRetryAt: post.NextRetryAt,
		Result:      result,
	}, nil
}

func (s *publisherService) applyOutcome(post *models.ScheduledPost, result *adapter.PublishResult) {
	now := s.now()
	post.UpdatedAt = now

	if result.Success {
		post.Status = models.PostStatusPublished
		post.PlatformPostID = ptr(result.PlatformPostID)
		post.PlatformURL = nil
		if result.PostURL != "" {
			post.PlatformURL = ptr(result.PostURL)
		}
		post.PublishedAt = ptr(now)
		post.LastError = nil
		post.NextRetryAt = nil
		return
	}

	post.RetryCount++
	status, next := s.policy.Next(post.RetryCount, now)
	post.Status = status
	post.NextRetryAt = next
	msg := result.ErrorMessage
	if status == models.PostStatusMaxRetriesReached {
		msg = "Max retries reached: " + msg
	}
	post.LastError = ptr(msg)
}

// safePublish turns every way an adapter can fail into a failed result.
func safePublish(ctx context.Context, a adapter.Adapter, req *adapter.PublishRequest) (result *adapter.PublishResult) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("adapter panicked", "platform", a.Platform(), "panic", r)
			result = adapter.Failed(fmt.Sprintf("adapter panic: %v", r))
		}
	}()

	res, err := a.Publish(ctx, req)
	if err != nil {
		return adapter.Failed(err.Error())
	}
	if res == nil {
		return adapter.Failed("adapter returned no result")
	}
	if !res.Success && res.ErrorMessage == "" {
		res.ErrorMessage = "publish failed"
	}
	return res
}

// PublishBatch attempts every post independently. The result slice matches
// postIDs index for index.
func (s *publisherService) PublishBatch(ctx context.Context, postIDs []int64) []BatchResult {
	results := make([]BatchResult, len(postIDs))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, id := range postIDs {
		i, id := i, id
		g.Go(func() error {
			results[i] = s.batchOne(ctx, id)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

func (s *publisherService) batchOne(ctx context.Context, id int64) (res BatchResult) {
	res.PostID = id
	defer func() {
		if r := recover(); r != nil {
			slog.Error("batch publish panicked", "post_id", id, "panic", r)
			res = BatchResult{PostID: id, Error: fmt.Sprintf("panic: %v", r)}
		}
	}()

	outcome, err := s.PublishPost(ctx, id)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Status = outcome.Status
	res.Success = outcome.Result.Success
	if res.Success {
		res.PlatformPostID = outcome.Result.PlatformPostID
		res.PostURL = outcome.Result.PostURL
	} else {
		res.Error = outcome.Result.ErrorMessage
	}
	return res
}

// PublishToMultiplePlatforms sends one request to several platforms without
// touching stored posts.
func (s *publisherService) PublishToMultiplePlatforms(ctx context.Context, platforms []string, req *adapter.PublishRequest) *MultiPlatformResult {
	out := &MultiPlatformResult{Total: len(platforms), Results: make([]PlatformResult, len(platforms))}

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, platform := range platforms {
		a, ok := s.registry.Get(platform)
		if !ok {
			out.Results[i] = PlatformResult{Platform: platform, Error: adapter.ErrPlatformNotRegistered.Error()}
			continue
		}
		i, platform, a := i, platform, a
		g.Go(func() error {
			r := safePublish(ctx, a, req)
			out.Results[i] = PlatformResult{
				Platform:       platform,
				Success:        r.Success,
				PlatformPostID: r.PlatformPostID,
				PostURL:        r.PostURL,
				Error:          r.ErrorMessage,
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range out.Results {
		if r.Success {
			out.Successful++
		} else {
			out.Failed++
		}
	}
	return out
}

func (s *publisherService) publishedAdapter(ctx context.Context, postID int64) (adapter.Adapter, string, error) {
	post, err := s.load(ctx, postID)
	if err != nil {
		return nil, "", err
	}
	if post.Status != models.PostStatusPublished || post.PlatformPostID == nil {
		return nil, "", fmt.Errorf("post %d (%s): %w", postID, post.Status, ErrNotPublished)
	}
	a, ok := s.registry.Get(post.Platform)
	if !ok {
		return nil, "", fmt.Errorf("post %d on %s: %w", postID, post.Platform, adapter.ErrPlatformNotRegistered)
	}
	return a, *post.PlatformPostID, nil
}

func (s *publisherService) FetchMetrics(ctx context.Context, postID int64) (*adapter.MetricsSnapshot, error) {
	a, platformPostID, err := s.publishedAdapter(ctx, postID)
	if err != nil {
		return nil, err
	}
	return a.FetchMetrics(ctx, platformPostID)
}

func (s *publisherService) FetchComments(ctx context.Context, postID int64, limit int) ([]adapter.Comment, error) {
	if limit <= 0 {
		limit = 50
	}
	a, platformPostID, err := s.publishedAdapter(ctx, postID)
	if err != nil {
		return nil, err
	}
	return a.FetchComments(ctx, platformPostID, limit)
}

// IsRetryOwnedError reports errors that a queue must not retry on its own:
// the post's state machine already decided what happens next.
func IsRetryOwnedError(err error) bool {
	return IsDataIntegrity(err) ||
		errors.Is(err, ErrNotClaimable) ||
		errors.Is(err, adapter.ErrPlatformNotRegistered)
}
