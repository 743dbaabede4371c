package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/service"
	"github.com/hibiken/asynq"
)

func (q *Queue) HandlePublishPostTask(ctx context.Context, task *asynq.Task) error {
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decoding publish payload: %v: %w", err, asynq.SkipRetry)
	}

	outcome, err := q.publisher.PublishDue(ctx, payload.PostID)
	switch {
	case errors.Is(err, service.ErrNotDue):
		slog.Info("stale publish task dropped", "post_id", payload.PostID)
		return nil
	case service.IsRetryOwnedError(err):
		slog.Warn("publish task not retryable", "post_id", payload.PostID, "error", err)
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	case err != nil:
		return err
	}

	if outcome.Status == models.PostStatusFailed {
		q.enqueueRetry(ctx, outcome)
	}
	return nil
}

func (q *Queue) enqueueRetry(ctx context.Context, outcome *service.PublishOutcome) {
	if q.enqueuer == nil || outcome.NextRetryAt == nil {
		return
	}
	retry := &models.ScheduledPost{
		ID:          outcome.PostID,
		Status:      models.PostStatusFailed,
		RetryCount:  outcome.RetryCount,
		NextRetryAt: outcome.NextRetryAt,
	}
	if err := q.enqueuer.EnqueuePost(context.WithoutCancel(ctx), retry); err != nil {
		// the due poller will find it via the retry query
		slog.Warn("enqueue retry failed", "post_id", outcome.PostID, "error", err)
	}
}
