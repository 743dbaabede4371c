package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/hibiken/asynq"
)

const publishTaskMaxRetry = 5

type PostEnqueuer interface {
	EnqueuePost(ctx context.Context, post *models.ScheduledPost) error
}

type Enqueuer struct {
	client *asynq.Client
}

func NewEnqueuer(client *asynq.Client) *Enqueuer {
	return &Enqueuer{client: client}
}

func (e *Enqueuer) EnqueuePost(ctx context.Context, post *models.ScheduledPost) error {
	return EnqueuePost(ctx, e.client, post)
}

// DueAt is when the next attempt for post may run.
func DueAt(post *models.ScheduledPost) time.Time {
	if post.Status == models.PostStatusFailed && post.NextRetryAt != nil {
		return *post.NextRetryAt
	}
	return post.ScheduledTime
}

// PublishTaskID identifies one attempt. Pollers racing on the same attempt
// collide on it, while a reschedule or a new retry produces a fresh id.
func PublishTaskID(post *models.ScheduledPost) string {
	return fmt.Sprintf("publish:%d:%d:%d", post.ID, post.RetryCount, DueAt(post).Unix())
}

func NewPublishTask(post *models.ScheduledPost) (*asynq.Task, error) {
	payload, err := json.Marshal(PublishPostPayload{PostID: post.ID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypePublishPost, payload,
		asynq.TaskID(PublishTaskID(post)),
		asynq.MaxRetry(publishTaskMaxRetry),
	), nil
}

func EnqueuePost(ctx context.Context, asynqClient *asynq.Client, post *models.ScheduledPost) error {
	task, err := NewPublishTask(post)
	if err != nil {
		return err
	}

	delay := max(time.Until(DueAt(post)), 0)
	_, err = asynqClient.EnqueueContext(ctx, task, asynq.ProcessIn(delay))
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	if err != nil {
		return err
	}

	slog.Info("publish task enqueued", "post_id", post.ID, "retry", post.RetryCount, "delay", delay.Round(time.Second))
	return nil
}
