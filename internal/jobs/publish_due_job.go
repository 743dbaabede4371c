package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/queue"
)

type DuePostLister interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error)
	ListRetryDue(ctx context.Context, now time.Time, ceiling, limit int) ([]*models.ScheduledPost, error)
}

// PublishDueJob hands every post whose time has come to the publish queue.
type PublishDueJob struct {
	posts     DuePostLister
	enqueuer  queue.PostEnqueuer
	batchSize int
	ceiling   int
	now       func() time.Time
}

func NewPublishDueJob(posts DuePostLister, enqueuer queue.PostEnqueuer, batchSize, ceiling int) *PublishDueJob {
	return &PublishDueJob{
		posts:     posts,
		enqueuer:  enqueuer,
		batchSize: batchSize,
		ceiling:   ceiling,
		now:       time.Now,
	}
}

// EnqueueDue is the cron entry point.
func (j *PublishDueJob) EnqueueDue() {
	if _, err := j.Run(context.Background()); err != nil {
		slog.Info(err.Error())
	}
}

func (j *PublishDueJob) Run(ctx context.Context) (int, error) {
	now := j.now()

	due, err := j.posts.ListDue(ctx, now, j.batchSize)
	if err != nil {
		return 0, err
	}
	retries, err := j.posts.ListRetryDue(ctx, now, j.ceiling, j.batchSize)
	if err != nil {
		return 0, err
	}

	enqueued := 0
	for _, post := range append(due, retries...) {
		if err := j.enqueuer.EnqueuePost(ctx, post); err != nil {
			slog.Warn("enqueue due post failed", "post_id", post.ID, "error", err)
			continue
		}
		enqueued++
	}

	if enqueued > 0 {
		slog.Info("due posts enqueued", "due", len(due), "retries", len(retries), "enqueued", enqueued)
	}
	return enqueued, nil
}
