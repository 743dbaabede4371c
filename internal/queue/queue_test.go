package queue

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/adapter"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/service"
	"github.com/hibiken/asynq"
)

type fakePublisher struct {
	service.PublisherService
	outcome *service.PublishOutcome
	err     error
	calls   []int64
}

func (f *fakePublisher) PublishDue(_ context.Context, postID int64) (*service.PublishOutcome, error) {
	f.calls = append(f.calls, postID)
	return f.outcome, f.err
}

type recordingEnqueuer struct {
	posts []*models.ScheduledPost
}

func (r *recordingEnqueuer) EnqueuePost(_ context.Context, post *models.ScheduledPost) error {
	r.posts = append(r.posts, post)
	return nil
}

func publishTask(t *testing.T, id int64) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(PublishPostPayload{PostID: id})
	if err != nil {
		t.Fatal(err)
	}
	return asynq.NewTask(TaskTypePublishPost, payload)
}

func TestPublishTaskID(t *testing.T) {
	at := time.Date(2025, 3, 11, 18, 0, 0, 0, time.UTC)
	retry := at.Add(15 * time.Minute)

	scheduled := &models.ScheduledPost{ID: 7, Status: models.PostStatusScheduled, ScheduledTime: at}
	failed := &models.ScheduledPost{ID: 7, Status: models.PostStatusFailed, ScheduledTime: at, RetryCount: 2, NextRetryAt: &retry}
	moved := &models.ScheduledPost{ID: 7, Status: models.PostStatusScheduled, ScheduledTime: at.Add(time.Hour)}

	if got := PublishTaskID(scheduled); got != "publish:7:0:1741716000" {
		t.Errorf("scheduled id = %s", got)
	}
	if got := PublishTaskID(failed); got != "publish:7:2:1741716900" {
		t.Errorf("failed id = %s", got)
	}
	if PublishTaskID(moved) == PublishTaskID(scheduled) {
		t.Error("rescheduled post reuses task id")
	}

	task, err := NewPublishTask(failed)
	if err != nil {
		t.Fatalf("NewPublishTask: %v", err)
	}
	var payload PublishPostPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil || payload.PostID != 7 {
		t.Fatalf("payload = %s, %v", task.Payload(), err)
	}
	if task.Type() != TaskTypePublishPost {
		t.Fatalf("type = %s", task.Type())
	}
}

func TestHandlePublishPostTask(t *testing.T) {
	next := time.Now().Add(5 * time.Minute)

	tests := []struct {
		name      string
		outcome   *service.PublishOutcome
		err       error
		wantErr   bool
		skipRetry bool
		enqueued  int
	}{
		{
			name:    "published",
			outcome: &service.PublishOutcome{PostID: 1, Status: models.PostStatusPublished, Result: &adapter.PublishResult{Success: true}},
		},
		{
			name:     "failed schedules retry",
			outcome:  &service.PublishOutcome{PostID: 1, Status: models.PostStatusFailed, RetryCount: 1, NextRetryAt: &next, Result: adapter.Failed("boom")},
			enqueued: 1,
		},
		{
			name:    "exhausted",
			outcome: &service.PublishOutcome{PostID: 1, Status: models.PostStatusMaxRetriesReached, RetryCount: 3, Result: adapter.Failed("boom")},
		},
		{name: "not due", err: service.ErrNotDue},
		{name: "integrity", err: &service.DataIntegrityError{PostID: 1, Err: service.ErrPostNotFound}, wantErr: true, skipRetry: true},
		{name: "not claimable", err: service.ErrNotClaimable, wantErr: true, skipRetry: true},
		{name: "unregistered", err: adapter.ErrPlatformNotRegistered, wantErr: true, skipRetry: true},
		{name: "database down", err: errors.New("connection refused"), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{outcome: tt.outcome, err: tt.err}
			enq := &recordingEnqueuer{}
			q := NewQueue(pub, enq)

			err := q.HandlePublishPostTask(context.Background(), publishTask(t, 1))
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := errors.Is(err, asynq.SkipRetry); got != tt.skipRetry {
				t.Fatalf("SkipRetry = %v, want %v (err %v)", got, tt.skipRetry, err)
			}
			if len(enq.posts) != tt.enqueued {
				t.Fatalf("enqueued %d, want %d", len(enq.posts), tt.enqueued)
			}
			if tt.enqueued > 0 {
				p := enq.posts[0]
				if p.Status != models.PostStatusFailed || p.RetryCount != 1 || !DueAt(p).Equal(next) {
					t.Fatalf("retry post = %+v", p)
				}
			}
		})
	}
}

func TestHandlePublishPostTaskBadPayload(t *testing.T) {
	pub := &fakePublisher{}
	q := NewQueue(pub, nil)

	err := q.HandlePublishPostTask(context.Background(), asynq.NewTask(TaskTypePublishPost, []byte("{")))
	if !errors.Is(err, asynq.SkipRetry) {
		t.Fatalf("err = %v", err)
	}
	if len(pub.calls) != 0 {
		t.Fatal("publisher called for undecodable payload")
	}
}
