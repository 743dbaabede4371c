package queue

import (
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/service"
)

type Queue struct {
	publisher service.PublisherService
	enqueuer  PostEnqueuer
}

// NewQueue builds the worker side. enqueuer may be nil, in which case failed
// posts are left for the due poller to pick up.
func NewQueue(publisher service.PublisherService, enqueuer PostEnqueuer) *Queue {
	return &Queue{
		publisher: publisher,
		enqueuer:  enqueuer,
	}
}

const TaskTypePublishPost = "publish:post"

type PublishPostPayload struct {
	PostID int64 `json:"post_id"`
}
