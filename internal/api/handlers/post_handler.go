package handlers

import (
	"log/slog"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/adapter"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/queue"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/service"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/transfer"
	"github.com/gofiber/fiber/v2"
)

type PostHandler struct {
	s         service.ScheduleService
	publisher service.PublisherService
	enqueuer  queue.PostEnqueuer
}

func NewPostHandler(s service.ScheduleService, publisher service.PublisherService, enqueuer queue.PostEnqueuer) *PostHandler {
	return &PostHandler{s: s, publisher: publisher, enqueuer: enqueuer}
}

func (h *PostHandler) enqueue(c *fiber.Ctx, post *models.ScheduledPost) {
	// the due poller catches anything that fails to enqueue here
	if err := h.enqueuer.EnqueuePost(c.Context(), post); err != nil {
		slog.Warn("enqueue post failed", "post_id", post.ID, "error", err)
	}
}

func (h *PostHandler) SchedulePost(c *fiber.Ctx) error {
	var req transfer.SchedulePostRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse request body")
	}

	post, err := h.s.SchedulePost(c.Context(), &req)
	if err != nil {
		return respondError(c, err)
	}
	h.enqueue(c, post)

	return c.Status(fiber.StatusCreated).JSON(post)
}

func (h *PostHandler) BulkSchedule(c *fiber.Ctx) error {
	var req transfer.BulkScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse request body")
	}

	n, err := h.s.BulkSchedule(c.Context(), req.Posts)
	if err != nil {
		return respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"created": n,
	})
}

func (h *PostHandler) Reschedule(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid post id")
	}
	var req transfer.RescheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse request body")
	}

	post, err := h.s.Reschedule(c.Context(), int64(id), req.ScheduledTime)
	if err != nil {
		return respondError(c, err)
	}
	h.enqueue(c, post)

	return c.Status(fiber.StatusOK).JSON(post)
}

func (h *PostHandler) Cancel(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid post id")
	}

	if err := h.s.Cancel(c.Context(), int64(id)); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusOK)
}

func (h *PostHandler) ListPosts(c *fiber.Ctx) error {
	from, err := queryTime(c, "from")
	if err != nil {
		return badRequest(c, err.Error())
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return badRequest(c, err.Error())
	}

	filter := models.PostFilter{
		From:      from,
		To:        to,
		Platforms: queryList(c, "platform"),
		Limit:     c.QueryInt("limit", 0),
	}
	for _, st := range queryList(c, "status") {
		filter.Statuses = append(filter.Statuses, models.PostStatus(st))
	}

	posts, err := h.s.List(c.Context(), filter)
	if err != nil {
		return respondError(c, err)
	}
	if posts == nil {
		posts = []*models.ScheduledPost{}
	}
	return c.Status(fiber.StatusOK).JSON(posts)
}

func (h *PostHandler) Gaps(c *fiber.Ctx) error {
	from, err := queryTime(c, "from")
	if err != nil || from == nil {
		return badRequest(c, "from is required")
	}
	to, err := queryTime(c, "to")
	if err != nil || to == nil {
		return badRequest(c, "to is required")
	}

	gaps, err := h.s.Gaps(c.Context(), *from, *to)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"gaps": gaps,
	})
}

func (h *PostHandler) PublishBatch(c *fiber.Ctx) error {
	var req transfer.PublishBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse request body")
	}
	if len(req.PostIDs) == 0 {
		return respondError(c, service.ErrEmptyBatch)
	}

	results := h.publisher.PublishBatch(c.Context(), req.PostIDs)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"results": results,
	})
}

func (h *PostHandler) PublishDirect(c *fiber.Ctx) error {
	var req transfer.DirectPublishRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Unable to parse request body")
	}
	if len(req.Platforms) == 0 || req.AssetURL == "" {
		return badRequest(c, "platforms and asset_url are required")
	}

	result := h.publisher.PublishToMultiplePlatforms(c.Context(), req.Platforms, &adapter.PublishRequest{
		AssetURL:     req.AssetURL,
		Title:        req.Title,
		Caption:      req.Caption,
		Hashtags:     req.Hashtags,
		ThumbnailURL: req.ThumbnailURL,
		LongForm:     req.LongForm,
	})
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *PostHandler) Metrics(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid post id")
	}

	metrics, err := h.publisher.FetchMetrics(c.Context(), int64(id))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(metrics)
}

func (h *PostHandler) Comments(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return badRequest(c, "Invalid post id")
	}

	comments, err := h.publisher.FetchComments(c.Context(), int64(id), c.QueryInt("limit", 0))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(comments)
}
