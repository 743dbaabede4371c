package handlers

import "github.com/gofiber/fiber/v2"

// Register mounts the scheduling API on r.
func Register(r fiber.Router, posts *PostHandler, schedule *ScheduleHandler) {
	r.Post("/posts", posts.SchedulePost)
	r.Post("/posts/bulk", posts.BulkSchedule)
	r.Post("/posts/publish", posts.PublishBatch)
	r.Get("/posts", posts.ListPosts)
	r.Get("/posts/gaps", posts.Gaps)
	r.Put("/posts/:id/reschedule", posts.Reschedule)
	r.Post("/posts/:id/cancel", posts.Cancel)
	r.Get("/posts/:id/metrics", posts.Metrics)
	r.Get("/posts/:id/comments", posts.Comments)
	r.Post("/publish", posts.PublishDirect)

	r.Get("/inventory", schedule.Inventory)
	r.Post("/schedule/plan", schedule.Plan)
	r.Post("/schedule/replan", schedule.Replan)
}
