package handlers

import (
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/service"
	"github.com/gofiber/fiber/v2"
)

type ScheduleHandler struct {
	inventory service.InventoryService
	planner   service.PlannerService
	schedule  service.ScheduleService
}

func NewScheduleHandler(inventory service.InventoryService, planner service.PlannerService, schedule service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{inventory: inventory, planner: planner, schedule: schedule}
}

func (h *ScheduleHandler) Inventory(c *fiber.Ctx) error {
	inv, err := h.inventory.Scan(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(inv)
}

// Plan previews the schedule the planner would build now. Nothing is stored.
func (h *ScheduleHandler) Plan(c *fiber.Ctx) error {
	result, err := h.planner.Plan(c.Context())
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}

func (h *ScheduleHandler) Replan(c *fiber.Ctx) error {
	result, err := h.schedule.Replan(c.Context(), c.Query("mode"))
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusOK).JSON(result)
}
