package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/adapter"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/service"
	"github.com/gofiber/fiber/v2"
)

func GetOperator(c *fiber.Ctx) string {
	operator, _ := c.Locals("operator").(string)
	return operator
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrPostNotFound),
		errors.Is(err, service.ErrContentNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, service.ErrInvalidContentRef),
		errors.Is(err, service.ErrScheduledInPast),
		errors.Is(err, service.ErrUnknownPlatform),
		errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, service.ErrInvalidStatus),
		errors.Is(err, service.ErrInvalidRange),
		errors.Is(err, service.ErrUnknownPlanMode):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotCancellable),
		errors.Is(err, service.ErrNotReschedulable),
		errors.Is(err, service.ErrNotClaimable),
		errors.Is(err, service.ErrNotPublished):
		return fiber.StatusConflict
	case errors.Is(err, adapter.ErrPlatformNotRegistered):
		return fiber.StatusUnprocessableEntity
	}
	return fiber.StatusInternalServerError
}

func respondError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		slog.Error(err.Error(), "path", c.Path(), "operator", GetOperator(c))
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"error": msg,
	})
}

// parseTime accepts RFC 3339 timestamps and plain dates.
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", value)
	}
	return t, nil
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	value := c.Query(key)
	if value == "" {
		return nil, nil
	}
	t, err := parseTime(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func queryList(c *fiber.Ctx, key string) []string {
	var out []string
	for _, part := range strings.Split(c.Query(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
