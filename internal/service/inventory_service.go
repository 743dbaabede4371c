package service

import (
	"context"
	"log/slog"

	config "github.com/IsaiahDupree/MediaPoster-sub001/configs"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/repository"
)

type Inventory struct {
	ShortForm      []*models.ContentItem `json:"-"`
	LongForm       []*models.ContentItem `json:"-"`
	ShortFormCount int                   `json:"short_form_count"`
	LongFormCount  int                   `json:"long_form_count"`
	Skipped        int                   `json:"skipped"`
}

type InventoryService interface {
	Scan(ctx context.Context) (*Inventory, error)
}

type inventoryService struct {
	content repository.ContentRepository
	cfg     config.SchedulerConfig
}

func NewInventoryService(content repository.ContentRepository, cfg config.SchedulerConfig) InventoryService {
	return &inventoryService{content: content, cfg: cfg}
}

// Scan buckets ready, unscheduled content by duration, oldest first. Items
// between the short- and long-form thresholds fit neither cadence and are
// left out.
func (s *inventoryService) Scan(ctx context.Context) (*Inventory, error) {
	items, err := s.content.ListReadyUnscheduled(ctx)
	if err != nil {
		return nil, err
	}

	inv := &Inventory{}
	for _, item := range items {
		switch {
		case item.Duration <= s.cfg.ShortFormMaxSeconds:
			inv.ShortForm = append(inv.ShortForm, item)
		case item.Duration >= s.cfg.LongFormMinSeconds:
			inv.LongForm = append(inv.LongForm, item)
		default:
			inv.Skipped++
		}
	}
	inv.ShortFormCount = len(inv.ShortForm)
	inv.LongFormCount = len(inv.LongForm)

	slog.Info("inventory scanned",
		"short_form", inv.ShortFormCount,
		"long_form", inv.LongFormCount,
		"skipped", inv.Skipped,
	)
	return inv, nil
}
