package job

import (
	"context"
	"log/slog"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/service"
)

type ReplanJob struct {
	planner service.PlannerService
}

func NewReplanJob(planner service.PlannerService) *ReplanJob {
	return &ReplanJob{planner: planner}
}

// Replan extends the active schedule with content that arrived since the
// last run.
func (j *ReplanJob) Replan() {
	result, err := j.planner.UpdateScheduleOnNewContent(context.Background())
	if err != nil {
		slog.Info(err.Error())
		return
	}
	slog.Info("replan finished", "mode", result.Mode, "created", result.Created)
}
