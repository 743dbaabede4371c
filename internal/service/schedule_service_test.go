package service

import (
	"context"
	"errors"
	"testing"
	"time"

	config "github.com/IsaiahDupree/MediaPoster-sub001/configs"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/transfer"
)

type stubPlanner struct {
	calls []string
}

func (s *stubPlanner) Plan(context.Context) (*PlanResult, error) {
	s.calls = append(s.calls, PlanModePreview)
	return &PlanResult{Mode: PlanModePreview}, nil
}

func (s *stubPlanner) GenerateSchedule(context.Context) (*PlanResult, error) {
	s.calls = append(s.calls, PlanModeFull)
	return &PlanResult{Mode: PlanModeFull}, nil
}

func (s *stubPlanner) UpdateScheduleOnNewContent(context.Context) (*PlanResult, error) {
	s.calls = append(s.calls, PlanModeIncremental)
	return &PlanResult{Mode: PlanModeIncremental}, nil
}

func newTestScheduleService(t *testing.T) (*scheduleService, *fakePostRepo, *fakeContentRepo, *stubPlanner) {
	t.Helper()
	posts := newFakePostRepo()
	content := newFakeContentRepo(posts)
	planner := &stubPlanner{}
	svc, err := NewScheduleService(posts, content, planner, []string{"tiktok", "instagram", "youtube"}, config.DefaultSchedulerConfig())
	if err != nil {
		t.Fatalf("NewScheduleService: %v", err)
	}
	s := svc.(*scheduleService)
	s.now = func() time.Time { return planningNow }
	return s, posts, content, planner
}

func TestSchedulePost(t *testing.T) {
	s, posts, content, _ := newTestScheduleService(t)
	clip := content.addClip(30, planningNow)
	score := 0.82
	reason := "evening slot performs well"

	post, err := s.SchedulePost(context.Background(), &transfer.SchedulePostRequest{
		ClipID:                  int64Ptr(clip),
		Platform:                "tiktok",
		ScheduledTime:           planningNow.Add(2 * time.Hour),
		IsAIRecommended:         true,
		RecommendationScore:     &score,
		RecommendationReasoning: &reason,
	})
	if err != nil {
		t.Fatalf("SchedulePost: %v", err)
	}
	if post.ID == 0 || post.IdempotencyKey == "" || post.Status != models.PostStatusScheduled {
		t.Fatalf("post = %+v", post)
	}

	stored := posts.get(post.ID)
	if !stored.IsAIRecommended || stored.RecommendationScore == nil || *stored.RecommendationScore != score {
		t.Fatalf("recommendation fields not kept: %+v", stored)
	}
}

func TestSchedulePostValidation(t *testing.T) {
	s, posts, content, _ := newTestScheduleService(t)
	clip := content.addClip(30, planningNow)
	future := planningNow.Add(time.Hour)

	tests := []struct {
		name string
		req  transfer.SchedulePostRequest
		want error
	}{
		{"past", transfer.SchedulePostRequest{ClipID: int64Ptr(clip), Platform: "tiktok", ScheduledTime: planningNow}, ErrScheduledInPast},
		{"unknown platform", transfer.SchedulePostRequest{ClipID: int64Ptr(clip), Platform: "myspace", ScheduledTime: future}, ErrUnknownPlatform},
		{"no ref", transfer.SchedulePostRequest{Platform: "tiktok", ScheduledTime: future}, ErrInvalidContentRef},
		{"two refs", transfer.SchedulePostRequest{ClipID: int64Ptr(clip), VariantID: int64Ptr(3), Platform: "tiktok", ScheduledTime: future}, ErrInvalidContentRef},
		{"missing content", transfer.SchedulePostRequest{VariantID: int64Ptr(42), Platform: "tiktok", ScheduledTime: future}, ErrContentNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.SchedulePost(context.Background(), &tt.req)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if n := len(posts.all()); n != 0 {
		t.Fatalf("%d posts stored after invalid requests", n)
	}
}

func TestBulkScheduleIsAllOrNothing(t *testing.T) {
	s, posts, content, _ := newTestScheduleService(t)
	a := content.addClip(30, planningNow)
	b := content.addClip(30, planningNow)
	future := planningNow.Add(time.Hour)

	_, err := s.BulkSchedule(context.Background(), []transfer.SchedulePostRequest{
		{ClipID: int64Ptr(a), Platform: "tiktok", ScheduledTime: future},
		{ClipID: int64Ptr(b), Platform: "tiktok", ScheduledTime: planningNow.Add(-time.Hour)},
	})
	if !errors.Is(err, ErrScheduledInPast) {
		t.Fatalf("err = %v", err)
	}
	if len(posts.all()) != 0 {
		t.Fatal("partial batch stored")
	}

	n, err := s.BulkSchedule(context.Background(), []transfer.SchedulePostRequest{
		{ClipID: int64Ptr(a), Platform: "tiktok", ScheduledTime: future},
		{ClipID: int64Ptr(b), Platform: "instagram", ScheduledTime: future},
	})
	if err != nil || n != 2 {
		t.Fatalf("BulkSchedule = %d, %v", n, err)
	}
	if posts.bulkCalls != 1 {
		t.Fatalf("bulk calls = %d", posts.bulkCalls)
	}

	if _, err := s.BulkSchedule(context.Background(), nil); !errors.Is(err, ErrEmptyBatch) {
		t.Fatalf("empty batch err = %v", err)
	}
}

func TestReschedule(t *testing.T) {
	s, posts, _, _ := newTestScheduleService(t)
	ctx := context.Background()
	later := planningNow.Add(48 * time.Hour)

	id := posts.seed(&models.ScheduledPost{ClipID: int64Ptr(1), Platform: "tiktok", ScheduledTime: planningNow.Add(time.Hour), Status: models.PostStatusScheduled})
	post, err := s.Reschedule(ctx, id, later)
	if err != nil {
		t.Fatalf("Reschedule: %v", err)
	}
	if !post.ScheduledTime.Equal(later) || !posts.get(id).ScheduledTime.Equal(later) {
		t.Fatalf("time not updated: %+v", post)
	}

	if _, err := s.Reschedule(ctx, id, planningNow.Add(-time.Minute)); !errors.Is(err, ErrScheduledInPast) {
		t.Fatalf("past reschedule err = %v", err)
	}

	failed := posts.seed(&models.ScheduledPost{ClipID: int64Ptr(2), Platform: "tiktok", ScheduledTime: planningNow, Status: models.PostStatusFailed, RetryCount: 1})
	if _, err := s.Reschedule(ctx, failed, later); !errors.Is(err, ErrNotReschedulable) {
		t.Fatalf("failed post reschedule err = %v", err)
	}
	if _, err := s.Reschedule(ctx, 404, later); !errors.Is(err, ErrPostNotFound) {
		t.Fatalf("missing post err = %v", err)
	}
}

func TestCancel(t *testing.T) {
	s, posts, _, _ := newTestScheduleService(t)
	ctx := context.Background()
	due := planningNow.Add(-time.Minute)

	scheduled := posts.seed(&models.ScheduledPost{ClipID: int64Ptr(1), Platform: "tiktok", ScheduledTime: due, Status: models.PostStatusScheduled})
	publishing := posts.seed(&models.ScheduledPost{ClipID: int64Ptr(2), Platform: "tiktok", ScheduledTime: due, Status: models.PostStatusPublishing})
	retry := planningNow.Add(-time.Second)
	failed := posts.seed(&models.ScheduledPost{ClipID: int64Ptr(3), Platform: "tiktok", ScheduledTime: due, Status: models.PostStatusFailed, RetryCount: 1, NextRetryAt: &retry})

	if err := s.Cancel(ctx, scheduled); err != nil {
		t.Fatalf("cancel scheduled: %v", err)
	}
	if got := posts.get(scheduled).Status; got != models.PostStatusCancelled {
		t.Fatalf("status = %s", got)
	}
	due1, _ := posts.ListDue(ctx, planningNow, 10)
	for _, p := range due1 {
		if p.ID == scheduled {
			t.Fatal("cancelled post still due")
		}
	}

	if err := s.Cancel(ctx, publishing); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("cancel publishing err = %v", err)
	}
	if got := posts.get(publishing).Status; got != models.PostStatusPublishing {
		t.Fatalf("publishing post changed to %s", got)
	}

	if err := s.Cancel(ctx, failed); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	retries, _ := posts.ListRetryDue(ctx, planningNow, 3, 10)
	if len(retries) != 0 || posts.get(failed).NextRetryAt != nil {
		t.Fatal("cancelled post still queued for retry")
	}

	if err := s.Cancel(ctx, scheduled); !errors.Is(err, ErrNotCancellable) {
		t.Fatalf("double cancel err = %v", err)
	}
}

func TestGaps(t *testing.T) {
	s, posts, _, _ := newTestScheduleService(t)
	day := func(d, h int) time.Time { return time.Date(2025, 3, d, h, 0, 0, 0, time.UTC) }

	posts.seed(&models.ScheduledPost{ClipID: int64Ptr(1), Platform: "tiktok", ScheduledTime: day(11, 18), Status: models.PostStatusScheduled})
	posts.seed(&models.ScheduledPost{ClipID: int64Ptr(2), Platform: "tiktok", ScheduledTime: day(12, 18), Status: models.PostStatusCancelled})
	posts.seed(&models.ScheduledPost{ClipID: int64Ptr(3), Platform: "tiktok", ScheduledTime: day(13, 9), Status: models.PostStatusPublished})

	gaps, err := s.Gaps(context.Background(), day(11, 0), day(15, 0))
	if err != nil {
		t.Fatalf("Gaps: %v", err)
	}
	want := []time.Time{day(12, 0), day(14, 0)}
	if len(gaps) != len(want) {
		t.Fatalf("gaps = %v, want %v", gaps, want)
	}
	for i := range want {
		if !gaps[i].Equal(want[i]) {
			t.Errorf("gaps[%d] = %v, want %v", i, gaps[i], want[i])
		}
	}

	if _, err := s.Gaps(context.Background(), day(15, 0), day(11, 0)); !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("inverted range err = %v", err)
	}
}

func TestReplanModes(t *testing.T) {
	s, _, _, planner := newTestScheduleService(t)
	ctx := context.Background()

	for _, mode := range []string{PlanModeFull, PlanModeIncremental, ""} {
		if _, err := s.Replan(ctx, mode); err != nil {
			t.Fatalf("Replan(%q): %v", mode, err)
		}
	}
	if _, err := s.Replan(ctx, "sideways"); !errors.Is(err, ErrUnknownPlanMode) {
		t.Fatalf("unknown mode err = %v", err)
	}
	want := []string{PlanModeFull, PlanModeIncremental, PlanModeIncremental}
	for i, m := range want {
		if planner.calls[i] != m {
			t.Fatalf("planner calls = %v, want %v", planner.calls, want)
		}
	}
}
