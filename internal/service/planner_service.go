package service

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"sort"
	"strconv"
	"time"

	config "github.com/IsaiahDupree/MediaPoster-sub001/configs"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/repository"
)

type Bucket string

const (
	BucketShortForm Bucket = "short_form"
	BucketLongForm  Bucket = "long_form"
)

const (
	PlanModePreview     = "preview"
	PlanModeFull        = "full"
	PlanModeIncremental = "incremental"
)

// SchedulePlan describes the cadence chosen for one bucket. It is never
// persisted.
type SchedulePlan struct {
	Bucket           Bucket    `json:"bucket"`
	InventoryCount   int       `json:"inventory_count"`
	Rate             *big.Rat  `json:"-"`
	PostsPerDay      float64   `json:"posts_per_day"`
	HorizonDays      int       `json:"horizon_days"`
	WindowStart      time.Time `json:"window_start"`
	WindowEnd        time.Time `json:"window_end"`
	CanExtendHorizon bool      `json:"can_extend_horizon"`
	Emitted          int       `json:"emitted"`
	Backlog          int       `json:"backlog"`
}

type PlanResult struct {
	Mode      string                  `json:"mode"`
	PlannedAt time.Time               `json:"planned_at"`
	Plans     []*SchedulePlan         `json:"plans"`
	Posts     []*models.ScheduledPost `json:"posts"`
	Created   int                     `json:"created"`
}

type PlannerService interface {
	Plan(ctx context.Context) (*PlanResult, error)
	GenerateSchedule(ctx context.Context) (*PlanResult, error)
	UpdateScheduleOnNewContent(ctx context.Context) (*PlanResult, error)
}

type plannerService struct {
	inventory InventoryService
	posts     repository.ScheduledPostRepository
	cfg       config.SchedulerConfig
	loc       *time.Location
	minRate   *big.Rat
	maxRate   *big.Rat
	now       func() time.Time
}

func NewPlannerService(
	inventory InventoryService,
	posts repository.ScheduledPostRepository,
	cfg config.SchedulerConfig) (PlannerService, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	minRate, err := ratFromFloat(cfg.MinPostsPerDay)
	if err != nil {
		return nil, err
	}
	maxRate, err := ratFromFloat(cfg.MaxPostsPerDay)
	if err != nil {
		return nil, err
	}
	return &plannerService{
		inventory: inventory,
		posts:     posts,
		cfg:       cfg,
		loc:       loc,
		minRate:   minRate,
		maxRate:   maxRate,
		now:       time.Now,
	}, nil
}

// Plan computes the full-horizon schedule without writing anything.
func (p *plannerService) Plan(ctx context.Context) (*PlanResult, error) {
	now := p.now()
	return p.planWindow(ctx, PlanModePreview, now, p.firstDay(now), p.cfg.HorizonDays)
}

func (p *plannerService) GenerateSchedule(ctx context.Context) (*PlanResult, error) {
	now := p.now()
	result, err := p.planWindow(ctx, PlanModeFull, now, p.firstDay(now), p.cfg.HorizonDays)
	if err != nil {
		return nil, err
	}
	return p.persist(ctx, result)
}

// UpdateScheduleOnNewContent extends an existing schedule instead of
// rebuilding it: only days after the last active post are planned, and only
// when a fresh plan over current inventory reaches past them. The fresh end
// includes any horizon extension that plan would take.
func (p *plannerService) UpdateScheduleOnNewContent(ctx context.Context) (*PlanResult, error) {
	latest, err := p.posts.LatestActiveScheduledTime(ctx)
	if err != nil {
		return nil, err
	}
	if latest == nil {
		return p.GenerateSchedule(ctx)
	}

	now := p.now()
	start := p.firstDay(now)
	fresh, err := p.planWindow(ctx, PlanModePreview, now, start, p.cfg.HorizonDays)
	if err != nil {
		return nil, err
	}
	freshEnd := start.AddDate(0, 0, p.cfg.HorizonDays)
	for _, plan := range fresh.Plans {
		if plan.WindowEnd.After(freshEnd) {
			freshEnd = plan.WindowEnd
		}
	}

	tailStart := startOfDay(*latest, p.loc).AddDate(0, 0, 1)
	if tailStart.Before(start) {
		tailStart = start
	}
	if !freshEnd.After(tailStart) {
		slog.Info("incremental replan not needed", "latest_scheduled", latest.Format(time.RFC3339))
		return &PlanResult{Mode: PlanModeIncremental, PlannedAt: now}, nil
	}

	result, err := p.planWindow(ctx, PlanModeIncremental, now, tailStart, daysBetween(tailStart, freshEnd))
	if err != nil {
		return nil, err
	}
	return p.persist(ctx, result)
}

func (p *plannerService) persist(ctx context.Context, result *PlanResult) (*PlanResult, error) {
	if len(result.Posts) == 0 {
		slog.Info("no posts to schedule", "mode", result.Mode)
		return result, nil
	}
	created, err := p.posts.BulkCreate(ctx, result.Posts)
	if err != nil {
		return nil, fmt.Errorf("saving %s schedule: %w", result.Mode, err)
	}
	result.Created = created
	slog.Info("schedule saved", "mode", result.Mode, "created", created)
	return result, nil
}

// firstDay is local midnight of the day after now, so every slot lands after
// the planning instant.
func (p *plannerService) firstDay(now time.Time) time.Time {
	return startOfDay(now, p.loc).AddDate(0, 0, 1)
}

func (p *plannerService) planWindow(ctx context.Context, mode string, now, start time.Time, horizon int) (*PlanResult, error) {
	inv, err := p.inventory.Scan(ctx)
	if err != nil {
		return nil, err
	}

	longFormPlatforms := p.cfg.LongFormPlatforms
	if len(longFormPlatforms) == 0 {
		longFormPlatforms = p.cfg.Platforms
	}

	result := &PlanResult{Mode: mode, PlannedAt: now}
	buckets := []struct {
		bucket    Bucket
		items     []*models.ContentItem
		hours     []int
		platforms []string
	}{
		{BucketShortForm, inv.ShortForm, p.cfg.ShortFormHours, p.cfg.Platforms},
		{BucketLongForm, inv.LongForm, p.cfg.LongFormHours, longFormPlatforms},
	}
	for _, b := range buckets {
		plan, posts, err := p.planBucket(b.bucket, b.items, b.hours, b.platforms, start, horizon)
		if err != nil {
			return nil, err
		}
		result.Plans = append(result.Plans, plan)
		result.Posts = append(result.Posts, posts...)
	}

	sort.SliceStable(result.Posts, func(i, j int) bool {
		return result.Posts[i].ScheduledTime.Before(result.Posts[j].ScheduledTime)
	})
	return result, nil
}

// planBucket spreads items over the window at a clamped daily rate. The
// fractional part of the rate is carried between days in an exact rational
// accumulator, so after d days exactly floor(d*rate) items have been placed.
func (p *plannerService) planBucket(
	bucket Bucket,
	items []*models.ContentItem,
	hours []int,
	platforms []string,
	start time.Time,
	horizon int) (*SchedulePlan, []*models.ScheduledPost, error) {
	count := len(items)
	plan := &SchedulePlan{
		Bucket:         bucket,
		InventoryCount: count,
		Rate:           new(big.Rat),
		HorizonDays:    horizon,
		WindowStart:    start,
		WindowEnd:      start.AddDate(0, 0, horizon),
	}
	if count == 0 || horizon <= 0 || len(hours) == 0 || len(platforms) == 0 {
		plan.Backlog = count
		return plan, nil, nil
	}

	rate := big.NewRat(int64(count), int64(horizon))
	if rate.Cmp(p.minRate) < 0 {
		rate.Set(p.minRate)
	} else if rate.Cmp(p.maxRate) > 0 {
		rate.Set(p.maxRate)
	}

	days := horizon
	needed := ceilRat(new(big.Rat).Quo(big.NewRat(int64(count), 1), rate))
	if needed > int64(horizon) && needed <= 2*int64(horizon) {
		days = int(needed)
		plan.CanExtendHorizon = true
	}

	var posts []*models.ScheduledPost
	acc := new(big.Rat)
	next := 0
	for day := 0; day < days && next < count; day++ {
		acc.Add(acc, rate)
		n := floorRat(acc)
		acc.Sub(acc, big.NewRat(n, 1))
		if remaining := int64(count - next); n > remaining {
			n = remaining
		}

		slotHours := make([]int, n)
		for slot := range slotHours {
			slotHours[slot] = hours[(day+slot)%len(hours)]
		}
		sort.Ints(slotHours)

		date := start.AddDate(0, 0, day)
		for _, hour := range slotHours {
			item := items[next]
			next++
			at := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, p.loc)
			ref := item.Ref()
			for _, platform := range platforms {
				key, err := newIdempotencyKey()
				if err != nil {
					return nil, nil, err
				}
				posts = append(posts, &models.ScheduledPost{
					ClipID:         ref.ClipID,
					VariantID:      ref.VariantID,
					Platform:       platform,
					ScheduledTime:  at,
					Status:         models.PostStatusScheduled,
					IdempotencyKey: key,
				})
			}
		}
	}

	plan.Rate = rate
	plan.PostsPerDay, _ = rate.Float64()
	plan.HorizonDays = days
	plan.WindowEnd = start.AddDate(0, 0, days)
	plan.Emitted = next
	plan.Backlog = count - next

	slog.Info("bucket planned",
		"bucket", bucket,
		"inventory", count,
		"posts_per_day", rate.FloatString(3),
		"days", days,
		"extended", plan.CanExtendHorizon,
		"emitted", plan.Emitted,
		"backlog", plan.Backlog,
	)
	return plan, posts, nil
}

// ratFromFloat goes through the shortest decimal form so 0.1 becomes 1/10
// rather than its binary approximation.
func ratFromFloat(f float64) (*big.Rat, error) {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(f, 'f', -1, 64))
	if !ok {
		return nil, fmt.Errorf("invalid rate %v", f)
	}
	return r, nil
}

func floorRat(r *big.Rat) int64 {
	return new(big.Int).Quo(r.Num(), r.Denom()).Int64()
}

func ceilRat(r *big.Rat) int64 {
	q, m := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	if m.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q.Int64()
}

// daysBetween counts calendar days from a to b, ignoring DST shifts.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
