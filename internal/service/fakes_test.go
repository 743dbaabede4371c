package service

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
	"github.com/IsaiahDupree/MediaPoster-sub001/internal/repository"
)

// fakePostRepo mirrors the guarded updates of the Postgres repository.
type fakePostRepo struct {
	mu        sync.Mutex
	posts     map[int64]*models.ScheduledPost
	nextID    int64
	bulkCalls int
}

func newFakePostRepo() *fakePostRepo {
	return &fakePostRepo{posts: map[int64]*models.ScheduledPost{}}
}

func clonePost(p *models.ScheduledPost) *models.ScheduledPost {
	cp := *p
	return &cp
}

func (r *fakePostRepo) insert(p *models.ScheduledPost) int64 {
	r.nextID++
	cp := clonePost(p)
	cp.ID = r.nextID
	r.posts[cp.ID] = cp
	return cp.ID
}

// seed stores p as is and returns its id.
func (r *fakePostRepo) seed(p *models.ScheduledPost) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(p)
}

func (r *fakePostRepo) get(id int64) *models.ScheduledPost {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.posts[id]; ok {
		return clonePost(p)
	}
	return nil
}

func (r *fakePostRepo) all() []*models.ScheduledPost {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*models.ScheduledPost, 0, len(r.posts))
	for _, p := range r.posts {
		out = append(out, clonePost(p))
	}
	sortPosts(out)
	return out
}

func sortPosts(posts []*models.ScheduledPost) {
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].ScheduledTime.Equal(posts[j].ScheduledTime) {
			return posts[i].ScheduledTime.Before(posts[j].ScheduledTime)
		}
		return posts[i].ID < posts[j].ID
	})
}

func (r *fakePostRepo) GetByID(_ context.Context, id int64) (*models.ScheduledPost, error) {
	return r.get(id), nil
}

func (r *fakePostRepo) Create(_ context.Context, _ *sql.Tx, post *models.ScheduledPost) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insert(post), nil
}

func (r *fakePostRepo) BulkCreate(_ context.Context, posts []*models.ScheduledPost) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bulkCalls++
	for _, p := range posts {
		r.insert(p)
	}
	return len(posts), nil
}

func (r *fakePostRepo) Claim(_ context.Context, id int64, g repository.ClaimGuard) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.Status != g.Status || p.RetryCount != g.RetryCount {
		return false, nil
	}
	switch p.Status {
	case models.PostStatusScheduled:
		if g.DueBy != nil && p.ScheduledTime.After(*g.DueBy) {
			return false, nil
		}
	case models.PostStatusFailed:
		if p.RetryCount >= g.Ceiling {
			return false, nil
		}
		if g.DueBy != nil && (p.NextRetryAt == nil || p.NextRetryAt.After(*g.DueBy)) {
			return false, nil
		}
	default:
		return false, nil
	}
	p.Status = models.PostStatusPublishing
	return true, nil
}

func (r *fakePostRepo) SaveOutcome(_ context.Context, post *models.ScheduledPost, claimedRetryCount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[post.ID]
	if !ok || p.Status != models.PostStatusPublishing || p.RetryCount != claimedRetryCount {
		return fmt.Errorf("saving outcome for post %d: %w", post.ID, repository.ErrStaleState)
	}
	saved := clonePost(post)
	saved.RetryCount = p.RetryCount
	if post.RetryCount > claimedRetryCount {
		saved.RetryCount++
	}
	r.posts[post.ID] = saved
	return nil
}

func (r *fakePostRepo) Cancel(_ context.Context, id int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || !p.Status.Cancellable() {
		return false, nil
	}
	p.Status = models.PostStatusCancelled
	p.NextRetryAt = nil
	return true, nil
}

func (r *fakePostRepo) Reschedule(_ context.Context, id int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.posts[id]
	if !ok || p.Status != models.PostStatusScheduled {
		return false, nil
	}
	p.ScheduledTime = at
	return true, nil
}

func (r *fakePostRepo) List(_ context.Context, f models.PostFilter) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, p := range r.all() {
		if f.From != nil && p.ScheduledTime.Before(*f.From) {
			continue
		}
		if f.To != nil && !p.ScheduledTime.Before(*f.To) {
			continue
		}
		if len(f.Platforms) > 0 && !slices.Contains(f.Platforms, p.Platform) {
			continue
		}
		if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, p.Status) {
			continue
		}
		out = append(out, p)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (r *fakePostRepo) ListDue(_ context.Context, now time.Time, limit int) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, p := range r.all() {
		if p.Status == models.PostStatusScheduled && !p.ScheduledTime.After(now) && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) ListRetryDue(_ context.Context, now time.Time, ceiling, limit int) ([]*models.ScheduledPost, error) {
	var out []*models.ScheduledPost
	for _, p := range r.all() {
		if p.Status == models.PostStatusFailed && p.NextRetryAt != nil && !p.NextRetryAt.After(now) &&
			p.RetryCount < ceiling && len(out) < limit {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakePostRepo) LatestActiveScheduledTime(_ context.Context) (*time.Time, error) {
	var latest *time.Time
	for _, p := range r.all() {
		switch p.Status {
		case models.PostStatusScheduled, models.PostStatusPublishing, models.PostStatusFailed:
			if latest == nil || p.ScheduledTime.After(*latest) {
				t := p.ScheduledTime
				latest = &t
			}
		}
	}
	return latest, nil
}

// fakeContentRepo hides items that a live or published post already uses,
// like the SQL query does.
type fakeContentRepo struct {
	items  []*models.ContentItem
	assets map[string]*models.ContentAsset
	posts  *fakePostRepo

	// getErr fails every asset lookup; onGet runs once before the next one.
	getErr error
	onGet  func()
}

func newFakeContentRepo(posts *fakePostRepo) *fakeContentRepo {
	return &fakeContentRepo{assets: map[string]*models.ContentAsset{}, posts: posts}
}

// addClip registers a ready clip with an asset and returns its id.
func (c *fakeContentRepo) addClip(duration float64, created time.Time) int64 {
	id := int64(len(c.items) + 1)
	item := &models.ContentItem{ID: id, Kind: models.ContentKindClip, Duration: duration, Ready: true, CreatedAt: created}
	c.items = append(c.items, item)
	c.assets[item.Ref().String()] = &models.ContentAsset{
		StorageKey: fmt.Sprintf("clips/%d.mp4", id),
		Duration:   duration,
		Title:      fmt.Sprintf("clip %d", id),
		Caption:    "caption",
		Hashtags:   []string{"clips"},
	}
	return id
}

func (c *fakeContentRepo) ListReadyUnscheduled(context.Context) ([]*models.ContentItem, error) {
	used := map[string]bool{}
	if c.posts != nil {
		for _, p := range c.posts.all() {
			switch p.Status {
			case models.PostStatusScheduled, models.PostStatusPublishing, models.PostStatusFailed, models.PostStatusPublished:
				used[p.ContentRef().String()] = true
			}
		}
	}
	var out []*models.ContentItem
	for _, item := range c.items {
		if !used[item.Ref().String()] {
			out = append(out, item)
		}
	}
	return out, nil
}

func (c *fakeContentRepo) GetAsset(_ context.Context, ref models.ContentRef) (*models.ContentAsset, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}
	if hook := c.onGet; hook != nil {
		c.onGet = nil
		hook()
	}
	if c.getErr != nil {
		return nil, c.getErr
	}
	return c.assets[ref.String()], nil
}

type fakeSigner struct{}

func (fakeSigner) AssetURL(_ context.Context, key string) (string, error) {
	return "https://assets.test/" + key, nil
}

type fixedClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fixedClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fixedClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func int64Ptr(v int64) *int64 { return &v }
