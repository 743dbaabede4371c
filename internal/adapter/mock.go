package adapter

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Mock is an in-process adapter. By default every publish succeeds; set
// PublishFunc to script failures or panics.
type Mock struct {
	platform    string
	PublishFunc func(ctx context.Context, req *PublishRequest) (*PublishResult, error)

	mu    sync.Mutex
	calls []PublishRequest
}

func NewMock(platform string) *Mock {
	return &Mock{platform: platform}
}

func (m *Mock) Platform() string { return m.platform }

func (m *Mock) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	m.mu.Lock()
	m.calls = append(m.calls, *req)
	n := len(m.calls)
	m.mu.Unlock()

	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, req)
	}
	id := fmt.Sprintf("%s-%d", m.platform, n)
	return &PublishResult{
		Success:        true,
		PlatformPostID: id,
		PostURL:        fmt.Sprintf("https://%s.example/%s", m.platform, id),
	}, nil
}

func (m *Mock) FetchMetrics(_ context.Context, platformPostID string) (*MetricsSnapshot, error) {
	return &MetricsSnapshot{
		Platform:       m.platform,
		PlatformPostID: platformPostID,
		FetchedAt:      time.Now(),
	}, nil
}

func (m *Mock) FetchComments(_ context.Context, _ string, _ int) ([]Comment, error) {
	return []Comment{}, nil
}

func (m *Mock) Calls() []PublishRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PublishRequest, len(m.calls))
	copy(out, m.calls)
	return out
}
