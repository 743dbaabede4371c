package adapter

import (
	"context"

	"golang.org/x/time/rate"
)

type rateLimited struct {
	Adapter
	limiter *rate.Limiter
}

// WithRateLimit throttles every remote call made through a. A non-positive
// perSec returns a unchanged.
func WithRateLimit(a Adapter, perSec float64, burst int) Adapter {
	if perSec <= 0 {
		return a
	}
	if burst < 1 {
		burst = 1
	}
	return &rateLimited{Adapter: a, limiter: rate.NewLimiter(rate.Limit(perSec), burst)}
}

func (r *rateLimited) Publish(ctx context.Context, req *PublishRequest) (*PublishResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Adapter.Publish(ctx, req)
}

func (r *rateLimited) FetchMetrics(ctx context.Context, platformPostID string) (*MetricsSnapshot, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Adapter.FetchMetrics(ctx, platformPostID)
}

func (r *rateLimited) FetchComments(ctx context.Context, platformPostID string, limit int) ([]Comment, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return r.Adapter.FetchComments(ctx, platformPostID, limit)
}
