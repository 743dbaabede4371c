package service

import (
	"time"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
)

const DefaultMaxRetries = 3

var defaultBackoffTiers = []time.Duration{5 * time.Minute, 15 * time.Minute, 45 * time.Minute}

// RetryPolicy decides what happens to a post after a failed attempt.
// Ceiling is the total number of attempts a post gets.
type RetryPolicy struct {
	Ceiling int
	Tiers   []time.Duration
}

func NewRetryPolicy(ceiling int) RetryPolicy {
	if ceiling <= 0 {
		ceiling = DefaultMaxRetries
	}
	return RetryPolicy{Ceiling: ceiling, Tiers: defaultBackoffTiers}
}

// Backoff returns the delay before retry number attempt (1-based). Attempts
// past the last tier reuse it.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	tiers := p.Tiers
	if len(tiers) == 0 {
		tiers = defaultBackoffTiers
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > len(tiers) {
		attempt = len(tiers)
	}
	return tiers[attempt-1]
}

// Next takes the retry count after it has been incremented for the failed
// attempt.
func (p RetryPolicy) Next(retryCount int, now time.Time) (models.PostStatus, *time.Time) {
	if retryCount >= p.Ceiling {
		return models.PostStatusMaxRetriesReached, nil
	}
	at := now.Add(p.Backoff(retryCount))
	return models.PostStatusFailed, &at
}
