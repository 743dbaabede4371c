package service

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// newIdempotencyKey is generated once per post and stays stable across
// retries.
func newIdempotencyKey() (string, error) {
	return gonanoid.New()
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func ptr[T any](v T) *T {
	return &v
}
