package service

import (
	"errors"
	"fmt"

	"github.com/IsaiahDupree/MediaPoster-sub001/internal/models"
)

var (
	ErrPostNotFound      = errors.New("scheduled post not found")
	ErrContentNotFound   = errors.New("content not found")
	ErrInvalidContentRef = models.ErrInvalidContentRef

	ErrNotClaimable     = errors.New("post is not claimable")
	ErrNotDue           = errors.New("post is not due yet")
	ErrNotCancellable   = errors.New("only scheduled or failed posts can be cancelled")
	ErrNotReschedulable = errors.New("only scheduled posts can be rescheduled")
	ErrNotPublished     = errors.New("post has not been published")
	ErrScheduledInPast  = errors.New("scheduled time must be in the future")
	ErrUnknownPlatform  = errors.New("unknown platform")
	ErrEmptyBatch       = errors.New("no posts given")
	ErrInvalidStatus    = errors.New("invalid post status")
	ErrInvalidRange     = errors.New("invalid date range")
	ErrUnknownPlanMode  = errors.New("unknown replan mode")
)

// DataIntegrityError marks a post that can never publish as stored: it is
// missing, its content reference is malformed, or the content is gone. These
// never consume a retry.
type DataIntegrityError struct {
	PostID int64
	Err    error
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("post %d: %v", e.PostID, e.Err)
}

func (e *DataIntegrityError) Unwrap() error { return e.Err }

func IsDataIntegrity(err error) bool {
	var die *DataIntegrityError
	return errors.As(err, &die)
}
