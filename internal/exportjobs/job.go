package exportjobs

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"citai-analytics-service/internal/analytics"
	"citai-analytics-service/internal/export"

	"github.com/google/uuid"
)

type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusFailed     Status = "failed"
)

var (
	ErrJobNotFound = errors.New("export job not found")
	ErrInvalidJob  = errors.New("invalid export job")
	ErrNoArchive   = errors.New("report archive is not configured")
)

// Job is the persisted state of one asynchronous export.
type Job struct {
	ID           string              `json:"id"`
	RestaurantID string              `json:"restaurantId"`
	RequestedBy  string              `json:"requestedBy,omitempty"`
	Format       export.Format       `json:"format"`
	TimeRange    analytics.TimeRange `json:"timeRange"`
	From         *time.Time          `json:"from,omitempty"`
	To           *time.Time          `json:"to,omitempty"`
	Options      export.Options      `json:"options"`
	Status       Status              `json:"status"`
	Attempts     int                 `json:"attempts"`
	Filename     string              `json:"filename,omitempty"`
	ContentType  string              `json:"contentType,omitempty"`
	Size         int                 `json:"size,omitempty"`
	ObjectKey    string              `json:"objectKey,omitempty"`
	Error        string              `json:"error,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
	UpdatedAt    time.Time           `json:"updatedAt"`
}

func (j *Job) Finished() bool {
	return j.Status == StatusDone || j.Status == StatusFailed
}

// Request describes an export asked for by a dashboard user.
type Request struct {
	RestaurantID string
	RequestedBy  string
	Format       string
	TimeRange    string
	From         *time.Time
	To           *time.Time
	Options      export.Options
}

// NewJob validates req and returns a queued job.
func NewJob(req Request, now time.Time) (*Job, error) {
	if strings.TrimSpace(req.RestaurantID) == "" {
		return nil, fmt.Errorf("%w: restaurant is required", ErrInvalidJob)
	}
	format, err := export.ParseFormat(req.Format)
	if err != nil {
		return nil, err
	}
	tr, err := analytics.ParseTimeRange(req.TimeRange)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if req.From != nil && req.To != nil && req.To.Before(*req.From) {
		return nil, fmt.Errorf("%w: to must not be before from", ErrInvalidJob)
	}

	return &Job{
		ID:           uuid.NewString(),
		RestaurantID: req.RestaurantID,
		RequestedBy:  req.RequestedBy,
		Format:       format,
		TimeRange:    tr,
		From:         req.From,
		To:           req.To,
		Options:      req.Options,
		Status:       StatusQueued,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
