package exportjobs

import (
	"context"
	"time"

	"citai-analytics-service/internal/queue"

	"go.uber.org/zap"
)

type Publisher interface {
	PublishExportJob(ctx context.Context, msg queue.ExportJobMessage) error
}

// View is what the dashboard sees for a job.
type View struct {
	ID          string     `json:"id"`
	Status      Status     `json:"status"`
	Format      string     `json:"format"`
	TimeRange   string     `json:"timeRange"`
	Filename    string     `json:"filename,omitempty"`
	Size        int        `json:"size,omitempty"`
	Error       string     `json:"error,omitempty"`
	DownloadURL string     `json:"downloadUrl,omitempty"`
	ExpiresAt   *time.Time `json:"downloadExpiresAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Service accepts export requests and reports their progress. Without a
// Publisher, jobs run in a background goroutine of this process.
type Service struct {
	Store       StatusStore
	Publisher   Publisher
	Runner      *Runner
	DownloadTTL time.Duration
	// RetryDelay is the first pause between in-process attempts; it doubles
	// up to 30s.
	RetryDelay time.Duration
	Now         func() time.Time
	Logger      *zap.Logger
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Submit stores a queued job and hands it to the queue, or to a goroutine
// when no Publisher is set.
func (s *Service) Submit(ctx context.Context, req Request) (*Job, error) {
	if s.Runner != nil && s.Runner.Archive == nil {
		return nil, ErrNoArchive
	}
	job, err := NewJob(req, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.Store.Save(ctx, job); err != nil {
		return nil, err
	}

	if s.Publisher != nil {
		msg := queue.ExportJobMessage{JobID: job.ID, RestaurantID: job.RestaurantID}
		if err := s.Publisher.PublishExportJob(ctx, msg); err != nil {
			job.Status = StatusFailed
			job.Error = "could not enqueue export"
			job.UpdatedAt = s.now()
			_ = s.Store.Save(ctx, job)
			return nil, err
		}
		return job, nil
	}

	if s.Runner == nil {
		return job, nil
	}
	go s.runInline(job.ID)
	return job, nil
}

// runInline retries transient failures itself since no queue will redeliver.
// The runner turns the last allowed attempt into a permanent failure, so the
// loop always ends.
func (s *Service) runInline(id string) {
	delay := s.RetryDelay
	if delay <= 0 {
		delay = 2 * time.Second
	}
	for attempt := 1; ; attempt++ {
		// Detached from the request; the job outlives it.
		runCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		err := s.Runner.Process(runCtx, id)
		cancel()
		if err == nil {
			return
		}
		// The extra round covers store errors that happen before an attempt
		// is counted.
		if queue.IsPermanent(err) || attempt > s.Runner.maxAttempts() {
			s.logger().Warn("inline export job failed", zap.String("jobId", id), zap.Error(err))
			return
		}
		s.logger().Debug("inline export job retrying", zap.String("jobId", id), zap.Duration("delay", delay), zap.Error(err))
		time.Sleep(delay)
		if delay *= 2; delay > 30*time.Second {
			delay = 30 * time.Second
		}
	}
}

// Get returns the job if it belongs to restaurantID. Jobs of other
// restaurants are reported as not found.
func (s *Service) Get(ctx context.Context, restaurantID, jobID string) (*View, error) {
	job, err := s.Store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.RestaurantID != restaurantID {
		return nil, ErrJobNotFound
	}

	view := ViewOf(*job)
	if job.Status == StatusDone && job.ObjectKey != "" && s.Runner != nil && s.Runner.Archive != nil {
		ttl := s.DownloadTTL
		if ttl <= 0 {
			ttl = 15 * time.Minute
		}
		url, err := s.Runner.Archive.PresignGetObject(ctx, job.ObjectKey, job.Filename, ttl)
		if err != nil {
			return nil, err
		}
		expires := s.now().Add(ttl)
		view.DownloadURL = url
		view.ExpiresAt = &expires
	}
	return &view, nil
}

func ViewOf(job Job) View {
	return View{
		ID:        job.ID,
		Status:    job.Status,
		Format:    string(job.Format),
		TimeRange: string(job.TimeRange),
		Filename:  job.Filename,
		Size:      job.Size,
		Error:     job.Error,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}
