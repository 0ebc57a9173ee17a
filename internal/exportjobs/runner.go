package exportjobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"citai-analytics-service/internal/analytics"
	"citai-analytics-service/internal/export"
	"citai-analytics-service/internal/queue"
	"citai-analytics-service/internal/reports"
	"citai-analytics-service/internal/storage"
	"citai-analytics-service/internal/store"

	"go.uber.org/zap"
)

type SnapshotBuilder interface {
	Build(ctx context.Context, restaurantID string, tr analytics.TimeRange) (*reports.Snapshot, error)
}

type Exporter interface {
	Export(ctx context.Context, format string, data *analytics.Data, info analytics.RestaurantInfo, r export.DateRange, opts export.Options) (*export.File, error)
}

// Archive stores finished reports and hands out download links.
type Archive interface {
	PutObject(ctx context.Context, key string, body []byte, contentType string, cacheControl string) (string, error)
	PresignGetObject(ctx context.Context, key string, filename string, expires time.Duration) (string, error)
}

// Notifier announces job transitions to connected dashboards.
type Notifier interface {
	NotifyExportStatus(restaurantID string, job Job)
}

const reportCacheControl = "private, max-age=0, no-store"

type Runner struct {
	Store         StatusStore
	Snapshots     SnapshotBuilder
	Exporter      Exporter
	Archive       Archive
	Notifier      Notifier
	ArchivePrefix string
	MaxAttempts   int
	Now           func() time.Time
	Logger        *zap.Logger
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// maxAttempts defaults to 3 so a job always reaches a final state.
func (r *Runner) maxAttempts() int {
	if r.MaxAttempts > 0 {
		return r.MaxAttempts
	}
	return 3
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

// HandleMessage is the queue consumer entry point.
func (r *Runner) HandleMessage(ctx context.Context, body []byte) error {
	var msg queue.ExportJobMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return queue.Permanent(err)
	}
	if msg.JobID == "" {
		return queue.Permanent(errors.New("missing job id"))
	}
	return r.Process(ctx, msg.JobID)
}

// isPermanent reports failures that another attempt would repeat.
func isPermanent(err error) bool {
	return errors.Is(err, export.ErrAnalyticsRequired) ||
		errors.Is(err, export.ErrUnsupportedFormat) ||
		errors.Is(err, store.ErrRestaurantNotFound) ||
		errors.Is(err, ErrJobNotFound) ||
		errors.Is(err, ErrNoArchive) ||
		errors.Is(err, ErrInvalidJob)
}

// Process generates, archives and announces one job. Finished jobs are left
// untouched so redelivered messages are harmless.
func (r *Runner) Process(ctx context.Context, jobID string) error {
	job, err := r.Store.Get(ctx, jobID)
	if err != nil {
		if errors.Is(err, ErrJobNotFound) {
			return queue.Permanent(err)
		}
		return err
	}
	if job.Finished() {
		return nil
	}

	job.Attempts++
	job.Status = StatusProcessing
	job.Error = ""
	if err := r.save(ctx, job); err != nil {
		return err
	}

	file, err := r.generate(ctx, job)
	if err == nil {
		err = r.archive(ctx, job, file)
	}
	if err != nil {
		return r.fail(ctx, job, err)
	}

	job.Status = StatusDone
	if err := r.save(ctx, job); err != nil {
		return err
	}
	r.logger().Info("export job done",
		zap.String("jobId", job.ID),
		zap.String("restaurantId", job.RestaurantID),
		zap.String("format", string(job.Format)),
		zap.Int("size", job.Size),
	)
	return nil
}

func (r *Runner) generate(ctx context.Context, job *Job) (*export.File, error) {
	snap, err := r.Snapshots.Build(ctx, job.RestaurantID, job.TimeRange)
	if err != nil {
		return nil, fmt.Errorf("load analytics: %w", err)
	}
	dateRange := snap.Range
	if job.From != nil {
		dateRange.From = *job.From
	}
	if job.To != nil {
		dateRange.To = *job.To
	}
	if dateRange.To.Before(dateRange.From) {
		return nil, fmt.Errorf("%w: to must not be before from", ErrInvalidJob)
	}
	return r.Exporter.Export(ctx, string(job.Format), snap.Data, snap.Info, dateRange, job.Options)
}

func (r *Runner) archive(ctx context.Context, job *Job, file *export.File) error {
	if r.Archive == nil {
		return ErrNoArchive
	}
	key := storage.ReportKey(r.ArchivePrefix, job.RestaurantID, job.ID, file.Filename)
	if _, err := r.Archive.PutObject(ctx, key, file.Data, file.ContentType, reportCacheControl); err != nil {
		return fmt.Errorf("archive report: %w", err)
	}
	job.ObjectKey = key
	job.Filename = file.Filename
	job.ContentType = file.ContentType
	job.Size = len(file.Data)
	return nil
}

// fail records err on the job. The returned error tells the consumer whether
// to retry.
func (r *Runner) fail(ctx context.Context, job *Job, cause error) error {
	final := isPermanent(cause) || job.Attempts >= r.maxAttempts()
	r.logger().Warn("export job failed",
		zap.String("jobId", job.ID),
		zap.Int("attempt", job.Attempts),
		zap.Bool("final", final),
		zap.Error(cause),
	)

	if !final {
		job.Status = StatusQueued
		job.Error = cause.Error()
		if err := r.save(ctx, job); err != nil {
			return err
		}
		return cause
	}

	job.Status = StatusFailed
	job.Error = cause.Error()
	if err := r.save(ctx, job); err != nil {
		return err
	}
	return queue.Permanent(cause)
}

func (r *Runner) save(ctx context.Context, job *Job) error {
	job.UpdatedAt = r.now()
	if err := r.Store.Save(ctx, job); err != nil {
		return fmt.Errorf("save job: %w", err)
	}
	if r.Notifier != nil {
		r.Notifier.NotifyExportStatus(job.RestaurantID, *job)
	}
	return nil
}
