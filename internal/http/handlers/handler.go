package handlers

import (
	"context"
	"time"

	"citai-analytics-service/internal/analytics"
	"citai-analytics-service/internal/config"
	"citai-analytics-service/internal/export"
	"citai-analytics-service/internal/exportjobs"
	"citai-analytics-service/internal/reports"

	"go.uber.org/zap"
)

type SnapshotBuilder interface {
	Build(ctx context.Context, restaurantID string, tr analytics.TimeRange) (*reports.Snapshot, error)
	Invalidate(restaurantID string)
}

type Exporter interface {
	Export(ctx context.Context, format string, data *analytics.Data, info analytics.RestaurantInfo, r export.DateRange, opts export.Options) (*export.File, error)
}

type ExportJobs interface {
	Submit(ctx context.Context, req exportjobs.Request) (*exportjobs.Job, error)
	Get(ctx context.Context, restaurantID, jobID string) (*exportjobs.View, error)
}

type Handler struct {
	Snapshots SnapshotBuilder
	Exporter  Exporter
	Jobs      ExportJobs
	// Archive is optional; without it ?archive=true is ignored.
	Archive exportjobs.Archive
	Logger  *zap.Logger
	Config  config.Config
	Now     func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}
