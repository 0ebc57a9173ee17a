package reports

import (
	"context"
	"time"

	"citai-analytics-service/internal/analytics"
	"citai-analytics-service/internal/export"

	"go.uber.org/zap"
)

// Source loads the raw rows a snapshot is built from.
type Source interface {
	LoadRestaurant(ctx context.Context, restaurantID string) (analytics.RestaurantInfo, error)
	LoadOrders(ctx context.Context, restaurantID string, since time.Time) ([]analytics.OrderRow, error)
	LoadCategories(ctx context.Context, restaurantID string) ([]analytics.CategoryRow, error)
}

// Snapshot is one aggregated view of a restaurant, ready to serve or export.
type Snapshot struct {
	RestaurantID string
	TimeRange    analytics.TimeRange
	Data         *analytics.Data
	Info         analytics.RestaurantInfo
	Range        export.DateRange
	Timezone     string
	GeneratedAt  time.Time
}

type Builder struct {
	Source             Source
	Now                func() time.Time
	DefaultLocation    *time.Location
	NormalizeClockSkew bool
	CacheTTL           time.Duration
	Logger             *zap.Logger

	cache *snapshotCache
}

func NewBuilder(source Source, defaultTimezone string, normalizeClockSkew bool, cacheTTL time.Duration, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Builder{
		Source:             source,
		DefaultLocation:    loadLocation(defaultTimezone, time.UTC),
		NormalizeClockSkew: normalizeClockSkew,
		CacheTTL:           cacheTTL,
		Logger:             logger,
	}
	b.cache = newSnapshotCache(b.now)
	return b
}

func (b *Builder) now() time.Time {
	if b.Now != nil {
		return b.Now()
	}
	return time.Now()
}

func loadLocation(name string, fallback *time.Location) *time.Location {
	if name == "" {
		return fallback
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return fallback
	}
	return loc
}

// Build loads and aggregates a snapshot. Results are cached for CacheTTL.
func (b *Builder) Build(ctx context.Context, restaurantID string, tr analytics.TimeRange) (*Snapshot, error) {
	key := cacheKey(restaurantID, string(tr))
	if b.CacheTTL > 0 && b.cache != nil {
		if cached, ok := b.cache.get(key); ok {
			return cached, nil
		}
	}

	info, err := b.Source.LoadRestaurant(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	loc := b.DefaultLocation
	if info.Timezone != "" {
		parsed, err := time.LoadLocation(info.Timezone)
		if err != nil {
			b.Logger.Warn("unknown restaurant timezone", zap.String("restaurantId", restaurantID), zap.String("timezone", info.Timezone))
		} else {
			loc = parsed
		}
	}
	if loc == nil {
		loc = time.UTC
	}
	now := b.now().In(loc)

	orders, err := b.Source.LoadOrders(ctx, restaurantID, analytics.FetchWindowStart(tr, now))
	if err != nil {
		return nil, err
	}
	categories, err := b.Source.LoadCategories(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	agg := analytics.Aggregator{
		Now:                func() time.Time { return now },
		Location:           loc,
		NormalizeClockSkew: b.NormalizeClockSkew,
	}
	data := agg.Aggregate(orders, categories, tr)
	display, _ := tr.Windows(now)

	snap := &Snapshot{
		RestaurantID: restaurantID,
		TimeRange:    tr,
		Data:         &data,
		Info:         info,
		Range:        export.DateRange{From: display.Start, To: now},
		Timezone:     loc.String(),
		GeneratedAt:  now,
	}
	if b.CacheTTL > 0 && b.cache != nil {
		b.cache.set(key, snap, b.CacheTTL)
	}
	return snap, nil
}

func (b *Builder) Invalidate(restaurantID string) {
	if b.cache != nil {
		b.cache.invalidate(restaurantID)
	}
}
