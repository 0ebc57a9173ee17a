package reports

import (
	"context"
	"errors"
	"testing"
	"time"

	"citai-analytics-service/internal/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	info       analytics.RestaurantInfo
	infoErr    error
	orders     []analytics.OrderRow
	since      time.Time
	orderCalls int
}

func (f *fakeSource) LoadRestaurant(context.Context, string) (analytics.RestaurantInfo, error) {
	return f.info, f.infoErr
}

func (f *fakeSource) LoadOrders(_ context.Context, _ string, since time.Time) ([]analytics.OrderRow, error) {
	f.orderCalls++
	f.since = since
	return f.orders, nil
}

func (f *fakeSource) LoadCategories(context.Context, string) ([]analytics.CategoryRow, error) {
	return nil, nil
}

func amount(v float64) *float64 { return &v }

func TestBuildAggregatesInRestaurantTimezone(t *testing.T) {
	now := time.Date(2024, time.March, 14, 18, 30, 0, 0, time.UTC)
	src := &fakeSource{
		info: analytics.RestaurantInfo{Name: "Joe's", Timezone: "UTC"},
		orders: []analytics.OrderRow{
			{ID: "a", TotalAmount: amount(17.28), CreatedAt: now.Add(-2 * time.Hour)},
			{ID: "b", TotalAmount: amount(30), CreatedAt: now.Add(-24 * time.Hour)},
		},
	}
	b := NewBuilder(src, "", false, 0, nil)
	b.Now = func() time.Time { return now }

	snap, err := b.Build(context.Background(), "r1", analytics.RangeToday)
	require.NoError(t, err)

	assert.InDelta(t, 17.28, snap.Data.Revenue.Total, 0.0001)
	assert.Equal(t, float64(1), snap.Data.Orders.Total)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), src.since)
	assert.Equal(t, time.Date(2024, time.March, 14, 0, 0, 0, 0, time.UTC), snap.Range.From)
	assert.Equal(t, now, snap.Range.To)
	assert.Equal(t, "UTC", snap.Timezone)
}

func TestBuildCachesPerRange(t *testing.T) {
	src := &fakeSource{info: analytics.RestaurantInfo{Name: "Joe's"}}
	b := NewBuilder(src, "UTC", false, time.Minute, nil)

	_, err := b.Build(context.Background(), "r1", analytics.RangeSevenDays)
	require.NoError(t, err)
	_, err = b.Build(context.Background(), "r1", analytics.RangeSevenDays)
	require.NoError(t, err)
	assert.Equal(t, 1, src.orderCalls)

	_, err = b.Build(context.Background(), "r1", analytics.RangeThirtyDays)
	require.NoError(t, err)
	assert.Equal(t, 2, src.orderCalls)

	b.Invalidate("r1")
	_, err = b.Build(context.Background(), "r1", analytics.RangeSevenDays)
	require.NoError(t, err)
	assert.Equal(t, 3, src.orderCalls)
}

func TestBuildPropagatesLoadErrors(t *testing.T) {
	boom := errors.New("boom")
	b := NewBuilder(&fakeSource{infoErr: boom}, "UTC", false, time.Minute, nil)

	_, err := b.Build(context.Background(), "r1", analytics.RangeToday)
	assert.ErrorIs(t, err, boom)
}

// sinceSource honours the fetch window like the Postgres loader does.
type sinceSource struct {
	fakeSource
}

func (s *sinceSource) LoadOrders(ctx context.Context, id string, since time.Time) ([]analytics.OrderRow, error) {
	all, err := s.fakeSource.LoadOrders(ctx, id, since)
	if err != nil {
		return nil, err
	}
	out := make([]analytics.OrderRow, 0, len(all))
	for _, o := range all {
		if !o.CreatedAt.Before(since) {
			out = append(out, o)
		}
	}
	return out, nil
}

func TestBuildLoadsTrailingWeekAcrossMonthBoundary(t *testing.T) {
	now := time.Date(2024, time.March, 3, 12, 0, 0, 0, time.UTC)
	src := &sinceSource{fakeSource{
		info: analytics.RestaurantInfo{Name: "Joe's", Timezone: "UTC"},
		orders: []analytics.OrderRow{
			{ID: "feb", TotalAmount: amount(10), CreatedAt: time.Date(2024, time.February, 28, 19, 0, 0, 0, time.UTC)},
			{ID: "today", TotalAmount: amount(5), CreatedAt: now.Add(-time.Hour)},
		},
	}}
	b := NewBuilder(src, "UTC", false, 0, nil)
	b.Now = func() time.Time { return now }

	snap, err := b.Build(context.Background(), "r1", analytics.RangeToday)
	require.NoError(t, err)

	assert.InDelta(t, 15.0, snap.Data.Revenue.ThisWeek, 0.0001)
	assert.Equal(t, float64(2), snap.Data.Orders.ThisWeek)
	assert.InDelta(t, 5.0, snap.Data.Revenue.ThisMonth, 0.0001)
	assert.InDelta(t, 5.0, snap.Data.Revenue.Total, 0.0001)
}

func TestBuildWithoutTTLAlwaysReloads(t *testing.T) {
	src := &fakeSource{info: analytics.RestaurantInfo{Name: "Joe's"}}
	b := NewBuilder(src, "UTC", false, 0, nil)

	for i := 0; i < 3; i++ {
		_, err := b.Build(context.Background(), "r1", analytics.RangeSevenDays)
		require.NoError(t, err)
	}
	assert.Equal(t, 3, src.orderCalls)
}
