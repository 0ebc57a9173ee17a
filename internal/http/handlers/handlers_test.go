package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"citai-analytics-service/internal/analytics"
	"citai-analytics-service/internal/config"
	"citai-analytics-service/internal/export"
	"citai-analytics-service/internal/exportjobs"
	"citai-analytics-service/internal/middleware"
	"citai-analytics-service/internal/reports"
	"citai-analytics-service/internal/store"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var fixedNow = time.Date(2024, time.March, 14, 18, 30, 0, 0, time.UTC)

type fakeSnapshots struct {
	err         error
	invalidated []string
	lastRange   analytics.TimeRange
}

func (f *fakeSnapshots) Build(_ context.Context, restaurantID string, tr analytics.TimeRange) (*reports.Snapshot, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.lastRange = tr
	return &reports.Snapshot{
		RestaurantID: restaurantID,
		TimeRange:    tr,
		Data: &analytics.Data{
			Revenue: analytics.Period{Total: 120, Growth: 20},
			Orders:  analytics.Period{Total: 4},
		},
		Info:        analytics.RestaurantInfo{Name: "Joe's Cafe"},
		Range:       export.DateRange{From: time.Date(2024, time.March, 8, 0, 0, 0, 0, time.UTC), To: fixedNow},
		Timezone:    "UTC",
		GeneratedAt: fixedNow,
	}, nil
}

func (f *fakeSnapshots) Invalidate(restaurantID string) {
	f.invalidated = append(f.invalidated, restaurantID)
}

type fakeJobs struct {
	requests []exportjobs.Request
	views    map[string]exportjobs.View
}

func (f *fakeJobs) Submit(_ context.Context, req exportjobs.Request) (*exportjobs.Job, error) {
	job, err := exportjobs.NewJob(req, fixedNow)
	if err != nil {
		return nil, err
	}
	f.requests = append(f.requests, req)
	return job, nil
}

func (f *fakeJobs) Get(_ context.Context, restaurantID, jobID string) (*exportjobs.View, error) {
	view, ok := f.views[restaurantID+"/"+jobID]
	if !ok {
		return nil, exportjobs.ErrJobNotFound
	}
	return &view, nil
}

type fakeArchive struct {
	keys []string
}

func (f *fakeArchive) PutObject(_ context.Context, key string, _ []byte, _ string, _ string) (string, error) {
	f.keys = append(f.keys, key)
	return "https://cdn.example.com/" + key, nil
}

func (f *fakeArchive) PresignGetObject(_ context.Context, key string, _ string, _ time.Duration) (string, error) {
	return "https://signed.example.com/" + key, nil
}

func newHandler(snaps *fakeSnapshots, jobs *fakeJobs) *Handler {
	exporter := export.NewService(export.NewExcelizeWriter(), nil, nil)
	exporter.Now = func() time.Time { return fixedNow }
	return &Handler{
		Snapshots: snaps,
		Exporter:  exporter,
		Jobs:      jobs,
		Logger:    zap.NewNop(),
		Config:    config.Config{ExportArchivePrefix: "reports", ExportDownloadURLTTL: time.Minute},
		Now:       func() time.Time { return fixedNow },
	}
}

func router(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := middleware.WithAuthContext(req.Context(), &middleware.AuthContext{UserID: "u1", RestaurantID: "r1", IsOwner: true})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Get("/analytics", h.MerchantAnalytics)
	r.Get("/analytics/export", h.MerchantAnalyticsExport)
	r.Post("/analytics/exports", h.CreateExportJob)
	r.Get("/analytics/exports/{jobId}", h.GetExportJob)
	return r
}

func do(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var payload map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	}
	return rec, payload
}

func TestMerchantAnalytics(t *testing.T) {
	snaps := &fakeSnapshots{}
	h := router(newHandler(snaps, &fakeJobs{}))

	rec, body := do(t, h, http.MethodGet, "/analytics?timeRange=30d&fresh=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, analytics.RangeThirtyDays, snaps.lastRange)
	assert.Equal(t, []string{"r1"}, snaps.invalidated)

	meta := body["meta"].(map[string]any)
	assert.Equal(t, "30d", meta["timeRange"])
	assert.InDelta(t, 30.0, meta["averageOrderValue"], 0.001)
	assert.NotEmpty(t, meta["insights"])

	rec, body = do(t, h, http.MethodGet, "/analytics?timeRange=1y", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])
}

func TestMerchantAnalyticsErrors(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		want string
	}{
		{name: "missing restaurant", err: store.ErrRestaurantNotFound, code: http.StatusNotFound, want: "RESTAURANT_NOT_FOUND"},
		{name: "database", err: errors.New("conn refused"), code: http.StatusInternalServerError, want: "INTERNAL_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := router(newHandler(&fakeSnapshots{err: tc.err}, &fakeJobs{}))
			rec, body := do(t, h, http.MethodGet, "/analytics", "")
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.want, body["error"])
		})
	}
}

func TestMerchantAnalyticsRequiresRestaurant(t *testing.T) {
	h := newHandler(&fakeSnapshots{}, &fakeJobs{})
	rec := httptest.NewRecorder()
	h.MerchantAnalytics(rec, httptest.NewRequest(http.MethodGet, "/analytics", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMerchantAnalyticsExportDownload(t *testing.T) {
	archive := &fakeArchive{}
	handler := newHandler(&fakeSnapshots{}, &fakeJobs{})
	handler.Archive = archive
	h := router(handler)

	rec, _ := do(t, h, http.MethodGet, "/analytics/export?format=csv&from=2024-01-01&to=2024-01-31&archive=true", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv;charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="joe-s-cafe-analytics_2024-01-01_to_2024-01-31.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Contains(t, rec.Body.String(), "EXECUTIVE SUMMARY")

	require.Len(t, archive.keys, 1)
	assert.True(t, strings.HasPrefix(archive.keys[0], "reports/r1/"))
	assert.Equal(t, "https://signed.example.com/"+archive.keys[0], rec.Header().Get("X-Report-Url"))
}

func TestMerchantAnalyticsExportValidation(t *testing.T) {
	h := router(newHandler(&fakeSnapshots{}, &fakeJobs{}))

	cases := []struct {
		name   string
		target string
		code   int
		want   string
	}{
		{name: "format", target: "/analytics/export?format=docx", code: http.StatusBadRequest, want: "UNSUPPORTED_FORMAT"},
		{name: "date", target: "/analytics/export?format=pdf&from=01/02/2024", code: http.StatusBadRequest, want: "VALIDATION_ERROR"},
		{name: "inverted", target: "/analytics/export?format=pdf&from=2024-02-01&to=2024-01-01", code: http.StatusBadRequest, want: "VALIDATION_ERROR"},
		{name: "from after default to", target: "/analytics/export?format=pdf&from=2099-01-01", code: http.StatusBadRequest, want: "VALIDATION_ERROR"},
		{name: "to before default from", target: "/analytics/export?format=pdf&to=2024-01-01", code: http.StatusBadRequest, want: "VALIDATION_ERROR"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := do(t, h, http.MethodGet, tc.target, "")
			assert.Equal(t, tc.code, rec.Code)
			assert.Equal(t, tc.want, body["error"])
		})
	}
}

func TestExportOptionsFromQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?includeRawData=true&includeCharts=false&includeInsights=nope", nil)
	opts := exportOptionsFromQuery(req)
	assert.True(t, opts.IncludeRawData)
	assert.False(t, opts.IncludeCharts)
	assert.True(t, opts.IncludeInsights)
	assert.True(t, opts.IncludeTopItems)
}

func TestCreateExportJob(t *testing.T) {
	jobs := &fakeJobs{}
	h := router(newHandler(&fakeSnapshots{}, jobs))

	rec, body := do(t, h, http.MethodPost, "/analytics/exports", `{"format":"xlsx","timeRange":"90d","from":"2024-01-01","options":{"includeTopItems":true}}`)
	require.Equal(t, http.StatusAccepted, rec.Code)
	data := body["data"].(map[string]any)
	assert.Len(t, data["jobId"], 36)
	assert.Equal(t, "queued", data["status"])

	require.Len(t, jobs.requests, 1)
	req := jobs.requests[0]
	assert.Equal(t, "r1", req.RestaurantID)
	assert.Equal(t, "u1", req.RequestedBy)
	assert.True(t, req.Options.IncludeTopItems)
	assert.False(t, req.Options.IncludeCharts)
	require.NotNil(t, req.From)
	assert.Nil(t, req.To)

	rec, body = do(t, h, http.MethodPost, "/analytics/exports", `{"format":"docx"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "UNSUPPORTED_FORMAT", body["error"])

	rec, body = do(t, h, http.MethodPost, "/analytics/exports", `{"format":"pdf","timeRange":"1y"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", body["error"])

	rec, _ = do(t, h, http.MethodPost, "/analytics/exports", `{`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetExportJob(t *testing.T) {
	jobs := &fakeJobs{views: map[string]exportjobs.View{
		"r1/job-1": {ID: "job-1", Status: exportjobs.StatusDone, DownloadURL: "https://signed.example.com/x"},
	}}
	h := router(newHandler(&fakeSnapshots{}, jobs))

	rec, body := do(t, h, http.MethodGet, "/analytics/exports/job-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	data := body["data"].(map[string]any)
	assert.Equal(t, "done", data["status"])
	assert.Equal(t, "https://signed.example.com/x", data["downloadUrl"])

	rec, body = do(t, h, http.MethodGet, "/analytics/exports/job-2", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "EXPORT_NOT_FOUND", body["error"])
}
