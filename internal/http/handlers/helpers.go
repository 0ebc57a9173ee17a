package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"citai-analytics-service/internal/export"
	"citai-analytics-service/internal/exportjobs"
	"citai-analytics-service/internal/middleware"
	"citai-analytics-service/internal/store"
	"citai-analytics-service/pkg/response"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func zapError(err error) zap.Field {
	return zap.Error(err)
}

func readPathString(r *http.Request, key string) string {
	return strings.TrimSpace(chi.URLParam(r, key))
}

func requireRestaurant(w http.ResponseWriter, r *http.Request) (*middleware.AuthContext, bool) {
	authCtx, ok := middleware.GetAuthContext(r.Context())
	if !ok || authCtx.RestaurantID == "" {
		response.Error(w, http.StatusBadRequest, "RESTAURANT_REQUIRED", "Restaurant context required")
		return nil, false
	}
	return authCtx, true
}

func queryBool(r *http.Request, key string, fallback bool) bool {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

// parseDateParam reads a YYYY-MM-DD query value. Empty values yield nil.
func parseDateParam(r *http.Request, key string) (*time.Time, error) {
	value := strings.TrimSpace(r.URL.Query().Get(key))
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, errors.New(key + " must be YYYY-MM-DD")
	}
	return &t, nil
}

// exportOptionsFromQuery reads the include* flags. Every section is on by
// default except the raw data dump.
func exportOptionsFromQuery(r *http.Request) export.Options {
	return export.Options{
		IncludeCharts:       queryBool(r, "includeCharts", true),
		IncludeRawData:      queryBool(r, "includeRawData", false),
		IncludeInsights:     queryBool(r, "includeInsights", true),
		IncludeTopItems:     queryBool(r, "includeTopItems", true),
		IncludeHourlyData:   queryBool(r, "includeHourlyData", true),
		IncludeCustomerData: queryBool(r, "includeCustomerData", true),
	}
}

// writeExportError maps domain errors onto the JSON error envelope.
func (h *Handler) writeExportError(w http.ResponseWriter, err error, logMsg string) {
	var exportErr *export.Error
	switch {
	case errors.Is(err, export.ErrUnsupportedFormat):
		response.Error(w, http.StatusBadRequest, "UNSUPPORTED_FORMAT", err.Error())
	case errors.Is(err, exportjobs.ErrInvalidJob):
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
	case errors.Is(err, export.ErrAnalyticsRequired):
		response.Error(w, http.StatusUnprocessableEntity, "ANALYTICS_REQUIRED", err.Error())
	case errors.Is(err, store.ErrRestaurantNotFound):
		response.Error(w, http.StatusNotFound, "RESTAURANT_NOT_FOUND", "Restaurant not found")
	case errors.Is(err, exportjobs.ErrNoArchive):
		response.Error(w, http.StatusServiceUnavailable, "EXPORTS_UNAVAILABLE", "Report storage is not configured")
	case errors.Is(err, exportjobs.ErrJobNotFound):
		response.Error(w, http.StatusNotFound, "EXPORT_NOT_FOUND", "Export job not found")
	case errors.As(err, &exportErr):
		h.Logger.Error(logMsg, zapError(err))
		response.Error(w, http.StatusInternalServerError, "EXPORT_FAILED", exportErr.Error())
	default:
		h.Logger.Error(logMsg, zapError(err))
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to load analytics")
	}
}
