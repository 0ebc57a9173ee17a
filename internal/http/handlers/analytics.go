package handlers

import (
	"net/http"

	"citai-analytics-service/internal/analytics"
	"citai-analytics-service/pkg/response"
)

// MerchantAnalytics serves the dashboard snapshot for the caller's
// restaurant. ?fresh=true drops cached snapshots first.
func (h *Handler) MerchantAnalytics(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireRestaurant(w, r)
	if !ok {
		return
	}

	tr, err := analytics.ParseTimeRange(r.URL.Query().Get("timeRange"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	if queryBool(r, "fresh", false) {
		h.Snapshots.Invalidate(authCtx.RestaurantID)
	}

	snap, err := h.Snapshots.Build(r.Context(), authCtx.RestaurantID, tr)
	if err != nil {
		h.writeExportError(w, err, "analytics snapshot failed")
		return
	}

	response.JSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    snap.Data,
		"meta": map[string]any{
			"restaurant":        snap.Info,
			"timeRange":         snap.TimeRange,
			"range":             snap.Range,
			"timezone":          snap.Timezone,
			"generatedAt":       snap.GeneratedAt,
			"averageOrderValue": snap.Data.AverageOrderValue(),
			"retentionRate":     snap.Data.RetentionRate(),
			"insights":          analytics.DeriveInsights(snap.Data, snap.Info.CurrencyConfig),
		},
	})
}
