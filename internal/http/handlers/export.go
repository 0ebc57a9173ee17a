package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"citai-analytics-service/internal/analytics"
	"citai-analytics-service/internal/export"
	"citai-analytics-service/internal/storage"
	"citai-analytics-service/pkg/response"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reportCacheControl = "private, max-age=0, no-store"

// MerchantAnalyticsExport renders a report synchronously and streams it as
// an attachment. With ?archive=true the file is also stored and a signed
// link returned in X-Report-Url.
func (h *Handler) MerchantAnalyticsExport(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireRestaurant(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	format, err := export.ParseFormat(query.Get("format"))
	if err != nil {
		h.writeExportError(w, err, "analytics export failed")
		return
	}
	tr, err := analytics.ParseTimeRange(query.Get("timeRange"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	from, err := parseDateParam(r, "from")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	snap, err := h.Snapshots.Build(r.Context(), authCtx.RestaurantID, tr)
	if err != nil {
		h.writeExportError(w, err, "analytics export snapshot failed")
		return
	}
	dateRange := snap.Range
	if from != nil {
		dateRange.From = *from
	}
	if to != nil {
		dateRange.To = *to
	}
	// from and to each fall back to the snapshot window, so check the merged range.
	if dateRange.To.Before(dateRange.From) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "to must not be before from")
		return
	}

	file, err := h.Exporter.Export(r.Context(), string(format), snap.Data, snap.Info, dateRange, exportOptionsFromQuery(r))
	if err != nil {
		h.writeExportError(w, err, "analytics export failed")
		return
	}

	if queryBool(r, "archive", false) && h.Archive != nil {
		if url, err := h.archiveReport(r, authCtx.RestaurantID, file); err != nil {
			h.Logger.Warn("report archive failed", zap.String("restaurantId", authCtx.RestaurantID), zapError(err))
		} else {
			w.Header().Set("X-Report-Url", url)
		}
	}

	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+strings.ReplaceAll(file.Filename, `"`, "")+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("Cache-Control", reportCacheControl)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(file.Data)
}

func (h *Handler) archiveReport(r *http.Request, restaurantID string, file *export.File) (string, error) {
	key := storage.ReportKey(h.Config.ExportArchivePrefix, restaurantID, uuid.NewString(), file.Filename)
	if _, err := h.Archive.PutObject(r.Context(), key, file.Data, file.ContentType, reportCacheControl); err != nil {
		return "", err
	}
	return h.Archive.PresignGetObject(r.Context(), key, file.Filename, h.Config.ExportDownloadURLTTL)
}
