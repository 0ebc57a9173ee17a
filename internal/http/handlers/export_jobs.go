package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"citai-analytics-service/internal/export"
	"citai-analytics-service/internal/exportjobs"
	"citai-analytics-service/pkg/response"

	"go.uber.org/zap"
)

type exportJobBody struct {
	Format    string          `json:"format"`
	TimeRange string          `json:"timeRange"`
	From      string          `json:"from"`
	To        string          `json:"to"`
	Options   *export.Options `json:"options"`
}

func parseBodyDate(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// CreateExportJob queues an export and answers 202 with the job id. Progress
// is reported over /ws/merchant/exports and GET .../exports/{jobId}.
func (h *Handler) CreateExportJob(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireRestaurant(w, r)
	if !ok {
		return
	}

	var body exportJobBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64*1024)).Decode(&body); err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid JSON body")
		return
	}

	from, err := parseBodyDate(body.From)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "from must be YYYY-MM-DD")
		return
	}
	to, err := parseBodyDate(body.To)
	if err != nil {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "to must be YYYY-MM-DD")
		return
	}

	opts := exportOptionsFromQuery(r)
	if body.Options != nil {
		opts = *body.Options
	}

	job, err := h.Jobs.Submit(r.Context(), exportjobs.Request{
		RestaurantID: authCtx.RestaurantID,
		RequestedBy:  authCtx.UserID,
		Format:       body.Format,
		TimeRange:    body.TimeRange,
		From:         from,
		To:           to,
		Options:      opts,
	})
	if err != nil {
		h.writeExportError(w, err, "export job submit failed")
		return
	}

	h.Logger.Info("export job queued",
		zap.String("jobId", job.ID),
		zap.String("restaurantId", job.RestaurantID),
		zap.String("format", string(job.Format)),
	)
	view := exportjobs.ViewOf(*job)
	response.Accepted(w, map[string]any{
		"jobId":  job.ID,
		"status": view.Status,
		"job":    view,
	})
}

func (h *Handler) GetExportJob(w http.ResponseWriter, r *http.Request) {
	authCtx, ok := requireRestaurant(w, r)
	if !ok {
		return
	}

	jobID := readPathString(r, "jobId")
	if jobID == "" {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "jobId is required")
		return
	}

	view, err := h.Jobs.Get(r.Context(), authCtx.RestaurantID, jobID)
	if err != nil {
		h.writeExportError(w, err, "export job lookup failed")
		return
	}
	response.Success(w, view)
}
