package stats

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"vectorflow/apps/worker/features/job"
	"vectorflow/apps/worker/internal/middleware"
)

type JobCounter interface {
	CountByStatus(ctx context.Context) (map[job.Status]int, error)
}

type Handler struct {
	jobs JobCounter
}

func NewHandler(j JobCounter) *Handler {
	return &Handler{jobs: j}
}

type StatsResponse struct {
	Total              int `json:"total"`
	InProgress         int `json:"in_progress"`
	Completed          int `json:"completed"`
	PartiallyCompleted int `json:"partially_completed"`
	Failed             int `json:"failed"`
}

func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	slog.InfoContext(ctx, "getting stats", "correlationId", correlationID)

	counts, err := h.jobs.CountByStatus(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "failed to count jobs", "error", err, "correlationId", correlationID)
		h.writeError(ctx, w, "INTERNAL_ERROR", "failed to count jobs", http.StatusInternalServerError)
		return
	}

	resp := StatsResponse{
		InProgress:         counts[job.StatusInProgress],
		Completed:          counts[job.StatusCompleted],
		PartiallyCompleted: counts[job.StatusPartiallyCompleted],
		Failed:             counts[job.StatusFailed],
	}
	for _, n := range counts {
		resp.Total += n
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]interface{}{"data": resp}); err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, code, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := map[string]interface{}{
		"error": map[string]string{
			"code":    code,
			"message": message,
		},
		"correlationId": middleware.GetCorrelationID(ctx),
	}

	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode error response", "error", err)
	}
}
