package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jharjadi/guides-search/internal/db"
	"github.com/jharjadi/guides-search/internal/model"
)

// RunLister reads the ingestion run audit log.
type RunLister interface {
	ListRuns(ctx context.Context, pg model.Pagination) ([]model.IngestionRunItem, int, error)
	GetRun(ctx context.Context, runID string) (*model.IngestionRunItem, error)
}

// IngestionHandler handles ingestion run endpoints.
type IngestionHandler struct {
	runs RunLister
}

// NewIngestionHandler creates a new IngestionHandler.
func NewIngestionHandler(runs RunLister) *IngestionHandler {
	return &IngestionHandler{runs: runs}
}

// List handles GET /v1/ingestion-runs?page=1&limit=20
func (h *IngestionHandler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	pg := model.DefaultPagination(page, limit)

	runs, total, err := h.runs.ListRuns(r.Context(), pg)
	if err != nil {
		slog.Error("failed to list ingestion runs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal", "failed to list ingestion runs")
		return
	}
	if runs == nil {
		runs = []model.IngestionRunItem{}
	}

	writeJSON(w, http.StatusOK, model.IngestionRunListResponse{
		Runs:  runs,
		Total: total,
		Page:  pg.Page,
		Limit: pg.Limit,
	})
}

// Get handles GET /v1/ingestion-runs/{id}
func (h *IngestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "id")

	run, err := h.runs.GetRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "ingestion run not found")
			return
		}
		slog.Error("failed to get ingestion run", "error", err, "run_id", runID)
		writeError(w, http.StatusInternalServerError, "internal", "failed to get ingestion run")
		return
	}

	writeJSON(w, http.StatusOK, run)
}
