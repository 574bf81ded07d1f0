// Package webapi exposes the read-only REST API over runs, items, and scores.
package webapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/agentlens/agentlens/internal/models"
	"github.com/agentlens/agentlens/internal/store"
)

// Version is set at build time or defaults to dev.
var Version = "dev"

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Store provides access to run and score data.
type Store interface {
	ListDatasetRuns(ctx context.Context, limit, offset int) ([]models.DatasetRun, error)
	GetDatasetRun(ctx context.Context, id int64) (*models.DatasetRun, error)
	ListRunItems(ctx context.Context, datasetRunID int64) ([]models.RunItem, error)
	ListRunItemScores(ctx context.Context, datasetRunID int64) ([]models.Score, error)
	ListScores(ctx context.Context, ownerType models.OwnerType, ownerID int64) ([]models.Score, error)
}

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	store Store
}

// NewHandlers creates a new Handlers with the given store.
func NewHandlers(store Store) *Handlers {
	return &Handlers{store: store}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// HandleRuns returns dataset runs newest-first, with limit/offset paging.
func (h *Handlers) HandleRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		writeError(w, http.StatusBadRequest, "limit must be between 1 and 200")
		return
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		writeError(w, http.StatusBadRequest, "offset must not be negative")
		return
	}

	runs, err := h.store.ListDatasetRuns(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	out := make([]RunSummary, 0, len(runs))
	for i := range runs {
		out = append(out, summarize(&runs[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRunDetail returns one dataset run with its items and their scores.
func (h *Handlers) HandleRunDetail(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "run id must be an integer")
		return
	}

	run, err := h.store.GetDatasetRun(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	items, err := h.store.ListRunItems(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	scores, err := h.store.ListRunItemScores(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	byItem := make(map[int64][]models.Score, len(items))
	for _, s := range scores {
		byItem[s.OwnerID] = append(byItem[s.OwnerID], s)
	}

	detail := RunDetail{RunSummary: summarize(run), Items: make([]RunItemDetail, 0, len(items))}
	for _, item := range items {
		detail.Items = append(detail.Items, RunItemDetail{
			RunItem: item,
			Scores:  byItem[item.ID],
		})
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleScores returns all scores attached to one owner record, selected by
// the owner_type and owner_id query parameters.
func (h *Handlers) HandleScores(w http.ResponseWriter, r *http.Request) {
	ownerType := models.OwnerType(r.URL.Query().Get("owner_type"))
	switch ownerType {
	case models.OwnerRunItem, models.OwnerTrace, models.OwnerSession:
	default:
		writeError(w, http.StatusBadRequest, "owner_type must be run_item, trace, or session")
		return
	}
	ownerID, err := strconv.ParseInt(r.URL.Query().Get("owner_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "owner_id must be an integer")
		return
	}

	scores, err := h.store.ListScores(r.Context(), ownerType, ownerID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if scores == nil {
		scores = []models.Score{}
	}
	writeJSON(w, http.StatusOK, scores)
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, st Store) {
	h := NewHandlers(st)
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/runs", h.HandleRuns)
	mux.HandleFunc("GET /api/runs/{id}", h.HandleRunDetail)
	mux.HandleFunc("GET /api/scores", h.HandleScores)
}

func summarize(run *models.DatasetRun) RunSummary {
	return RunSummary{
		ID:        run.ID,
		Name:      run.Name,
		Status:    run.Status,
		Metadata:  run.Metadata,
		CreatedAt: run.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt: run.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
