package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"coupang-review-harvester/internal/database"
	"coupang-review-harvester/internal/jobs"
	"coupang-review-harvester/internal/report"
)

type Handlers struct {
	runs     *jobs.Manager
	store    *database.ReviewStore
	reporter *report.Generator
	logger   *slog.Logger
}

func NewHandlers(runs *jobs.Manager, store *database.ReviewStore, reporter *report.Generator, logger *slog.Logger) *Handlers {
	return &Handlers{
		runs:     runs,
		store:    store,
		reporter: reporter,
		logger:   logger.With("component", "api"),
	}
}

func (h *Handlers) Routes(r chi.Router) {
	r.Post("/runs", h.CreateRun)
	r.Get("/runs", h.ListRuns)
	r.Get("/runs/{id}", h.GetRun)
	r.Get("/reviews", h.ListReviews)
	r.Get("/report", h.GetReport)
}

type CreateRunRequest struct {
	Keyword string `json:"keyword"`
	Pages   int    `json:"pages"`
}

// CreateRun registers a harvest run for the background worker. The
// response carries the run id the caller polls for status.
func (h *Handlers) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req CreateRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.Keyword == "" {
		h.respondError(w, http.StatusBadRequest, "keyword is required")
		return
	}
	if req.Pages < 1 {
		req.Pages = 1
	}

	run, err := h.runs.Create(r.Context(), req.Keyword, req.Pages)
	if err != nil {
		h.logger.Error("failed to create run", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to create run")
		return
	}

	h.respondJSON(w, http.StatusAccepted, run)
}

func (h *Handlers) GetRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	run, err := h.runs.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, http.StatusNotFound, "run not found")
		return
	}

	h.respondJSON(w, http.StatusOK, run)
}

func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.runs.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}

	h.respondJSON(w, http.StatusOK, runs)
}

func (h *Handlers) ListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.GetAll(r.Context())
	if err != nil {
		h.logger.Error("failed to load reviews", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}

	h.respondJSON(w, http.StatusOK, reviews)
}

func (h *Handlers) GetReport(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.store.GetAll(r.Context())
	if err != nil {
		h.logger.Error("failed to load reviews", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to load reviews")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(h.reporter.Generate(reviews, nil)))
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
