package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"tgcalld/internal/config"
	"tgcalld/internal/db"
)

// HistoryHandler handles the call log API endpoints
type HistoryHandler struct {
	deps *Dependencies
}

// NewHistoryHandler creates a new HistoryHandler
func NewHistoryHandler(deps *Dependencies) *HistoryHandler {
	return &HistoryHandler{deps: deps}
}

// List returns past calls, newest first, with pagination
func (h *HistoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	if limit == 0 {
		limit = config.DefaultPageSize
	}
	if limit > config.MaxPageSize {
		limit = config.MaxPageSize
	}

	records, err := h.deps.DB.CallLog.List(r.Context(), limit, offset)
	if err != nil {
		WriteInternalError(w)
		return
	}

	total, _ := h.deps.DB.CallLog.Count(r.Context())

	WriteList(w, records, total, limit, offset)
}

// Get returns a specific past call
func (h *HistoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	record, err := h.deps.DB.CallLog.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, db.ErrCallNotFound) {
			WriteNotFoundError(w, "Call")
			return
		}
		WriteInternalError(w)
		return
	}

	WriteJSON(w, http.StatusOK, record)
}

// GetStats returns call counts grouped by disposition
func (h *HistoryHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.deps.DB.CallLog.Stats(r.Context())
	if err != nil {
		WriteInternalError(w)
		return
	}

	WriteJSON(w, http.StatusOK, stats)
}
