package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"tgcalld/internal/call"
)

// CallHandler handles call placement, hangup and live state
type CallHandler struct {
	deps *Dependencies
}

// NewCallHandler creates a new CallHandler
func NewCallHandler(deps *Dependencies) *CallHandler {
	return &CallHandler{deps: deps}
}

// Place accepts a call request and schedules it. The response reports
// acceptance; call progress is tracked through the state endpoint.
func (h *CallHandler) Place(w http.ResponseWriter, r *http.Request) {
	var req call.CallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(w, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON body", nil)
		return
	}

	if err := h.deps.Supervisor.PlaceCall(r.Context(), req); err != nil {
		switch {
		case errors.Is(err, call.ErrCallInProgress):
			WriteConflictError(w, err.Error())
		case call.IsValidationError(err):
			WriteValidationError(w, err.Error(), nil)
		default:
			WriteInternalError(w)
		}
		return
	}

	WriteJSON(w, http.StatusAccepted, h.deps.States.Snapshot())
}

// Hangup ends the in-flight call. With no call active it is a no-op.
func (h *CallHandler) Hangup(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Supervisor.Hangup(r.Context()); err != nil {
		WriteInternalError(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// State returns the current call state snapshot
func (h *CallHandler) State(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.deps.States.Snapshot())
}
