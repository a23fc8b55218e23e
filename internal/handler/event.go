package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// EventHandler serves the admin event catalogue.
type EventHandler struct {
	svc Events
}

// NewEventHandler constructs an EventHandler.
func NewEventHandler(svc Events) *EventHandler {
	return &EventHandler{svc: svc}
}

// Create handles POST /api/events
func (h *EventHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.CreateEvent(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err, "event")
		return
	}
	writeJSON(w, http.StatusCreated, event)
}

// List handles GET /api/events
// Optional query parameters: type (workshop|webinar|internship) and
// status (active|completed).
func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	events, err := h.svc.ListEvents(r.Context(), q.Get("type"), q.Get("status"))
	if err != nil {
		writeServiceError(w, r, err, "event")
		return
	}
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// Get handles GET /api/events/{id}
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Update handles PUT /api/events/{id}
// The body replaces every editable field.
func (h *EventHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req model.CreateEventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateEvent(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err, "event")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

// Delete handles DELETE /api/events/{id}
func (h *EventHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, "event")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stats handles GET /api/events/stats
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.EventStats(r.Context())
	if err != nil {
		writeServiceError(w, r, err, "stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
