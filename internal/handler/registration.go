package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// RegistrationHandler serves the registration and participant ledger API.
type RegistrationHandler struct {
	svc Registrations
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc Registrations) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// Register handles POST /api/registrations
// Submits, or resubmits after a rejection, the caller's registration.
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.RegisterForEvent(r.Context(), identity(r).SubjectID, req)
	if err != nil {
		writeServiceError(w, r, err, "event")
		return
	}
	writeJSON(w, http.StatusCreated, reg)
}

// My handles GET /api/registrations/my
func (h *RegistrationHandler) My(w http.ResponseWriter, r *http.Request) {
	views, err := h.svc.MyRegistrations(r.Context(), identity(r).SubjectID)
	if err != nil {
		writeServiceError(w, r, err, "registration")
		return
	}
	if views == nil {
		views = []model.RegistrationView{}
	}
	writeJSON(w, http.StatusOK, views)
}

// History handles GET /api/registrations/history
// Returns the caller's participation bucketed by event type.
func (h *RegistrationHandler) History(w http.ResponseWriter, r *http.Request) {
	hist, err := h.svc.ParticipationHistory(r.Context(), identity(r).SubjectID)
	if err != nil {
		writeServiceError(w, r, err, "history")
		return
	}
	writeJSON(w, http.StatusOK, hist)
}

// ListForEvent handles GET /api/registrations/event/{eventID}
func (h *RegistrationHandler) ListForEvent(w http.ResponseWriter, r *http.Request) {
	regs, err := h.svc.ListEventRegistrations(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeServiceError(w, r, err, "event")
		return
	}
	if regs == nil {
		regs = []model.EventRegistration{}
	}
	writeJSON(w, http.StatusOK, regs)
}

// UpdateStatus handles PUT /api/registrations/{id}/status
func (h *RegistrationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req model.StatusUpdateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	reg, err := h.svc.UpdateRegistrationStatus(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		writeServiceError(w, r, err, "registration")
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

type participantStatusRequest struct {
	Status string `json:"status"`
}

// UpdateParticipantStatus handles PUT /api/events/{id}/participants/{subjectID}/status
// Returns the event with its refreshed participant ledger.
func (h *RegistrationHandler) UpdateParticipantStatus(w http.ResponseWriter, r *http.Request) {
	var req participantStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	event, err := h.svc.UpdateParticipantStatus(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "subjectID"), req.Status)
	if err != nil {
		writeServiceError(w, r, err, "participant")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type joinResponse struct {
	Message          string       `json:"message"`
	Status           model.Status `json:"status"`
	ParticipantCount int          `json:"participant_count"`
}

// Join handles POST /api/events/{id}/participants
// Adds the caller straight to the event's participant list.
func (h *RegistrationHandler) Join(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.JoinEvent(r.Context(), identity(r).SubjectID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "event")
		return
	}
	msg := "Successfully registered for event"
	if res.Status != model.StatusApproved {
		msg = "Registration submitted. Pending approval."
	}
	writeJSON(w, http.StatusCreated, joinResponse{
		Message:          msg,
		Status:           res.Status,
		ParticipantCount: res.ParticipantCount,
	})
}

type unregisterResponse struct {
	Message          string `json:"message"`
	ParticipantCount int    `json:"participant_count"`
}

// Unregister handles DELETE /api/events/{id}/participants/me
func (h *RegistrationHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	remaining, err := h.svc.Unregister(r.Context(), identity(r).SubjectID, chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, r, err, "participant")
		return
	}
	writeJSON(w, http.StatusOK, unregisterResponse{
		Message:          "unregistered from event",
		ParticipantCount: remaining,
	})
}
