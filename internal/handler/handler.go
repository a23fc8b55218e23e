// Package handler contains chi HTTP handlers that translate HTTP
// requests/responses to and from the service layer.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Shivanand-hulikatti/event-participation/internal/auth"
	"github.com/Shivanand-hulikatti/event-participation/internal/logger"
	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

// Registrations is the registration workflow the handlers drive.
type Registrations interface {
	RegisterForEvent(ctx context.Context, subjectID string, req model.RegisterRequest) (*model.Registration, error)
	MyRegistrations(ctx context.Context, subjectID string) ([]model.RegistrationView, error)
	ParticipationHistory(ctx context.Context, subjectID string) (model.History, error)
	ListEventRegistrations(ctx context.Context, eventID string) ([]model.EventRegistration, error)
	UpdateRegistrationStatus(ctx context.Context, id string, req model.StatusUpdateRequest) (*model.Registration, error)
	UpdateParticipantStatus(ctx context.Context, eventID, subjectID, status string) (*model.Event, error)
	JoinEvent(ctx context.Context, subjectID, eventID string) (*service.JoinResult, error)
	Unregister(ctx context.Context, subjectID, eventID string) (int, error)
}

// Events is the event catalogue the handlers drive.
type Events interface {
	CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	ListEvents(ctx context.Context, eventType, status string) ([]model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	UpdateEvent(ctx context.Context, id string, req model.CreateEventRequest) (*model.Event, error)
	DeleteEvent(ctx context.Context, id string) error
	EventStats(ctx context.Context) (*model.EventStats, error)
}

// Certificates is the certificate workflow the handlers drive.
type Certificates interface {
	IssueCertificate(ctx context.Context, in service.IssueCertificateInput) (*model.Certificate, error)
	MyCertificates(ctx context.Context, subjectID string) ([]model.Certificate, error)
	DeleteCertificate(ctx context.Context, id string) error
	OpenFile(ctx context.Context, ref string, viewer service.Viewer) (*model.StoredFile, error)
}

// ─── Helper utilities ─────────────────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1 MB limit
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

// writeServiceError maps service and repository errors onto HTTP statuses.
// resource names the thing a 404 refers to when the error does not.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	var (
		ve *service.ValidationError
		nf *service.NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeError(w, http.StatusBadRequest, ve.Error())
	case errors.Is(err, auth.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "authentication required")
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "access denied")
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, nf.Resource+" not found")
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, resource+" not found")
	case errors.Is(err, service.ErrAlreadyRegistered):
		writeError(w, http.StatusConflict, "you are already registered for this event")
	case errors.Is(err, service.ErrAlreadyParticipant):
		writeError(w, http.StatusConflict, "you are already a participant of this event")
	case errors.Is(err, service.ErrPaymentReferenceUsed):
		writeError(w, http.StatusConflict, "this payment reference has already been used")
	case errors.Is(err, repository.ErrStale):
		writeError(w, http.StatusConflict, "the registration was modified concurrently, please retry")
	case errors.Is(err, repository.ErrConflict):
		writeError(w, http.StatusConflict, "conflicting request")
	default:
		logger.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// identity returns the caller set by Authenticate.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.FromContext(r.Context())
	return id
}

// ─── Health check ─────────────────────────────────────────────────────────────

// HealthCheck handles GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
