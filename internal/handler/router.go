package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the router needs.
type Deps struct {
	Registrations  Registrations
	Events         Events
	Certificates   Certificates
	Verifier       TokenVerifier
	MaxUploadBytes int64
}

// NewRouter builds the HTTP API.
func NewRouter(d Deps) http.Handler {
	regs := NewRegistrationHandler(d.Registrations)
	events := NewEventHandler(d.Events)
	certs := NewCertificateHandler(d.Certificates, d.Verifier, d.MaxUploadBytes)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger)
	r.Use(CORS)

	r.Get("/health", HealthCheck)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(d.Verifier))
			admin := RequireAdmin(d.Verifier)

			r.Get("/files/{id}", certs.File)

			r.Route("/registrations", func(r chi.Router) {
				r.Post("/", regs.Register)
				r.Get("/my", regs.My)
				r.Get("/history", regs.History)
				r.With(admin).Get("/event/{eventID}", regs.ListForEvent)
				r.With(admin).Put("/{id}/status", regs.UpdateStatus)
			})

			r.Route("/events", func(r chi.Router) {
				r.Post("/{id}/participants", regs.Join)
				r.Delete("/{id}/participants/me", regs.Unregister)

				r.Group(func(r chi.Router) {
					r.Use(admin)
					r.Post("/", events.Create)
					r.Get("/", events.List)
					r.Get("/stats", events.Stats)
					r.Get("/{id}", events.Get)
					r.Put("/{id}", events.Update)
					r.Delete("/{id}", events.Delete)
					r.Put("/{id}/participants/{subjectID}/status", regs.UpdateParticipantStatus)
				})
			})

			r.Route("/certificates", func(r chi.Router) {
				r.Get("/my", certs.My)
				r.With(admin).Post("/", certs.Issue)
				r.With(admin).Delete("/{id}", certs.Delete)
			})
		})
	})

	return r
}
