// Package model defines the core domain types for event participation.
package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Event types. Participation history is bucketed by these.
const (
	EventTypeWorkshop   = "workshop"
	EventTypeWebinar    = "webinar"
	EventTypeInternship = "internship"
)

// Subject is a user known to the identity provider.
type Subject struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName returns the display name used on participant entries.
func (s *Subject) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// Event represents a schedulable activity.
type Event struct {
	ID           string           `json:"id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	Type         string           `json:"type"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Capacity     *int             `json:"capacity,omitempty"`
	StartDate    time.Time        `json:"date"`
	EndDate      *time.Time       `json:"end_date,omitempty"`
	MeetingLink  string           `json:"meeting_link,omitempty"`
	Participants []Participant    `json:"participants,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}

// IsFree reports whether registering requires no payment reference.
func (e *Event) IsFree() bool {
	return e.Price == nil || e.Price.IsZero()
}

// Completed reports whether the event has ended at the given instant.
func (e *Event) Completed(now time.Time) bool {
	return e.EndDate != nil && e.EndDate.Before(now)
}

// Participant is one denormalized entry of an event's participant ledger.
// An empty Status marks a legacy entry written before statuses existed.
type Participant struct {
	SubjectID    string    `json:"subject_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	RegisteredAt time.Time `json:"registered_at"`
	Status       Status    `json:"status,omitempty"`
}

// EffectiveStatus treats legacy entries as approved.
func (p Participant) EffectiveStatus() Status {
	if p.Status == "" {
		return StatusApproved
	}
	return p.Status
}

// MarshalJSON adds the derived payment status.
func (p Participant) MarshalJSON() ([]byte, error) {
	type alias Participant
	return json.Marshal(struct {
		alias
		PaymentStatus PaymentStatus `json:"payment_status"`
	}{alias(p), p.EffectiveStatus().PaymentStatus()})
}

// Registration is one subject's application to one event.
type Registration struct {
	ID                string     `json:"id"`
	SubjectID         string     `json:"subject_id"`
	EventID           string     `json:"event_id"`
	NameOnCertificate string     `json:"name_on_certificate"`
	PaymentReference  string     `json:"payment_reference"`
	Status            Status     `json:"status"`
	RejectionReason   string     `json:"rejection_reason"`
	RejectedAt        *time.Time `json:"rejected_at,omitempty"`
	AdminMessage      string     `json:"admin_message"`
	Version           int        `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// MarshalJSON adds the derived payment status.
func (r Registration) MarshalJSON() ([]byte, error) {
	type alias Registration
	return json.Marshal(struct {
		alias
		PaymentStatus PaymentStatus `json:"payment_status"`
	}{alias(r), r.Status.PaymentStatus()})
}

// EventSummary is the slice of an event embedded in registration views.
type EventSummary struct {
	ID          string           `json:"id"`
	Title       string           `json:"title"`
	Type        string           `json:"type"`
	Date        time.Time        `json:"date"`
	EndDate     *time.Time       `json:"end_date,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	MeetingLink string           `json:"meeting_link,omitempty"`
}

// Summary returns the embeddable view of the event.
func (e *Event) Summary() EventSummary {
	return EventSummary{
		ID:          e.ID,
		Title:       e.Title,
		Type:        e.Type,
		Date:        e.StartDate,
		EndDate:     e.EndDate,
		Price:       e.Price,
		MeetingLink: e.MeetingLink,
	}
}

// RegistrationView is a registration joined with its event.
type RegistrationView struct {
	Registration
	Event EventSummary `json:"event"`
}

// MarshalJSON keeps the embedded registration's derived fields alongside
// the event summary.
func (v RegistrationView) MarshalJSON() ([]byte, error) {
	type alias Registration
	return json.Marshal(struct {
		alias
		PaymentStatus PaymentStatus `json:"payment_status"`
		Event         EventSummary  `json:"event"`
	}{alias(v.Registration), v.Status.PaymentStatus(), v.Event})
}

// SubjectSummary is the slice of a subject shown to admins.
type SubjectSummary struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// EventRegistration is a registration joined with its subject, for admins.
type EventRegistration struct {
	Registration
	Subject SubjectSummary `json:"subject"`
}

// MarshalJSON keeps the embedded registration's derived fields alongside
// the subject summary.
func (r EventRegistration) MarshalJSON() ([]byte, error) {
	type alias Registration
	return json.Marshal(struct {
		alias
		PaymentStatus PaymentStatus  `json:"payment_status"`
		Subject       SubjectSummary `json:"subject"`
	}{alias(r.Registration), r.Status.PaymentStatus(), r.Subject})
}

// LedgerEntry pairs an event with one subject's entry in its ledger.
type LedgerEntry struct {
	Event       Event
	Participant Participant
}

// TypeStats aggregates events of one type.
type TypeStats struct {
	Type              string `json:"type"`
	Count             int    `json:"count"`
	TotalParticipants int    `json:"total_participants"`
	Upcoming          int    `json:"upcoming"`
}

// EventStats is the admin dashboard summary.
type EventStats struct {
	TotalEvents       int         `json:"total_events"`
	TotalParticipants int         `json:"total_participants"`
	ByType            []TypeStats `json:"by_type"`
}

// CreateEventRequest is the payload for creating a new event.
type CreateEventRequest struct {
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Type        string           `json:"type"`
	Price       *decimal.Decimal `json:"price"`
	Capacity    *int             `json:"capacity"`
	StartDate   time.Time        `json:"date"`
	EndDate     *time.Time       `json:"end_date"`
	MeetingLink string           `json:"meeting_link"`
}

// RegisterRequest is the payload for registering for an event.
type RegisterRequest struct {
	EventID           string `json:"event_id"`
	NameOnCertificate string `json:"name_on_certificate"`
	PaymentReference  string `json:"payment_reference"`
}

// StatusUpdateRequest is the admin payload for changing a registration's status.
type StatusUpdateRequest struct {
	Status          string  `json:"status"`
	RejectionReason string  `json:"rejection_reason"`
	AdminMessage    *string `json:"admin_message"`
}

// ErrorResponse is a standard JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
