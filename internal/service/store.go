package service

import (
	"context"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/notify"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

// SubjectStore resolves subjects.
type SubjectStore interface {
	GetByID(ctx context.Context, id string) (*model.Subject, error)
}

// EventStore persists events and their participant ledger.
type EventStore interface {
	Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error)
	GetByID(ctx context.Context, id string) (*model.Event, error)
	Update(ctx context.Context, id string, req model.CreateEventRequest) (*model.Event, error)
	Delete(ctx context.Context, id string) error
	GetWithParticipants(ctx context.Context, id string) (*model.Event, error)
	List(ctx context.Context, f repository.EventFilter) ([]model.Event, error)
	ListLedgerEntries(ctx context.Context, subjectID string) ([]model.LedgerEntry, error)
	AddParticipant(ctx context.Context, eventID string, p model.Participant) (bool, error)
	SetParticipantStatus(ctx context.Context, eventID, subjectID string, status model.Status) error
	RemoveParticipant(ctx context.Context, eventID, subjectID string) (int, error)
	Stats(ctx context.Context, now time.Time) (*model.EventStats, error)
}

// RegistrationStore persists registrations.
type RegistrationStore interface {
	Create(ctx context.Context, reg *model.Registration) error
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	GetBySubjectAndEvent(ctx context.Context, subjectID, eventID string) (*model.Registration, error)
	PaymentReferenceInUse(ctx context.Context, ref, excludeID string) (bool, error)
	Update(ctx context.Context, reg *model.Registration) error
	ListBySubject(ctx context.Context, subjectID string) ([]model.RegistrationView, error)
	ListByEvent(ctx context.Context, eventID string) ([]model.EventRegistration, error)
}

// CertificateStore persists certificate records.
type CertificateStore interface {
	Create(ctx context.Context, c *model.Certificate) error
	GetByID(ctx context.Context, id string) (*model.Certificate, error)
	GetByFileRef(ctx context.Context, ref string) (*model.Certificate, error)
	FindForEvent(ctx context.Context, subjectID string, eventID *string) (*model.Certificate, error)
	Replace(ctx context.Context, c *model.Certificate) error
	ListBySubject(ctx context.Context, subjectID string) ([]model.Certificate, error)
	Delete(ctx context.Context, id string) error
}

// FileStore holds certificate documents.
type FileStore interface {
	Store(ctx context.Context, data []byte, name, mimeType string) (string, error)
	Retrieve(ctx context.Context, ref string) (*model.StoredFile, error)
	Delete(ctx context.Context, ref string) error
}

// Notifier delivers best-effort notifications. Implementations must not
// block on delivery.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message)
	Broadcast(ctx context.Context, room, event string, payload any)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, notify.Message)          {}
func (nopNotifier) Broadcast(context.Context, string, string, any) {}
