// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/event-participation/internal/logger"
	"github.com/Shivanand-hulikatti/event-participation/internal/metrics"
	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/notify"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
	"github.com/Shivanand-hulikatti/event-participation/internal/telemetry"
)

// maxUpdateAttempts bounds the re-read/re-apply loop for version conflicts.
const maxUpdateAttempts = 5

const defaultRejectionReason = "Rejected by admin"

// Broadcast events.
const (
	EventStatusUpdated     = "registration:status-updated"
	EventStatsUpdated      = "stats:updated"
	EventCertificateIssued = "certificate:issued"
)

var paymentReferencePattern = regexp.MustCompile(`^[0-9]{10,18}$`)

// RegistrationService owns the registration lifecycle and keeps the
// participant ledger in step with it.
type RegistrationService struct {
	subjects      SubjectStore
	events        EventStore
	registrations RegistrationStore
	notifier      Notifier
	now           func() time.Time
	log           *slog.Logger
	tracer        trace.Tracer
}

// NewRegistrationService constructs a RegistrationService. notifier may be
// nil, in which case nothing is delivered.
func NewRegistrationService(
	subjects SubjectStore,
	events EventStore,
	registrations RegistrationStore,
	notifier Notifier,
) *RegistrationService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &RegistrationService{
		subjects:      subjects,
		events:        events,
		registrations: registrations,
		notifier:      notifier,
		now:           func() time.Time { return time.Now().UTC() },
		log:           logger.WithComponent("registration"),
		tracer:        telemetry.Tracer(),
	}
}

func pricing(free bool) string {
	if free {
		return "free"
	}
	return "paid"
}

// RegisterForEvent applies for an event on behalf of subjectID.
//
// Free events are approved immediately and get a synthesized payment
// reference. Paid events need a 10–18 digit reference and start pending.
// A rejected registration may be re-submitted; any other existing
// registration is a conflict.
func (s *RegistrationService) RegisterForEvent(ctx context.Context, subjectID string, req model.RegisterRequest) (*model.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "RegistrationService.RegisterForEvent",
		trace.WithAttributes(attribute.String("event.id", req.EventID)))
	defer span.End()

	eventID := strings.TrimSpace(req.EventID)
	name := strings.TrimSpace(req.NameOnCertificate)
	ref := strings.TrimSpace(req.PaymentReference)

	if eventID == "" {
		return nil, invalid("event_id", "event id is required")
	}

	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, notFound("subject", err)
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, notFound("event", err)
	}

	if name == "" {
		return nil, invalid("name_on_certificate", "name on certificate is required")
	}
	free := event.IsFree()
	if !free {
		if ref == "" {
			metrics.Registrations.WithLabelValues("invalid", "paid").Inc()
			return nil, invalid("payment_reference", "payment reference is required for paid events")
		}
		if !paymentReferencePattern.MatchString(ref) {
			metrics.Registrations.WithLabelValues("invalid", "paid").Inc()
			return nil, invalid("payment_reference", "payment reference must be 10 to 18 digits")
		}
	}

	var (
		reg     *model.Registration
		outcome string
	)
	existing, err := s.registrations.GetBySubjectAndEvent(ctx, subject.ID, event.ID)
	switch {
	case err == nil && existing.Status != model.StatusRejected:
		if existing.Status == model.StatusApproved {
			// An earlier attempt may have stored the approval but failed
			// to append the ledger entry.
			if _, err := s.appendParticipant(ctx, subject, event.ID); err != nil {
				return nil, err
			}
		}
		err = ErrAlreadyRegistered
	case err == nil:
		reg, err = s.resubmit(ctx, existing.ID, name, ref, free)
		outcome = "resubmitted"
	case errors.Is(err, repository.ErrNotFound):
		reg, err = s.create(ctx, subject.ID, event.ID, name, ref, free)
		outcome = "created"
	default:
		err = fmt.Errorf("lookup registration: %w", err)
	}
	if err != nil {
		if errors.Is(err, repository.ErrConflict) {
			metrics.Registrations.WithLabelValues("conflict", pricing(free)).Inc()
		}
		return nil, err
	}
	metrics.Registrations.WithLabelValues(outcome, pricing(free)).Inc()

	if reg.Status == model.StatusApproved {
		if err := s.syncLedger(ctx, subject, event.ID, reg.Status); err != nil {
			return nil, err
		}
	}

	s.log.InfoContext(ctx, "registration submitted",
		"registration_id", reg.ID, "event_id", event.ID, "subject_id", subject.ID,
		"status", reg.Status, "outcome", outcome)
	return reg, nil
}

func (s *RegistrationService) create(ctx context.Context, subjectID, eventID, name, ref string, free bool) (*model.Registration, error) {
	if free {
		ref = s.freeReference()
	} else if err := s.checkReference(ctx, ref, ""); err != nil {
		return nil, err
	}

	reg := &model.Registration{
		ID:                uuid.New().String(),
		SubjectID:         subjectID,
		EventID:           eventID,
		NameOnCertificate: name,
		PaymentReference:  ref,
		Status:            model.InitialStatus(free),
	}
	if err := s.registrations.Create(ctx, reg); err != nil {
		return nil, conflictError(err)
	}
	return reg, nil
}

// resubmit reopens a rejected registration.
func (s *RegistrationService) resubmit(ctx context.Context, id, name, ref string, free bool) (*model.Registration, error) {
	if free {
		ref = s.freeReference()
	} else if err := s.checkReference(ctx, ref, id); err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, func(reg *model.Registration) error {
		if reg.Status != model.StatusRejected {
			return ErrAlreadyRegistered
		}
		reg.NameOnCertificate = name
		reg.PaymentReference = ref
		reg.Status = model.InitialStatus(free)
		reg.RejectionReason = ""
		reg.RejectedAt = nil
		return nil
	})
}

func (s *RegistrationService) checkReference(ctx context.Context, ref, excludeID string) error {
	inUse, err := s.registrations.PaymentReferenceInUse(ctx, ref, excludeID)
	if err != nil {
		return fmt.Errorf("check payment reference: %w", err)
	}
	if inUse {
		return ErrPaymentReferenceUsed
	}
	return nil
}

func (s *RegistrationService) freeReference() string {
	return fmt.Sprintf("FREE-%d-%s", s.now().UnixMilli(), uuid.New().String()[:8])
}

// mutate re-reads the registration, applies fn and writes it back, starting
// over when another writer bumped the version in between.
func (s *RegistrationService) mutate(ctx context.Context, id string, fn func(*model.Registration) error) (*model.Registration, error) {
	for attempt := 1; ; attempt++ {
		reg, err := s.registrations.GetByID(ctx, id)
		if err != nil {
			return nil, notFound("registration", err)
		}
		if err := fn(reg); err != nil {
			return nil, err
		}
		reg.UpdatedAt = s.now()

		err = s.registrations.Update(ctx, reg)
		if err == nil {
			return reg, nil
		}
		if !errors.Is(err, repository.ErrStale) {
			return nil, conflictError(err)
		}
		if attempt == maxUpdateAttempts {
			return nil, fmt.Errorf("registration %s: gave up after %d attempts: %w", id, attempt, err)
		}
		metrics.OptimisticRetries.Inc()
		s.log.DebugContext(ctx, "registration version conflict, retrying", "registration_id", id, "attempt", attempt)
	}
}

// appendParticipant adds the subject to the event's ledger as approved
// unless an entry already exists, and reports whether it was added.
func (s *RegistrationService) appendParticipant(ctx context.Context, subject *model.Subject, eventID string) (bool, error) {
	added, err := s.events.AddParticipant(ctx, eventID, model.Participant{
		SubjectID:    subject.ID,
		Email:        subject.Email,
		Name:         subject.FullName(),
		RegisteredAt: s.now(),
		Status:       model.StatusApproved,
	})
	if err != nil {
		return false, fmt.Errorf("append participant: %w", err)
	}
	if added {
		metrics.LedgerAppends.WithLabelValues("added").Inc()
	} else {
		metrics.LedgerAppends.WithLabelValues("present").Inc()
	}
	return added, nil
}

// syncLedger brings the subject's ledger entry in line with status. An
// approval appends the subject if absent; every status is mirrored onto an
// entry that already exists. Membership is never removed here.
func (s *RegistrationService) syncLedger(ctx context.Context, subject *model.Subject, eventID string, status model.Status) error {
	if status == model.StatusApproved {
		added, err := s.appendParticipant(ctx, subject, eventID)
		if err != nil {
			return err
		}
		if added {
			return nil
		}
	}

	err := s.events.SetParticipantStatus(ctx, eventID, subject.ID, status)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("mirror participant status: %w", err)
	}
	return nil
}

// UpdateRegistrationStatus moves a registration to a new status on behalf
// of an admin, syncs the ledger and notifies the subject.
func (s *RegistrationService) UpdateRegistrationStatus(ctx context.Context, id string, req model.StatusUpdateRequest) (*model.Registration, error) {
	ctx, span := s.tracer.Start(ctx, "RegistrationService.UpdateRegistrationStatus",
		trace.WithAttributes(attribute.String("registration.id", id), attribute.String("status", req.Status)))
	defer span.End()

	status, err := model.ParseStatus(req.Status)
	if err != nil {
		return nil, invalid("status", "status must be one of pending, approved, rejected")
	}

	reg, err := s.mutate(ctx, id, func(reg *model.Registration) error {
		reg.Status = status
		if status == model.StatusRejected {
			reason := strings.TrimSpace(req.RejectionReason)
			if reason == "" && req.AdminMessage != nil {
				reason = strings.TrimSpace(*req.AdminMessage)
			}
			if reason == "" {
				reason = defaultRejectionReason
			}
			now := s.now()
			reg.RejectionReason = reason
			reg.RejectedAt = &now
		} else {
			reg.RejectionReason = ""
			reg.RejectedAt = nil
		}
		if req.AdminMessage != nil {
			reg.AdminMessage = *req.AdminMessage
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	metrics.StatusTransitions.WithLabelValues(string(status)).Inc()

	subject, err := s.subjects.GetByID(ctx, reg.SubjectID)
	if err != nil {
		return nil, notFound("subject", err)
	}

	event, err := s.events.GetByID(ctx, reg.EventID)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		// Registrations outlive their events; there is no ledger to sync.
		s.log.WarnContext(ctx, "registration references a missing event", "registration_id", reg.ID, "event_id", reg.EventID)
		event = &model.Event{ID: reg.EventID}
	case err != nil:
		return nil, notFound("event", err)
	default:
		// Another transition may have committed since ours; the ledger
		// follows whatever is stored now.
		current, err := s.registrations.GetByID(ctx, reg.ID)
		if err != nil {
			return nil, notFound("registration", err)
		}
		if err := s.syncLedger(ctx, subject, event.ID, current.Status); err != nil {
			return nil, err
		}
	}

	s.notifyStatus(ctx, subject, event, reg)

	s.log.InfoContext(ctx, "registration status updated",
		"registration_id", reg.ID, "event_id", reg.EventID, "status", status)
	return reg, nil
}

// StatusChange is the payload broadcast to the subject's room.
type StatusChange struct {
	RegistrationID string              `json:"registration_id"`
	Status         model.Status        `json:"status"`
	PaymentStatus  model.PaymentStatus `json:"payment_status"`
	Event          StatusChangeEvent   `json:"event"`
	Message        string              `json:"message"`
}

// StatusChangeEvent identifies the event in a StatusChange.
type StatusChangeEvent struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// StatsChange is the payload broadcast to admins when participation changes.
type StatsChange struct {
	Type   string `json:"type"`
	Action string `json:"action"`
}

func (s *RegistrationService) notifyStatus(ctx context.Context, subject *model.Subject, event *model.Event, reg *model.Registration) {
	var title, body string
	switch reg.Status {
	case model.StatusApproved:
		title = "Registration Approved"
		body = fmt.Sprintf("Your registration for %q has been approved! You're all set.", event.Title)
	case model.StatusRejected:
		title = "Registration Rejected"
		body = fmt.Sprintf("Your registration for %q was rejected. Reason: %s", event.Title, reg.RejectionReason)
	default:
		title = "Registration Status Updated"
		body = fmt.Sprintf("Your registration status for %q has been updated to %s.", event.Title, reg.Status)
	}

	s.notifier.Notify(ctx, notify.Message{
		SubjectID: subject.ID,
		Email:     subject.Email,
		Name:      subject.FullName(),
		Event:     EventStatusUpdated,
		Title:     title,
		Body:      body,
		Data: StatusChange{
			RegistrationID: reg.ID,
			Status:         reg.Status,
			PaymentStatus:  reg.Status.PaymentStatus(),
			Event:          StatusChangeEvent{ID: event.ID, Title: event.Title},
			Message:        body,
		},
	})
	s.notifier.Broadcast(ctx, notify.AdminRoom, EventStatsUpdated, StatsChange{Type: "registration", Action: string(reg.Status)})
}

// ListEventRegistrations returns all registrations for an event, newest
// first, with their subjects.
func (s *RegistrationService) ListEventRegistrations(ctx context.Context, eventID string) ([]model.EventRegistration, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, notFound("event", err)
	}
	regs, err := s.registrations.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return regs, nil
}

// UpdateParticipantStatus changes the status of a ledger entry directly.
// It serves events joined without a registration.
func (s *RegistrationService) UpdateParticipantStatus(ctx context.Context, eventID, subjectID, rawStatus string) (*model.Event, error) {
	ctx, span := s.tracer.Start(ctx, "RegistrationService.UpdateParticipantStatus",
		trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()

	status, err := model.ParseStatus(rawStatus)
	if err != nil {
		return nil, invalid("status", "status must be one of pending, approved, rejected")
	}
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, notFound("event", err)
	}
	if err := s.events.SetParticipantStatus(ctx, eventID, subjectID, status); err != nil {
		return nil, notFound("participant", err)
	}

	s.notifier.Broadcast(ctx, notify.AdminRoom, EventStatsUpdated, StatsChange{Type: "participant", Action: string(status)})
	return s.events.GetWithParticipants(ctx, eventID)
}

// JoinResult reports the outcome of a direct ledger join.
type JoinResult struct {
	Status           model.Status `json:"status"`
	ParticipantCount int          `json:"participant_count"`
}

// JoinEvent adds the subject straight to the event's ledger without a
// registration. Free events are joined as approved, paid ones as pending.
func (s *RegistrationService) JoinEvent(ctx context.Context, subjectID, eventID string) (*JoinResult, error) {
	ctx, span := s.tracer.Start(ctx, "RegistrationService.JoinEvent",
		trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()

	subject, err := s.subjects.GetByID(ctx, subjectID)
	if err != nil {
		return nil, notFound("subject", err)
	}
	event, err := s.events.GetByID(ctx, eventID)
	if err != nil {
		return nil, notFound("event", err)
	}

	status := model.InitialStatus(event.IsFree())
	added, err := s.events.AddParticipant(ctx, event.ID, model.Participant{
		SubjectID:    subject.ID,
		Email:        subject.Email,
		Name:         subject.FullName(),
		RegisteredAt: s.now(),
		Status:       status,
	})
	if err != nil {
		return nil, notFound("event", err)
	}
	if !added {
		metrics.LedgerAppends.WithLabelValues("present").Inc()
		return nil, ErrAlreadyParticipant
	}
	metrics.LedgerAppends.WithLabelValues("added").Inc()

	joined, err := s.events.GetWithParticipants(ctx, event.ID)
	if err != nil {
		return nil, notFound("event", err)
	}

	s.notifier.Broadcast(ctx, notify.AdminRoom, EventStatsUpdated, StatsChange{Type: "participant", Action: "joined"})
	s.log.InfoContext(ctx, "participant joined", "event_id", event.ID, "subject_id", subject.ID, "status", status)
	return &JoinResult{Status: status, ParticipantCount: len(joined.Participants)}, nil
}

// Unregister removes the subject from the event's ledger and returns how
// many participants remain. The registration record is left untouched.
func (s *RegistrationService) Unregister(ctx context.Context, subjectID, eventID string) (int, error) {
	ctx, span := s.tracer.Start(ctx, "RegistrationService.Unregister",
		trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()

	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return 0, notFound("event", err)
	}
	remaining, err := s.events.RemoveParticipant(ctx, eventID, subjectID)
	if err != nil {
		return 0, notFound("participant", err)
	}

	s.notifier.Broadcast(ctx, notify.AdminRoom, EventStatsUpdated, StatsChange{Type: "participant", Action: "unregistered"})
	s.log.InfoContext(ctx, "participant unregistered", "event_id", eventID, "subject_id", subjectID, "remaining", remaining)
	return remaining, nil
}
