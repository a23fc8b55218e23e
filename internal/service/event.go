package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

// EventService orchestrates event-related business operations.
type EventService struct {
	events EventStore
	now    func() time.Time
}

// NewEventService constructs an EventService with its dependencies.
func NewEventService(events EventStore) *EventService {
	return &EventService{events: events, now: func() time.Time { return time.Now().UTC() }}
}

func validEventType(t string) bool {
	switch t {
	case model.EventTypeWorkshop, model.EventTypeWebinar, model.EventTypeInternship:
		return true
	}
	return false
}

// normaliseEvent trims and checks an event payload.
func normaliseEvent(req model.CreateEventRequest) (model.CreateEventRequest, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Type = strings.ToLower(strings.TrimSpace(req.Type))
	req.MeetingLink = strings.TrimSpace(req.MeetingLink)

	if req.Title == "" {
		return req, invalid("title", "event title is required")
	}
	if !validEventType(req.Type) {
		return req, invalid("type", "type must be one of workshop, webinar, internship")
	}
	if req.Price != nil && req.Price.IsNegative() {
		return req, invalid("price", "price cannot be negative")
	}
	if req.Capacity != nil && *req.Capacity <= 0 {
		return req, invalid("capacity", "capacity must be a positive integer")
	}
	if req.StartDate.IsZero() {
		return req, invalid("date", "event date is required")
	}
	if req.EndDate != nil && req.EndDate.Before(req.StartDate) {
		return req, invalid("end_date", "end date cannot be before the start date")
	}
	return req, nil
}

// CreateEvent validates the request and delegates to the repository.
func (s *EventService) CreateEvent(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	req, err := normaliseEvent(req)
	if err != nil {
		return nil, err
	}
	return s.events.Create(ctx, req)
}

// UpdateEvent replaces every editable field of the event. The ledger is
// left alone.
func (s *EventService) UpdateEvent(ctx context.Context, id string, req model.CreateEventRequest) (*model.Event, error) {
	req, err := normaliseEvent(req)
	if err != nil {
		return nil, err
	}
	event, err := s.events.Update(ctx, id, req)
	if err != nil {
		return nil, notFound("event", err)
	}
	return event, nil
}

// DeleteEvent removes the event together with its ledger. Registrations
// for it are kept and drop out of listings.
func (s *EventService) DeleteEvent(ctx context.Context, id string) error {
	if err := s.events.Delete(ctx, id); err != nil {
		return notFound("event", err)
	}
	return nil
}

// ListEvents returns events, optionally narrowed by type and by
// status ("active" or "completed").
func (s *EventService) ListEvents(ctx context.Context, eventType, status string) ([]model.Event, error) {
	if eventType != "" && !validEventType(eventType) {
		return nil, invalid("type", "unknown event type %q", eventType)
	}
	if status != "" && status != "active" && status != "completed" {
		return nil, invalid("status", "status must be active or completed")
	}
	return s.events.List(ctx, repository.EventFilter{Type: eventType, Status: status, Now: s.now()})
}

// GetEvent returns a single event with its participants.
func (s *EventService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	if id == "" {
		return nil, invalid("id", "event id is required")
	}
	event, err := s.events.GetWithParticipants(ctx, id)
	if err != nil {
		return nil, notFound("event", err)
	}
	return event, nil
}

// EventStats summarises events and participation per event type.
func (s *EventService) EventStats(ctx context.Context) (*model.EventStats, error) {
	stats, err := s.events.Stats(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	return stats, nil
}
