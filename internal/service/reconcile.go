package service

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// ParticipationHistory merges the subject's registrations with the
// participant ledgers they appear in. Each event shows up once; when both
// sources know about an event the registration wins.
func (s *RegistrationService) ParticipationHistory(ctx context.Context, subjectID string) (model.History, error) {
	ctx, span := s.tracer.Start(ctx, "RegistrationService.ParticipationHistory",
		trace.WithAttributes(attribute.String("subject.id", subjectID)))
	defer span.End()

	regs, err := s.registrations.ListBySubject(ctx, subjectID)
	if err != nil {
		return model.History{}, fmt.Errorf("list registrations: %w", err)
	}
	ledger, err := s.events.ListLedgerEntries(ctx, subjectID)
	if err != nil {
		return model.History{}, fmt.Errorf("list ledger entries: %w", err)
	}

	h := mergeHistory(regs, ledger)
	span.SetAttributes(attribute.Int("history.items", h.Len()))
	return h, nil
}

// mergeHistory expects regs newest first and ledger by event date, newest
// first, and keeps that order within each bucket: registration-derived
// items, then ledger-only ones.
func mergeHistory(regs []model.RegistrationView, ledger []model.LedgerEntry) model.History {
	h := model.NewHistory()
	seen := make(map[string]struct{}, len(regs)+len(ledger))

	for _, r := range regs {
		if _, ok := seen[r.Event.ID]; ok {
			continue
		}
		seen[r.Event.ID] = struct{}{}

		item := model.HistoryItem{
			EventID:            r.Event.ID,
			Title:              r.Event.Title,
			Type:               r.Event.Type,
			DisplayStatus:      r.Status.DisplayLabel(),
			Date:               r.Event.Date,
			EndDate:            r.Event.EndDate,
			RegistrationStatus: r.Status,
			RejectionReason:    r.RejectionReason,
		}
		if r.Status == model.StatusApproved {
			item.MeetingLink = r.Event.MeetingLink
		}
		h.Add(item)
	}

	for _, le := range ledger {
		if _, ok := seen[le.Event.ID]; ok {
			continue
		}
		seen[le.Event.ID] = struct{}{}

		status := le.Participant.EffectiveStatus()
		item := model.HistoryItem{
			EventID:            le.Event.ID,
			Title:              le.Event.Title,
			Type:               le.Event.Type,
			DisplayStatus:      status.DisplayLabel(),
			Date:               le.Event.StartDate,
			EndDate:            le.Event.EndDate,
			RegistrationStatus: status,
		}
		if status == model.StatusApproved {
			item.MeetingLink = le.Event.MeetingLink
		}
		h.Add(item)
	}
	return h
}

// MyRegistrations lists the subject's registrations with their events,
// newest first. Meeting links are withheld until a registration is
// approved.
func (s *RegistrationService) MyRegistrations(ctx context.Context, subjectID string) ([]model.RegistrationView, error) {
	ctx, span := s.tracer.Start(ctx, "RegistrationService.MyRegistrations")
	defer span.End()

	views, err := s.registrations.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	for i := range views {
		if views[i].Status != model.StatusApproved {
			views[i].Event.MeetingLink = ""
		}
	}
	return views, nil
}
