package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

func day(d int) time.Time { return time.Date(2026, 1, d, 9, 0, 0, 0, time.UTC) }

func TestMergeHistory_RegistrationWinsAndEventsAppearOnce(t *testing.T) {
	regs := []model.RegistrationView{
		{
			Registration: model.Registration{EventID: "w1", Status: model.StatusRejected, RejectionReason: "bad proof"},
			Event:        model.EventSummary{ID: "w1", Title: "Workshop", Type: model.EventTypeWorkshop, Date: day(10), MeetingLink: "https://meet/w1"},
		},
	}
	ledger := []model.LedgerEntry{
		{
			Event:       model.Event{ID: "w1", Title: "Workshop", Type: model.EventTypeWorkshop, StartDate: day(10), MeetingLink: "https://meet/w1"},
			Participant: model.Participant{SubjectID: "alice", Status: model.StatusApproved},
		},
		{
			Event:       model.Event{ID: "i1", Title: "Internship", Type: model.EventTypeInternship, StartDate: day(5), MeetingLink: "https://meet/i1"},
			Participant: model.Participant{SubjectID: "alice"},
		},
	}

	h := mergeHistory(regs, ledger)

	require.Len(t, h.Workshops, 1)
	w := h.Workshops[0]
	assert.Equal(t, "Rejected", w.DisplayStatus)
	assert.Equal(t, model.StatusRejected, w.RegistrationStatus)
	assert.Equal(t, "bad proof", w.RejectionReason)
	assert.Empty(t, w.MeetingLink)

	require.Len(t, h.Internships, 1)
	i := h.Internships[0]
	assert.Equal(t, "Approved", i.DisplayStatus, "legacy ledger entries read as approved")
	assert.Equal(t, "https://meet/i1", i.MeetingLink)
	assert.Empty(t, i.RejectionReason)

	assert.Empty(t, h.Webinars)
	assert.Equal(t, 2, h.Len())
}

func TestMergeHistory_OrderAndUnknownTypes(t *testing.T) {
	regs := []model.RegistrationView{
		{Registration: model.Registration{Status: model.StatusPending}, Event: model.EventSummary{ID: "b", Type: model.EventTypeWebinar, Date: day(1)}},
		{Registration: model.Registration{Status: model.StatusApproved}, Event: model.EventSummary{ID: "a", Type: model.EventTypeWebinar, Date: day(20)}},
		{Registration: model.Registration{Status: model.StatusApproved}, Event: model.EventSummary{ID: "x", Type: "hackathon", Date: day(3)}},
	}
	ledger := []model.LedgerEntry{
		{Event: model.Event{ID: "c", Type: model.EventTypeWebinar, StartDate: day(30)}, Participant: model.Participant{Status: model.StatusPending}},
	}

	h := mergeHistory(regs, ledger)

	ids := []string{}
	for _, it := range h.Webinars {
		ids = append(ids, it.EventID)
	}
	// Registration-derived items keep their order and come before ledger-only ones.
	assert.Equal(t, []string{"b", "a", "c"}, ids)
	assert.Equal(t, "Pending", h.Webinars[0].DisplayStatus)
	assert.Equal(t, "Pending", h.Webinars[2].DisplayStatus)
	assert.Equal(t, 3, h.Len())
}

func TestMergeHistory_Empty(t *testing.T) {
	h := mergeHistory(nil, nil)
	assert.NotNil(t, h.Workshops)
	assert.NotNil(t, h.Webinars)
	assert.NotNil(t, h.Internships)
}

func TestParticipationHistory_FreeAndPaid(t *testing.T) {
	f := newFixture(t, nil)
	f.freeEvent("free")
	f.paidEvent("paid")
	f.db.addEvent(model.Event{ID: "web", Title: "Legacy webinar", Type: model.EventTypeWebinar, StartDate: day(2)})
	f.db.ledger["web"] = []model.Participant{{SubjectID: "alice", Name: "Alice"}}
	ctx := context.Background()

	_, err := f.svc.RegisterForEvent(ctx, "alice", model.RegisterRequest{EventID: "free", NameOnCertificate: "Alice"})
	require.NoError(t, err)
	_, err = f.svc.RegisterForEvent(ctx, "alice", model.RegisterRequest{EventID: "paid", NameOnCertificate: "Alice", PaymentReference: "1234567890"})
	require.NoError(t, err)

	h, err := f.svc.ParticipationHistory(ctx, "alice")
	require.NoError(t, err)

	require.Len(t, h.Workshops, 2)
	// Newest registration first.
	assert.Equal(t, "paid", h.Workshops[0].EventID)
	assert.Equal(t, "Pending", h.Workshops[0].DisplayStatus)
	assert.Empty(t, h.Workshops[0].MeetingLink)
	assert.Equal(t, "free", h.Workshops[1].EventID)
	assert.Equal(t, "Approved", h.Workshops[1].DisplayStatus)
	assert.Equal(t, "https://meet.example.com/go", h.Workshops[1].MeetingLink)

	require.Len(t, h.Webinars, 1)
	assert.Equal(t, "web", h.Webinars[0].EventID)
	assert.Equal(t, model.StatusApproved, h.Webinars[0].RegistrationStatus)

	bob, err := f.svc.ParticipationHistory(ctx, "bob")
	require.NoError(t, err)
	assert.Zero(t, bob.Len())
}

func TestMyRegistrations_WithholdsMeetingLinks(t *testing.T) {
	f := newFixture(t, nil)
	f.freeEvent("free")
	f.paidEvent("paid")
	f.paidEvent("paid2")
	ctx := context.Background()

	_, err := f.svc.RegisterForEvent(ctx, "alice", model.RegisterRequest{EventID: "free", NameOnCertificate: "Alice"})
	require.NoError(t, err)
	_, err = f.svc.RegisterForEvent(ctx, "alice", model.RegisterRequest{EventID: "paid", NameOnCertificate: "Alice", PaymentReference: "1234567890"})
	require.NoError(t, err)
	rejected, err := f.svc.RegisterForEvent(ctx, "alice", model.RegisterRequest{EventID: "paid2", NameOnCertificate: "Alice", PaymentReference: "1234567891"})
	require.NoError(t, err)
	_, err = f.svc.UpdateRegistrationStatus(ctx, rejected.ID, model.StatusUpdateRequest{Status: "rejected"})
	require.NoError(t, err)

	views, err := f.svc.MyRegistrations(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, views, 3)
	for _, v := range views {
		if v.Status != model.StatusApproved {
			assert.Empty(t, v.Event.MeetingLink, v.EventID)
		} else {
			assert.NotEmpty(t, v.Event.MeetingLink, v.EventID)
		}
	}
	assert.Equal(t, "paid2", views[0].EventID)
}

func TestParticipationHistory_JoinedAndDeletedEvents(t *testing.T) {
	f := newFixture(t, nil)
	f.freeEvent("gone")
	f.db.addEvent(model.Event{ID: "web", Title: "Cloud basics", Type: model.EventTypeWebinar, StartDate: day(3), MeetingLink: "https://meet.example.com/web"})
	events := NewEventService(eventFake{f.db})
	ctx := context.Background()

	_, err := f.svc.RegisterForEvent(ctx, "alice", model.RegisterRequest{EventID: "gone", NameOnCertificate: "Alice"})
	require.NoError(t, err)
	_, err = f.svc.JoinEvent(ctx, "alice", "web")
	require.NoError(t, err)
	require.NoError(t, events.DeleteEvent(ctx, "gone"))

	h, err := f.svc.ParticipationHistory(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, h.Workshops)
	require.Len(t, h.Webinars, 1)
	assert.Equal(t, "web", h.Webinars[0].EventID)
	assert.Equal(t, "Approved", h.Webinars[0].DisplayStatus)
	assert.Equal(t, "https://meet.example.com/web", h.Webinars[0].MeetingLink)
	assert.Empty(t, h.Webinars[0].RejectionReason)

	// The orphaned registration still transitions.
	assert.Len(t, f.db.regs, 1)
	for id := range f.db.regs {
		got, err := f.svc.UpdateRegistrationStatus(ctx, id, model.StatusUpdateRequest{Status: "rejected"})
		require.NoError(t, err)
		assert.Equal(t, model.StatusRejected, got.Status)
	}
}
