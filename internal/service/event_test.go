package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

func TestCreateEvent_Validation(t *testing.T) {
	svc := NewEventService(eventFake{newMemDB()})
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	before := start.Add(-time.Hour)
	zero := 0

	tests := []struct {
		name  string
		req   model.CreateEventRequest
		field string
	}{
		{"title", model.CreateEventRequest{Type: "workshop", StartDate: start}, "title"},
		{"type", model.CreateEventRequest{Title: "T", Type: "meetup", StartDate: start}, "type"},
		{"price", model.CreateEventRequest{Title: "T", Type: "workshop", StartDate: start, Price: price("-1")}, "price"},
		{"capacity", model.CreateEventRequest{Title: "T", Type: "workshop", StartDate: start, Capacity: &zero}, "capacity"},
		{"date", model.CreateEventRequest{Title: "T", Type: "workshop"}, "date"},
		{"end date", model.CreateEventRequest{Title: "T", Type: "workshop", StartDate: start, EndDate: &before}, "end_date"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateEvent(context.Background(), tt.req)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestCreateEvent_NormalisesAndStores(t *testing.T) {
	db := newMemDB()
	svc := NewEventService(eventFake{db})

	e, err := svc.CreateEvent(context.Background(), model.CreateEventRequest{
		Title: "  Go Webinar ", Type: "Webinar", StartDate: time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "Go Webinar", e.Title)
	assert.Equal(t, model.EventTypeWebinar, e.Type)
	assert.True(t, e.IsFree())

	got, err := svc.GetEvent(context.Background(), e.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Participants)
}

func TestListEvents_Filters(t *testing.T) {
	db := newMemDB()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-24 * time.Hour)
	db.addEvent(model.Event{ID: "done", Type: model.EventTypeWorkshop, StartDate: now.Add(-48 * time.Hour), EndDate: &past})
	db.addEvent(model.Event{ID: "open", Type: model.EventTypeWorkshop, StartDate: now.Add(48 * time.Hour)})
	db.addEvent(model.Event{ID: "web", Type: model.EventTypeWebinar, StartDate: now})

	svc := NewEventService(eventFake{db})
	svc.now = func() time.Time { return now }

	completed, err := svc.ListEvents(context.Background(), "", "completed")
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "done", completed[0].ID)

	active, err := svc.ListEvents(context.Background(), model.EventTypeWorkshop, "active")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "open", active[0].ID)

	_, err = svc.ListEvents(context.Background(), "", "archived")
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestEventStats(t *testing.T) {
	db := newMemDB()
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	db.addEvent(model.Event{ID: "w1", Type: model.EventTypeWorkshop, StartDate: now.Add(time.Hour)})
	db.addEvent(model.Event{ID: "w2", Type: model.EventTypeWorkshop, StartDate: now.Add(-time.Hour)})
	db.addEvent(model.Event{ID: "i1", Type: model.EventTypeInternship, StartDate: now.Add(-time.Hour)})
	db.ledger["w1"] = []model.Participant{{SubjectID: "a"}, {SubjectID: "b"}}
	db.ledger["i1"] = []model.Participant{{SubjectID: "a"}}

	svc := NewEventService(eventFake{db})
	svc.now = func() time.Time { return now }

	stats, err := svc.EventStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalEvents)
	assert.Equal(t, 3, stats.TotalParticipants)
	require.Len(t, stats.ByType, 2)
	assert.Equal(t, model.TypeStats{Type: model.EventTypeInternship, Count: 1, TotalParticipants: 1}, stats.ByType[0])
	assert.Equal(t, model.TypeStats{Type: model.EventTypeWorkshop, Count: 2, TotalParticipants: 2, Upcoming: 1}, stats.ByType[1])
}

func TestUpdateEvent(t *testing.T) {
	db := newMemDB()
	svc := NewEventService(eventFake{db})
	ctx := context.Background()
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	created, err := svc.CreateEvent(ctx, model.CreateEventRequest{Title: "Go", Type: "workshop", StartDate: start})
	require.NoError(t, err)

	updated, err := svc.UpdateEvent(ctx, created.ID, model.CreateEventRequest{Title: " Go, revised ", Type: "Webinar", StartDate: start, Price: price("100")})
	require.NoError(t, err)
	assert.Equal(t, "Go, revised", updated.Title)
	assert.Equal(t, model.EventTypeWebinar, updated.Type)
	assert.False(t, updated.IsFree())

	_, err = svc.UpdateEvent(ctx, created.ID, model.CreateEventRequest{Title: "", Type: "webinar", StartDate: start})
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)

	_, err = svc.UpdateEvent(ctx, "missing", model.CreateEventRequest{Title: "X", Type: "webinar", StartDate: start})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "event", nf.Resource)
}

func TestDeleteEvent(t *testing.T) {
	db := newMemDB()
	svc := NewEventService(eventFake{db})
	ctx := context.Background()
	db.addEvent(model.Event{ID: "e1", Title: "Go", Type: model.EventTypeWorkshop, StartDate: time.Now()})
	db.ledger["e1"] = []model.Participant{{SubjectID: "alice"}}

	require.NoError(t, svc.DeleteEvent(ctx, "e1"))
	assert.NotContains(t, db.events, "e1")
	assert.Empty(t, db.participants("e1"))

	var nf *NotFoundError
	require.ErrorAs(t, svc.DeleteEvent(ctx, "e1"), &nf)
}
