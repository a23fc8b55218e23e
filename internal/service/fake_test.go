package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/notify"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

// memDB is an in-memory stand-in for the Postgres schema. It enforces the
// same unique constraints and version checks.
type memDB struct {
	mu       sync.Mutex
	clock    time.Time
	subjects map[string]model.Subject
	events   map[string]model.Event
	ledger   map[string][]model.Participant
	regs     map[string]model.Registration
	certs    map[string]model.Certificate
	files    map[string][]byte
	seq      int

	// beforeUpdate runs, unlocked, before each registration update.
	beforeUpdate func(reg model.Registration)
	// afterUpdate runs, unlocked, after each successful registration update.
	afterUpdate func(reg model.Registration)
	// addParticipantErr, when set, fails the next ledger append.
	addParticipantErr error
}

func newMemDB() *memDB {
	return &memDB{
		clock:    time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		subjects: map[string]model.Subject{},
		events:   map[string]model.Event{},
		ledger:   map[string][]model.Participant{},
		regs:     map[string]model.Registration{},
		certs:    map[string]model.Certificate{},
		files:    map[string][]byte{},
	}
}

// tick advances the fake clock so created_at ordering is deterministic.
// Callers hold mu.
func (db *memDB) tick() time.Time {
	db.clock = db.clock.Add(time.Second)
	return db.clock
}

func (db *memDB) addSubject(id, email, first, last string) model.Subject {
	s := model.Subject{ID: id, Email: email, FirstName: first, LastName: last}
	db.mu.Lock()
	db.subjects[id] = s
	db.mu.Unlock()
	return s
}

func (db *memDB) addEvent(e model.Event) model.Event {
	db.mu.Lock()
	db.events[e.ID] = e
	db.mu.Unlock()
	return e
}

func (db *memDB) participants(eventID string) []model.Participant {
	db.mu.Lock()
	defer db.mu.Unlock()
	return append([]model.Participant(nil), db.ledger[eventID]...)
}

type subjectFake struct{ db *memDB }

func (f subjectFake) GetByID(_ context.Context, id string) (*model.Subject, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	s, ok := f.db.subjects[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &s, nil
}

type eventFake struct{ db *memDB }

func (f eventFake) Create(_ context.Context, req model.CreateEventRequest) (*model.Event, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.seq++
	e := model.Event{
		ID: fmt.Sprintf("event-%d", f.db.seq), Title: req.Title, Type: req.Type, Price: req.Price,
		Capacity: req.Capacity, StartDate: req.StartDate, EndDate: req.EndDate, MeetingLink: req.MeetingLink,
		CreatedAt: f.db.tick(),
	}
	f.db.events[e.ID] = e
	return &e, nil
}

func (f eventFake) GetByID(_ context.Context, id string) (*model.Event, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (f eventFake) Update(_ context.Context, id string, req model.CreateEventRequest) (*model.Event, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	e, ok := f.db.events[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	e.Title, e.Description, e.Type, e.Price, e.Capacity = req.Title, req.Description, req.Type, req.Price, req.Capacity
	e.StartDate, e.EndDate, e.MeetingLink = req.StartDate, req.EndDate, req.MeetingLink
	f.db.events[id] = e
	return &e, nil
}

// Delete cascades to the ledger and leaves registrations behind, like the
// schema.
func (f eventFake) Delete(_ context.Context, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.events[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.db.events, id)
	delete(f.db.ledger, id)
	return nil
}

func (f eventFake) GetWithParticipants(ctx context.Context, id string) (*model.Event, error) {
	e, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Participants = f.db.participants(id)
	return e, nil
}

func (f eventFake) List(_ context.Context, filter repository.EventFilter) ([]model.Event, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.Event{}
	for _, e := range f.db.events {
		if filter.Type != "" && e.Type != filter.Type {
			continue
		}
		if filter.Status == "completed" && !e.Completed(filter.Now) {
			continue
		}
		if filter.Status == "active" && e.Completed(filter.Now) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

func (f eventFake) ListLedgerEntries(_ context.Context, subjectID string) ([]model.LedgerEntry, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.LedgerEntry{}
	for eventID, ps := range f.db.ledger {
		for _, p := range ps {
			if p.SubjectID == subjectID {
				out = append(out, model.LedgerEntry{Event: f.db.events[eventID], Participant: p})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event.StartDate.After(out[j].Event.StartDate) })
	return out, nil
}

func (f eventFake) AddParticipant(_ context.Context, eventID string, p model.Participant) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if err := f.db.addParticipantErr; err != nil {
		f.db.addParticipantErr = nil
		return false, err
	}
	if _, ok := f.db.events[eventID]; !ok {
		return false, repository.ErrNotFound
	}
	for _, existing := range f.db.ledger[eventID] {
		if existing.SubjectID == p.SubjectID {
			return false, nil
		}
	}
	f.db.ledger[eventID] = append(f.db.ledger[eventID], p)
	return true, nil
}

func (f eventFake) SetParticipantStatus(_ context.Context, eventID, subjectID string, status model.Status) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for i, p := range f.db.ledger[eventID] {
		if p.SubjectID == subjectID {
			f.db.ledger[eventID][i].Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f eventFake) RemoveParticipant(_ context.Context, eventID, subjectID string) (int, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	ps := f.db.ledger[eventID]
	for i, p := range ps {
		if p.SubjectID == subjectID {
			f.db.ledger[eventID] = append(ps[:i:i], ps[i+1:]...)
			return len(f.db.ledger[eventID]), nil
		}
	}
	return 0, repository.ErrNotFound
}

func (f eventFake) Stats(_ context.Context, now time.Time) (*model.EventStats, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	byType := map[string]*model.TypeStats{}
	stats := &model.EventStats{ByType: []model.TypeStats{}}
	for id, e := range f.db.events {
		ts, ok := byType[e.Type]
		if !ok {
			ts = &model.TypeStats{Type: e.Type}
			byType[e.Type] = ts
		}
		ts.Count++
		ts.TotalParticipants += len(f.db.ledger[id])
		if e.StartDate.After(now) {
			ts.Upcoming++
		}
	}
	for _, ts := range byType {
		stats.TotalEvents += ts.Count
		stats.TotalParticipants += ts.TotalParticipants
		stats.ByType = append(stats.ByType, *ts)
	}
	sort.Slice(stats.ByType, func(i, j int) bool { return stats.ByType[i].Type < stats.ByType[j].Type })
	return stats, nil
}

type registrationFake struct{ db *memDB }

// uniqueViolation mirrors the table's unique constraints. Callers hold mu.
func (f registrationFake) uniqueViolation(reg model.Registration) error {
	for _, other := range f.db.regs {
		if other.ID == reg.ID {
			continue
		}
		if other.SubjectID == reg.SubjectID && other.EventID == reg.EventID {
			return &repository.ConflictError{Constraint: repository.ConstraintSubjectEvent, Err: fmt.Errorf("duplicate key")}
		}
		if other.PaymentReference == reg.PaymentReference {
			return &repository.ConflictError{Constraint: repository.ConstraintPaymentReference, Err: fmt.Errorf("duplicate key")}
		}
	}
	return nil
}

func (f registrationFake) Create(_ context.Context, reg *model.Registration) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if err := f.uniqueViolation(*reg); err != nil {
		return err
	}
	now := f.db.tick()
	reg.CreatedAt, reg.UpdatedAt, reg.Version = now, now, 1
	f.db.regs[reg.ID] = *reg
	return nil
}

func (f registrationFake) GetByID(_ context.Context, id string) (*model.Registration, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	reg, ok := f.db.regs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &reg, nil
}

func (f registrationFake) GetBySubjectAndEvent(_ context.Context, subjectID, eventID string) (*model.Registration, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, reg := range f.db.regs {
		if reg.SubjectID == subjectID && reg.EventID == eventID {
			return &reg, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f registrationFake) PaymentReferenceInUse(_ context.Context, ref, excludeID string) (bool, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, reg := range f.db.regs {
		if reg.PaymentReference == ref && reg.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (f registrationFake) Update(_ context.Context, reg *model.Registration) error {
	if hook := f.db.beforeUpdate; hook != nil {
		hook(*reg)
	}
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	stored, ok := f.db.regs[reg.ID]
	if !ok || stored.Version != reg.Version {
		return repository.ErrStale
	}
	if err := f.uniqueViolation(*reg); err != nil {
		return err
	}
	reg.Version++
	f.db.regs[reg.ID] = *reg
	f.db.mu.Unlock()
	if hook := f.db.afterUpdate; hook != nil {
		hook(*reg)
	}
	f.db.mu.Lock()
	return nil
}

// bump simulates a concurrent writer.
func (f registrationFake) bump(id string) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	reg := f.db.regs[id]
	reg.Version++
	f.db.regs[id] = reg
}

func (f registrationFake) ListBySubject(_ context.Context, subjectID string) ([]model.RegistrationView, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.RegistrationView{}
	for _, reg := range f.db.regs {
		if reg.SubjectID != subjectID {
			continue
		}
		e, ok := f.db.events[reg.EventID]
		if !ok {
			continue
		}
		out = append(out, model.RegistrationView{Registration: reg, Event: e.Summary()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f registrationFake) ListByEvent(_ context.Context, eventID string) ([]model.EventRegistration, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.EventRegistration{}
	for _, reg := range f.db.regs {
		if reg.EventID != eventID {
			continue
		}
		s := f.db.subjects[reg.SubjectID]
		out = append(out, model.EventRegistration{
			Registration: reg,
			Subject:      model.SubjectSummary{ID: s.ID, Email: s.Email, FirstName: s.FirstName, LastName: s.LastName},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type certificateFake struct{ db *memDB }

func (f certificateFake) Create(_ context.Context, c *model.Certificate) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.certs[c.ID] = *c
	return nil
}

func (f certificateFake) GetByID(_ context.Context, id string) (*model.Certificate, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	c, ok := f.db.certs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (f certificateFake) GetByFileRef(_ context.Context, ref string) (*model.Certificate, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.certs {
		if c.FileRef == ref {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f certificateFake) FindForEvent(_ context.Context, subjectID string, eventID *string) (*model.Certificate, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	for _, c := range f.db.certs {
		if c.SubjectID != subjectID {
			continue
		}
		if (c.EventID == nil) != (eventID == nil) {
			continue
		}
		if c.EventID != nil && *c.EventID != *eventID {
			continue
		}
		return &c, nil
	}
	return nil, repository.ErrNotFound
}

func (f certificateFake) Replace(_ context.Context, c *model.Certificate) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.certs[c.ID]; !ok {
		return repository.ErrNotFound
	}
	f.db.certs[c.ID] = *c
	return nil
}

func (f certificateFake) ListBySubject(_ context.Context, subjectID string) ([]model.Certificate, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	out := []model.Certificate{}
	for _, c := range f.db.certs {
		if c.SubjectID == subjectID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (f certificateFake) Delete(_ context.Context, id string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	if _, ok := f.db.certs[id]; !ok {
		return repository.ErrNotFound
	}
	delete(f.db.certs, id)
	return nil
}

type fileFake struct{ db *memDB }

func (f fileFake) Store(_ context.Context, data []byte, _, _ string) (string, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	f.db.seq++
	ref := fmt.Sprintf("file-%d", f.db.seq)
	f.db.files[ref] = append([]byte(nil), data...)
	return ref, nil
}

func (f fileFake) Retrieve(_ context.Context, ref string) (*model.StoredFile, error) {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	data, ok := f.db.files[ref]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &model.StoredFile{Ref: ref, Size: int64(len(data)), Body: io.NopCloser(bytes.NewReader(data))}, nil
}

func (f fileFake) Delete(_ context.Context, ref string) error {
	f.db.mu.Lock()
	defer f.db.mu.Unlock()
	delete(f.db.files, ref)
	return nil
}

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) Notify(ctx context.Context, msg notify.Message) {
	m.Called(ctx, msg)
}

func (m *mockNotifier) Broadcast(ctx context.Context, room, event string, payload any) {
	m.Called(ctx, room, event, payload)
}

// quietNotifier accepts any delivery.
func quietNotifier() *mockNotifier {
	n := &mockNotifier{}
	n.On("Notify", mock.Anything, mock.Anything).Maybe()
	n.On("Broadcast", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Maybe()
	return n
}
