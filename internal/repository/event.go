package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

const eventColumns = `e.id, e.title, e.description, e.type, e.price::text, e.capacity,
	e.start_date, e.end_date, e.meeting_link, e.created_at`

// EventFilter narrows List. Zero values match everything.
type EventFilter struct {
	Type string
	// Status is "active" (not yet ended) or "completed".
	Status string
	Now    time.Time
}

// EventRepository handles persistence for events and their participant
// ledger.
type EventRepository struct {
	db DB
}

// NewEventRepository constructs an EventRepository.
func NewEventRepository(db DB) *EventRepository {
	return &EventRepository{db: db}
}

func scanEvent(row scanner, e *model.Event) error {
	var price *string
	if err := row.Scan(&e.ID, &e.Title, &e.Description, &e.Type, &price, &e.Capacity,
		&e.StartDate, &e.EndDate, &e.MeetingLink, &e.CreatedAt); err != nil {
		return err
	}
	var err error
	e.Price, err = parsePrice(price)
	return err
}

// parsePrice decodes a NUMERIC selected as text. NULL means free.
func parsePrice(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, fmt.Errorf("parse price %q: %w", *s, err)
	}
	return &d, nil
}

// Create inserts a new event and returns it with a generated UUID.
func (r *EventRepository) Create(ctx context.Context, req model.CreateEventRequest) (*model.Event, error) {
	event := &model.Event{
		ID:           uuid.New().String(),
		Title:        req.Title,
		Description:  req.Description,
		Type:         req.Type,
		Price:        req.Price,
		Capacity:     req.Capacity,
		StartDate:    req.StartDate.UTC(),
		EndDate:      req.EndDate,
		MeetingLink:  req.MeetingLink,
		Participants: []model.Participant{},
		CreatedAt:    time.Now().UTC(),
	}

	var price *string
	if event.Price != nil {
		s := event.Price.String()
		price = &s
	}

	_, err := r.db.Exec(ctx,
		`INSERT INTO events (id, title, description, type, price, capacity, start_date, end_date, meeting_link, created_at)
		 VALUES ($1, $2, $3, $4, $5::numeric, $6, $7, $8, $9, $10)`,
		event.ID, event.Title, event.Description, event.Type, price, event.Capacity,
		event.StartDate, event.EndDate, event.MeetingLink, event.CreatedAt,
	)
	if err != nil {
		return nil, wrap("insert event", err)
	}
	return event, nil
}

// Update replaces the event's editable fields and returns the stored row,
// or ErrNotFound.
func (r *EventRepository) Update(ctx context.Context, id string, req model.CreateEventRequest) (*model.Event, error) {
	var price *string
	if req.Price != nil {
		s := req.Price.String()
		price = &s
	}

	var e model.Event
	row := r.db.QueryRow(ctx,
		`UPDATE events AS e
		 SET title = $2, description = $3, type = $4, price = $5::numeric, capacity = $6,
		     start_date = $7, end_date = $8, meeting_link = $9
		 WHERE e.id = $1
		 RETURNING `+eventColumns,
		id, req.Title, req.Description, req.Type, price, req.Capacity,
		req.StartDate.UTC(), req.EndDate, req.MeetingLink,
	)
	if err := scanEvent(row, &e); err != nil {
		return nil, wrap("update event", err)
	}
	return &e, nil
}

// Delete removes the event. Its ledger goes with it; registrations stay
// behind and certificates lose their event link.
func (r *EventRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return wrap("delete event", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID returns a single event without its participants, or ErrNotFound.
func (r *EventRepository) GetByID(ctx context.Context, id string) (*model.Event, error) {
	var e model.Event
	row := r.db.QueryRow(ctx, `SELECT `+eventColumns+` FROM events e WHERE e.id = $1`, id)
	if err := scanEvent(row, &e); err != nil {
		return nil, wrap("get event", err)
	}
	return &e, nil
}

// GetWithParticipants returns the event and its full ledger.
func (r *EventRepository) GetWithParticipants(ctx context.Context, id string) (*model.Event, error) {
	e, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Participants, err = r.Participants(ctx, id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

// List returns events matching the filter, newest start date first.
func (r *EventRepository) List(ctx context.Context, f EventFilter) ([]model.Event, error) {
	var (
		conds []string
		args  []any
	)
	if f.Type != "" {
		args = append(args, f.Type)
		conds = append(conds, fmt.Sprintf("e.type = $%d", len(args)))
	}
	switch f.Status {
	case "active":
		args = append(args, f.Now)
		conds = append(conds, fmt.Sprintf("(e.end_date IS NULL OR e.end_date >= $%d)", len(args)))
	case "completed":
		args = append(args, f.Now)
		conds = append(conds, fmt.Sprintf("e.end_date < $%d", len(args)))
	}

	query := `SELECT ` + eventColumns + ` FROM events e`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY e.start_date DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, wrap("list events", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		var e model.Event
		if err := scanEvent(rows, &e); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

// Participants returns the event's ledger in registration order.
func (r *EventRepository) Participants(ctx context.Context, eventID string) ([]model.Participant, error) {
	rows, err := r.db.Query(ctx,
		`SELECT subject_id, email, name, registered_at, status
		 FROM event_participants
		 WHERE event_id = $1
		 ORDER BY registered_at ASC`,
		eventID,
	)
	if err != nil {
		return nil, wrap("list participants", err)
	}
	defer rows.Close()

	participants := []model.Participant{}
	for rows.Next() {
		var (
			p      model.Participant
			status *string
		)
		if err := rows.Scan(&p.SubjectID, &p.Email, &p.Name, &p.RegisteredAt, &status); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		if status != nil {
			p.Status = model.Status(*status)
		}
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// ListLedgerEntries returns every event whose ledger contains the subject,
// paired with the subject's entry, newest event first.
func (r *EventRepository) ListLedgerEntries(ctx context.Context, subjectID string) ([]model.LedgerEntry, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+eventColumns+`, p.subject_id, p.email, p.name, p.registered_at, p.status
		 FROM event_participants p
		 JOIN events e ON e.id = p.event_id
		 WHERE p.subject_id = $1
		 ORDER BY e.start_date DESC`,
		subjectID,
	)
	if err != nil {
		return nil, wrap("list ledger entries", err)
	}
	defer rows.Close()

	entries := []model.LedgerEntry{}
	for rows.Next() {
		var (
			entry  model.LedgerEntry
			price  *string
			status *string
		)
		e, p := &entry.Event, &entry.Participant
		if err := rows.Scan(&e.ID, &e.Title, &e.Description, &e.Type, &price, &e.Capacity,
			&e.StartDate, &e.EndDate, &e.MeetingLink, &e.CreatedAt,
			&p.SubjectID, &p.Email, &p.Name, &p.RegisteredAt, &status); err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		if e.Price, err = parsePrice(price); err != nil {
			return nil, err
		}
		if status != nil {
			p.Status = model.Status(*status)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// AddParticipant appends the subject to the event's ledger unless already
// present and reports whether a row was written.
//
// The event row is locked for the duration of the transaction so concurrent
// appends for the same event run one at a time; the (event_id, subject_id)
// primary key still rejects any duplicate that slips past the check.
func (r *EventRepository) AddParticipant(ctx context.Context, eventID string, p model.Participant) (added bool, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var locked string
	err = tx.QueryRow(ctx, `SELECT id FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&locked)
	if err != nil {
		return false, wrap("lock event row", err)
	}

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM event_participants WHERE event_id = $1 AND subject_id = $2)`,
		eventID, p.SubjectID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check membership: %w", err)
	}

	if !exists {
		var status *string
		if p.Status != "" {
			s := string(p.Status)
			status = &s
		}
		tag, execErr := tx.Exec(ctx,
			`INSERT INTO event_participants (event_id, subject_id, email, name, registered_at, status)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (event_id, subject_id) DO NOTHING`,
			eventID, p.SubjectID, p.Email, p.Name, p.RegisteredAt, status,
		)
		if execErr != nil {
			err = execErr
			return false, fmt.Errorf("insert participant: %w", err)
		}
		added = tag.RowsAffected() == 1
	}

	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit transaction: %w", err)
	}
	return added, nil
}

// SetParticipantStatus changes the status of an existing ledger entry.
// It returns ErrNotFound when the subject is not in the ledger.
func (r *EventRepository) SetParticipantStatus(ctx context.Context, eventID, subjectID string, status model.Status) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE event_participants SET status = $3 WHERE event_id = $1 AND subject_id = $2`,
		eventID, subjectID, string(status),
	)
	if err != nil {
		return wrap("update participant status", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// RemoveParticipant deletes the subject's ledger entry and returns the
// number of participants left. It returns ErrNotFound when there was no
// entry to remove.
func (r *EventRepository) RemoveParticipant(ctx context.Context, eventID, subjectID string) (remaining int, err error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	tag, err := tx.Exec(ctx,
		`DELETE FROM event_participants WHERE event_id = $1 AND subject_id = $2`,
		eventID, subjectID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete participant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		err = ErrNotFound
		return 0, err
	}

	err = tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM event_participants WHERE event_id = $1`,
		eventID,
	).Scan(&remaining)
	if err != nil {
		return 0, fmt.Errorf("count participants: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return remaining, nil
}

// Stats aggregates events and participants per event type.
func (r *EventRepository) Stats(ctx context.Context, now time.Time) (*model.EventStats, error) {
	rows, err := r.db.Query(ctx,
		`SELECT e.type,
		        COUNT(*),
		        COALESCE(SUM(pc.n), 0)::int,
		        COUNT(*) FILTER (WHERE e.start_date > $1)
		 FROM events e
		 LEFT JOIN (
		     SELECT event_id, COUNT(*) AS n FROM event_participants GROUP BY event_id
		 ) pc ON pc.event_id = e.id
		 GROUP BY e.type
		 ORDER BY e.type`,
		now,
	)
	if err != nil {
		return nil, wrap("event stats", err)
	}
	defer rows.Close()

	stats := &model.EventStats{ByType: []model.TypeStats{}}
	for rows.Next() {
		var ts model.TypeStats
		if err := rows.Scan(&ts.Type, &ts.Count, &ts.TotalParticipants, &ts.Upcoming); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.TotalEvents += ts.Count
		stats.TotalParticipants += ts.TotalParticipants
		stats.ByType = append(stats.ByType, ts)
	}
	return stats, rows.Err()
}
