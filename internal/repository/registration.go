package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

const registrationColumns = `r.id, r.subject_id, r.event_id, r.name_on_certificate, r.payment_reference,
	r.status, r.rejection_reason, r.rejected_at, r.admin_message, r.version, r.created_at, r.updated_at`

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

func registrationDest(reg *model.Registration, status *string) []any {
	return []any{&reg.ID, &reg.SubjectID, &reg.EventID, &reg.NameOnCertificate, &reg.PaymentReference,
		status, &reg.RejectionReason, &reg.RejectedAt, &reg.AdminMessage, &reg.Version,
		&reg.CreatedAt, &reg.UpdatedAt}
}

func scanRegistration(row scanner, reg *model.Registration) error {
	var status string
	if err := row.Scan(registrationDest(reg, &status)...); err != nil {
		return err
	}
	reg.Status = model.Status(status)
	return nil
}

// Create inserts a new registration. The unique constraints on
// (subject_id, event_id) and payment_reference surface as *ConflictError.
func (r *RegistrationRepository) Create(ctx context.Context, reg *model.Registration) error {
	now := time.Now().UTC()
	reg.CreatedAt, reg.UpdatedAt, reg.Version = now, now, 1

	_, err := r.db.Exec(ctx,
		`INSERT INTO registrations (id, subject_id, event_id, name_on_certificate, payment_reference,
		     status, rejection_reason, rejected_at, admin_message, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		reg.ID, reg.SubjectID, reg.EventID, reg.NameOnCertificate, reg.PaymentReference,
		string(reg.Status), reg.RejectionReason, reg.RejectedAt, reg.AdminMessage, reg.Version,
		reg.CreatedAt, reg.UpdatedAt,
	)
	return wrap("insert registration", err)
}

// GetByID returns a single registration or ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	var reg model.Registration
	row := r.db.QueryRow(ctx, `SELECT `+registrationColumns+` FROM registrations r WHERE r.id = $1`, id)
	if err := scanRegistration(row, &reg); err != nil {
		return nil, wrap("get registration", err)
	}
	return &reg, nil
}

// GetBySubjectAndEvent returns the subject's registration for the event or
// ErrNotFound.
func (r *RegistrationRepository) GetBySubjectAndEvent(ctx context.Context, subjectID, eventID string) (*model.Registration, error) {
	var reg model.Registration
	row := r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations r WHERE r.subject_id = $1 AND r.event_id = $2`,
		subjectID, eventID,
	)
	if err := scanRegistration(row, &reg); err != nil {
		return nil, wrap("get registration", err)
	}
	return &reg, nil
}

// PaymentReferenceInUse reports whether a registration other than excludeID
// already carries the reference. An empty excludeID excludes nothing.
func (r *RegistrationRepository) PaymentReferenceInUse(ctx context.Context, ref, excludeID string) (bool, error) {
	var inUse bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
		     SELECT 1 FROM registrations
		     WHERE payment_reference = $1 AND ($2 = '' OR id::text <> $2)
		 )`,
		ref, excludeID,
	).Scan(&inUse)
	if err != nil {
		return false, wrap("check payment reference", err)
	}
	return inUse, nil
}

// Update writes the mutable fields of reg if its version still matches the
// stored one. On success reg.Version is advanced; when another writer got
// there first ErrStale is returned and nothing is written.
func (r *RegistrationRepository) Update(ctx context.Context, reg *model.Registration) error {
	now := time.Now().UTC()
	tag, err := r.db.Exec(ctx,
		`UPDATE registrations
		 SET name_on_certificate = $3, payment_reference = $4, status = $5,
		     rejection_reason = $6, rejected_at = $7, admin_message = $8,
		     version = version + 1, updated_at = $9
		 WHERE id = $1 AND version = $2`,
		reg.ID, reg.Version, reg.NameOnCertificate, reg.PaymentReference, string(reg.Status),
		reg.RejectionReason, reg.RejectedAt, reg.AdminMessage, now,
	)
	if err != nil {
		return wrap("update registration", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStale
	}
	reg.Version++
	reg.UpdatedAt = now
	return nil
}

// ListBySubject returns the subject's registrations joined with their
// events, newest registration first. Registrations whose event no longer
// exists are skipped.
func (r *RegistrationRepository) ListBySubject(ctx context.Context, subjectID string) ([]model.RegistrationView, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+`,
		        e.title, e.type, e.start_date, e.end_date, e.price::text, e.meeting_link
		 FROM registrations r
		 JOIN events e ON e.id = r.event_id
		 WHERE r.subject_id = $1
		 ORDER BY r.created_at DESC`,
		subjectID,
	)
	if err != nil {
		return nil, wrap("list registrations", err)
	}
	defer rows.Close()

	views := []model.RegistrationView{}
	for rows.Next() {
		var (
			v      model.RegistrationView
			status string
			price  *string
		)
		dest := append(registrationDest(&v.Registration, &status),
			&v.Event.Title, &v.Event.Type, &v.Event.Date, &v.Event.EndDate, &price, &v.Event.MeetingLink)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		v.Status = model.Status(status)
		v.Event.ID = v.EventID
		if v.Event.Price, err = parsePrice(price); err != nil {
			return nil, err
		}
		views = append(views, v)
	}
	return views, rows.Err()
}

// ListByEvent returns the event's registrations joined with their subjects,
// newest first.
func (r *RegistrationRepository) ListByEvent(ctx context.Context, eventID string) ([]model.EventRegistration, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+registrationColumns+`, s.email, s.first_name, s.last_name
		 FROM registrations r
		 JOIN subjects s ON s.id = r.subject_id
		 WHERE r.event_id = $1
		 ORDER BY r.created_at DESC`,
		eventID,
	)
	if err != nil {
		return nil, wrap("list registrations", err)
	}
	defer rows.Close()

	regs := []model.EventRegistration{}
	for rows.Next() {
		var (
			er     model.EventRegistration
			status string
		)
		dest := append(registrationDest(&er.Registration, &status),
			&er.Subject.Email, &er.Subject.FirstName, &er.Subject.LastName)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		er.Status = model.Status(status)
		er.Subject.ID = er.SubjectID
		regs = append(regs, er)
	}
	return regs, rows.Err()
}
