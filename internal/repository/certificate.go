package repository

import (
	"context"
	"fmt"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

const certificateColumns = `id, subject_id, event_id, title, file_ref, issued_at`

// CertificateRepository handles persistence for issued certificates.
type CertificateRepository struct {
	db DB
}

// NewCertificateRepository constructs a CertificateRepository.
func NewCertificateRepository(db DB) *CertificateRepository {
	return &CertificateRepository{db: db}
}

func scanCertificate(row scanner, c *model.Certificate) error {
	return row.Scan(&c.ID, &c.SubjectID, &c.EventID, &c.Title, &c.FileRef, &c.IssuedAt)
}

// Create inserts a certificate record.
func (r *CertificateRepository) Create(ctx context.Context, c *model.Certificate) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO certificates (`+certificateColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		c.ID, c.SubjectID, c.EventID, c.Title, c.FileRef, c.IssuedAt,
	)
	return wrap("insert certificate", err)
}

// GetByID returns a single certificate or ErrNotFound.
func (r *CertificateRepository) GetByID(ctx context.Context, id string) (*model.Certificate, error) {
	var c model.Certificate
	row := r.db.QueryRow(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE id = $1`, id)
	if err := scanCertificate(row, &c); err != nil {
		return nil, wrap("get certificate", err)
	}
	return &c, nil
}

// GetByFileRef returns the certificate whose document is ref, or
// ErrNotFound.
func (r *CertificateRepository) GetByFileRef(ctx context.Context, ref string) (*model.Certificate, error) {
	var c model.Certificate
	row := r.db.QueryRow(ctx, `SELECT `+certificateColumns+` FROM certificates WHERE file_ref = $1`, ref)
	if err := scanCertificate(row, &c); err != nil {
		return nil, wrap("get certificate by file", err)
	}
	return &c, nil
}

// FindForEvent returns the subject's certificate for the event, or
// ErrNotFound. A nil eventID matches certificates not tied to any event.
func (r *CertificateRepository) FindForEvent(ctx context.Context, subjectID string, eventID *string) (*model.Certificate, error) {
	var c model.Certificate
	row := r.db.QueryRow(ctx,
		`SELECT `+certificateColumns+` FROM certificates
		 WHERE subject_id = $1 AND event_id IS NOT DISTINCT FROM $2::uuid
		 ORDER BY issued_at DESC LIMIT 1`,
		subjectID, eventID,
	)
	if err := scanCertificate(row, &c); err != nil {
		return nil, wrap("find certificate", err)
	}
	return &c, nil
}

// Replace points an existing certificate at a new file and title.
func (r *CertificateRepository) Replace(ctx context.Context, c *model.Certificate) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE certificates SET title = $2, file_ref = $3, issued_at = $4 WHERE id = $1`,
		c.ID, c.Title, c.FileRef, c.IssuedAt,
	)
	if err != nil {
		return wrap("update certificate", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListBySubject returns the subject's certificates, newest first.
func (r *CertificateRepository) ListBySubject(ctx context.Context, subjectID string) ([]model.Certificate, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+certificateColumns+` FROM certificates WHERE subject_id = $1 ORDER BY issued_at DESC`,
		subjectID,
	)
	if err != nil {
		return nil, wrap("list certificates", err)
	}
	defer rows.Close()

	certs := []model.Certificate{}
	for rows.Next() {
		var c model.Certificate
		if err := scanCertificate(rows, &c); err != nil {
			return nil, fmt.Errorf("scan certificate: %w", err)
		}
		certs = append(certs, c)
	}
	return certs, rows.Err()
}

// Delete removes a certificate record. It returns ErrNotFound when absent.
func (r *CertificateRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return wrap("delete certificate", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
