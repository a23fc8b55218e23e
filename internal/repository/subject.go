package repository

import (
	"context"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// SubjectRepository reads subjects provisioned by the identity provider.
type SubjectRepository struct {
	db DB
}

// NewSubjectRepository constructs a SubjectRepository.
func NewSubjectRepository(db DB) *SubjectRepository {
	return &SubjectRepository{db: db}
}

// GetByID returns a single subject or ErrNotFound.
func (r *SubjectRepository) GetByID(ctx context.Context, id string) (*model.Subject, error) {
	var s model.Subject
	err := r.db.QueryRow(ctx,
		`SELECT id, email, first_name, last_name, created_at
		 FROM subjects WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.Email, &s.FirstName, &s.LastName, &s.CreatedAt)
	if err != nil {
		return nil, wrap("get subject", err)
	}
	return &s, nil
}
