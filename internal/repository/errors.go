package repository

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint.
var ErrConflict = errors.New("conflict")

// ErrStale is returned when an optimistic update lost a race with another
// writer. Callers re-read and retry.
var ErrStale = errors.New("stale write")

// Unique constraints surfaced through ConflictError.
const (
	ConstraintSubjectEvent     = "registrations_subject_event_key"
	ConstraintPaymentReference = "registrations_payment_reference_key"
)

const (
	uniqueViolation     = "23505"
	invalidTextEncoding = "22P02"
)

// ConflictError reports which unique constraint a write violated.
type ConflictError struct {
	Constraint string
	Err        error
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s: %v", e.Constraint, e.Err)
}

func (e *ConflictError) Is(target error) bool { return target == ErrConflict }

func (e *ConflictError) Unwrap() error { return e.Err }

// wrap translates driver errors into repository sentinels.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return &ConflictError{Constraint: pgErr.ConstraintName, Err: err}
		case invalidTextEncoding:
			// A malformed UUID can never match a row.
			return ErrNotFound
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
