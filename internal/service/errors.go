package service

import (
	"errors"
	"fmt"

	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

// ValidationError reports a request field the service rejected.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFoundError names the resource behind a repository.ErrNotFound so
// callers can tell a missing subject from a missing event.
type NotFoundError struct {
	Resource string
	Err      error
}

func (e *NotFoundError) Error() string { return e.Resource + ": " + e.Err.Error() }

func (e *NotFoundError) Unwrap() error { return e.Err }

// notFound tags a not-found err with resource and wraps anything else.
func notFound(resource string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return &NotFoundError{Resource: resource, Err: err}
	}
	return fmt.Errorf("%s: %w", resource, err)
}

var (
	// ErrForbidden is returned when the caller may not see the resource.
	ErrForbidden = errors.New("access denied")

	// ErrAlreadyParticipant is returned when the subject is already in the
	// event's ledger.
	ErrAlreadyParticipant = fmt.Errorf("already a participant of this event: %w", repository.ErrConflict)

	// ErrAlreadyRegistered is returned when the subject already holds a
	// pending or approved registration for the event.
	ErrAlreadyRegistered = fmt.Errorf("already registered for this event: %w", repository.ErrConflict)

	// ErrPaymentReferenceUsed is returned when another registration carries
	// the same payment reference.
	ErrPaymentReferenceUsed = fmt.Errorf("payment reference already used: %w", repository.ErrConflict)
)

// conflictError turns unique-constraint violations into the service's
// conflict errors.
func conflictError(err error) error {
	var ce *repository.ConflictError
	if !errors.As(err, &ce) {
		return err
	}
	switch ce.Constraint {
	case repository.ConstraintSubjectEvent:
		return ErrAlreadyRegistered
	case repository.ConstraintPaymentReference:
		return ErrPaymentReferenceUsed
	}
	return err
}
