package model

import "fmt"

// Status is the approval state of a registration or ledger entry.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// PaymentStatus mirrors Status in the upper-case vocabulary clients expect.
// It is always derived, never stored.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentApproved PaymentStatus = "APPROVED"
	PaymentRejected PaymentStatus = "REJECTED"
)

// ParseStatus validates a client-supplied status.
func ParseStatus(s string) (Status, error) {
	switch st := Status(s); st {
	case StatusPending, StatusApproved, StatusRejected:
		return st, nil
	}
	return "", fmt.Errorf("invalid status %q", s)
}

// PaymentStatus maps a status onto its payment counterpart.
func (s Status) PaymentStatus() PaymentStatus {
	switch s {
	case StatusApproved:
		return PaymentApproved
	case StatusRejected:
		return PaymentRejected
	}
	return PaymentPending
}

// DisplayLabel is the human-facing label used by participation history.
func (s Status) DisplayLabel() string {
	switch s {
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	case StatusPending:
		return "Pending"
	}
	return "Registered"
}

// InitialStatus is the status a brand-new or re-submitted registration
// starts in.
func InitialStatus(free bool) Status {
	if free {
		return StatusApproved
	}
	return StatusPending
}
