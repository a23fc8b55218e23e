package model

import (
	"io"
	"time"
)

// DefaultCertificateTitle is used when an admin issues a certificate without a title.
const DefaultCertificateTitle = "Certificate of Achievement"

// Certificate is a document issued to a subject, optionally tied to an event.
type Certificate struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	EventID   *string   `json:"event_id,omitempty"`
	Title     string    `json:"title"`
	FileRef   string    `json:"file_ref"`
	URL       string    `json:"url"`
	IssuedAt  time.Time `json:"issued_at"`
}

// StoredFile is a blob held by the object store.
type StoredFile struct {
	Ref      string
	Name     string
	MimeType string
	Size     int64
	Body     io.ReadCloser
}
