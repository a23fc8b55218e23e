package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-participation/internal/logger"
	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/notify"
	"github.com/Shivanand-hulikatti/event-participation/internal/repository"
)

// IssueCertificateInput is an admin upload of a certificate document.
type IssueCertificateInput struct {
	SubjectID string
	EventID   string
	Title     string
	FileName  string
	MimeType  string
	Data      []byte
}

// CertificateService issues and serves certificate documents.
type CertificateService struct {
	subjects     SubjectStore
	events       EventStore
	certificates CertificateStore
	files        FileStore
	notifier     Notifier
	now          func() time.Time
	log          *slog.Logger
}

// NewCertificateService constructs a CertificateService. notifier may be nil.
func NewCertificateService(
	subjects SubjectStore,
	events EventStore,
	certificates CertificateStore,
	files FileStore,
	notifier Notifier,
) *CertificateService {
	if notifier == nil {
		notifier = nopNotifier{}
	}
	return &CertificateService{
		subjects:     subjects,
		events:       events,
		certificates: certificates,
		files:        files,
		notifier:     notifier,
		now:          func() time.Time { return time.Now().UTC() },
		log:          logger.WithComponent("certificate"),
	}
}

// FileURL is where a stored file can be downloaded.
func FileURL(ref string) string { return "/api/files/" + ref }

// IssueCertificate stores the document and records it for the subject. An
// earlier certificate for the same subject and event is replaced and its
// document deleted.
func (s *CertificateService) IssueCertificate(ctx context.Context, in IssueCertificateInput) (*model.Certificate, error) {
	in.SubjectID = strings.TrimSpace(in.SubjectID)
	in.EventID = strings.TrimSpace(in.EventID)
	in.Title = strings.TrimSpace(in.Title)
	if in.SubjectID == "" {
		return nil, invalid("subject_id", "subject id is required")
	}
	if len(in.Data) == 0 {
		return nil, invalid("file", "certificate file is required")
	}
	if in.Title == "" {
		in.Title = model.DefaultCertificateTitle
	}

	subject, err := s.subjects.GetByID(ctx, in.SubjectID)
	if err != nil {
		return nil, notFound("subject", err)
	}
	var eventID *string
	if in.EventID != "" {
		if _, err := s.events.GetByID(ctx, in.EventID); err != nil {
			return nil, notFound("event", err)
		}
		eventID = &in.EventID
	}

	ref, err := s.files.Store(ctx, in.Data, in.FileName, in.MimeType)
	if err != nil {
		return nil, fmt.Errorf("store certificate file: %w", err)
	}

	cert, oldRef, err := s.record(ctx, subject.ID, eventID, in.Title, ref)
	if err != nil {
		s.deleteFile(ctx, ref)
		return nil, err
	}
	if oldRef != "" {
		s.deleteFile(ctx, oldRef)
	}
	cert.URL = FileURL(cert.FileRef)

	s.notifier.Notify(ctx, notify.Message{
		SubjectID: subject.ID,
		Email:     subject.Email,
		Name:      subject.FullName(),
		Event:     EventCertificateIssued,
		Title:     "Certificate Issued",
		Body:      fmt.Sprintf("Your certificate %q is ready to download.", cert.Title),
		Data:      cert,
	})

	s.log.InfoContext(ctx, "certificate issued", "certificate_id", cert.ID, "subject_id", subject.ID, "replaced", oldRef != "")
	return cert, nil
}

// record creates the certificate or repoints the existing one, returning
// the file reference it replaced.
func (s *CertificateService) record(ctx context.Context, subjectID string, eventID *string, title, ref string) (*model.Certificate, string, error) {
	existing, err := s.certificates.FindForEvent(ctx, subjectID, eventID)
	switch {
	case err == nil:
		oldRef := existing.FileRef
		existing.Title = title
		existing.FileRef = ref
		existing.IssuedAt = s.now()
		if err := s.certificates.Replace(ctx, existing); err != nil {
			return nil, "", fmt.Errorf("replace certificate: %w", err)
		}
		return existing, oldRef, nil
	case errors.Is(err, repository.ErrNotFound):
		cert := &model.Certificate{
			ID:        uuid.New().String(),
			SubjectID: subjectID,
			EventID:   eventID,
			Title:     title,
			FileRef:   ref,
			IssuedAt:  s.now(),
		}
		if err := s.certificates.Create(ctx, cert); err != nil {
			return nil, "", fmt.Errorf("create certificate: %w", err)
		}
		return cert, "", nil
	default:
		return nil, "", fmt.Errorf("find certificate: %w", err)
	}
}

func (s *CertificateService) deleteFile(ctx context.Context, ref string) {
	if err := s.files.Delete(ctx, ref); err != nil {
		s.log.WarnContext(ctx, "failed to delete certificate file", "file_ref", ref, "error", err)
	}
}

// MyCertificates lists the subject's certificates, newest first.
func (s *CertificateService) MyCertificates(ctx context.Context, subjectID string) ([]model.Certificate, error) {
	certs, err := s.certificates.ListBySubject(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	for i := range certs {
		certs[i].URL = FileURL(certs[i].FileRef)
	}
	return certs, nil
}

// DeleteCertificate removes the certificate and its document.
func (s *CertificateService) DeleteCertificate(ctx context.Context, id string) error {
	cert, err := s.certificates.GetByID(ctx, id)
	if err != nil {
		return notFound("certificate", err)
	}
	if err := s.certificates.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	s.deleteFile(ctx, cert.FileRef)
	return nil
}

// Viewer is the caller asking for a stored document.
type Viewer struct {
	SubjectID string
	Admin     bool
}

// OpenFile returns a stored document. Admins may open any document; anyone
// else only the documents of their own certificates. The caller must close
// the Body.
func (s *CertificateService) OpenFile(ctx context.Context, ref string, viewer Viewer) (*model.StoredFile, error) {
	if !viewer.Admin {
		cert, err := s.certificates.GetByFileRef(ctx, ref)
		if err != nil {
			return nil, notFound("file", err)
		}
		if cert.SubjectID != viewer.SubjectID {
			s.log.WarnContext(ctx, "certificate access denied", "file_ref", ref, "subject_id", viewer.SubjectID)
			return nil, ErrForbidden
		}
	}

	f, err := s.files.Retrieve(ctx, ref)
	if err != nil {
		return nil, notFound("file", err)
	}
	return f, nil
}
