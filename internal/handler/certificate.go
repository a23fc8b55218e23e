package handler

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Shivanand-hulikatti/event-participation/internal/logger"
	"github.com/Shivanand-hulikatti/event-participation/internal/model"
	"github.com/Shivanand-hulikatti/event-participation/internal/service"
)

// CertificateHandler serves certificate issuance and file downloads.
type CertificateHandler struct {
	svc      Certificates
	verifier TokenVerifier
	maxBytes int64
}

// NewCertificateHandler constructs a CertificateHandler. Uploads larger than
// maxBytes are rejected.
func NewCertificateHandler(svc Certificates, verifier TokenVerifier, maxBytes int64) *CertificateHandler {
	return &CertificateHandler{svc: svc, verifier: verifier, maxBytes: maxBytes}
}

// Issue handles POST /api/certificates
// Expects a multipart form with subject_id, optional event_id and title,
// and the document in the "certificate" field.
func (h *CertificateHandler) Issue(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "certificate file is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("certificate")
	if err != nil {
		writeError(w, http.StatusBadRequest, "certificate file is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "could not read certificate file")
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	cert, err := h.svc.IssueCertificate(r.Context(), service.IssueCertificateInput{
		SubjectID: r.FormValue("subject_id"),
		EventID:   r.FormValue("event_id"),
		Title:     r.FormValue("title"),
		FileName:  header.Filename,
		MimeType:  mimeType,
		Data:      data,
	})
	if err != nil {
		writeServiceError(w, r, err, "subject or event")
		return
	}
	writeJSON(w, http.StatusCreated, cert)
}

// My handles GET /api/certificates/my
func (h *CertificateHandler) My(w http.ResponseWriter, r *http.Request) {
	certs, err := h.svc.MyCertificates(r.Context(), identity(r).SubjectID)
	if err != nil {
		writeServiceError(w, r, err, "certificate")
		return
	}
	if certs == nil {
		certs = []model.Certificate{}
	}
	writeJSON(w, http.StatusOK, certs)
}

// Delete handles DELETE /api/certificates/{id}
func (h *CertificateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteCertificate(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, err, "certificate")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// File handles GET /api/files/{id}
// Streams a stored document to its owner or an admin.
func (h *CertificateHandler) File(w http.ResponseWriter, r *http.Request) {
	id := identity(r)
	viewer := service.Viewer{SubjectID: id.SubjectID, Admin: h.verifier.IsAdmin(id)}
	f, err := h.svc.OpenFile(r.Context(), chi.URLParam(r, "id"), viewer)
	if err != nil {
		writeServiceError(w, r, err, "file")
		return
	}
	defer f.Body.Close()

	w.Header().Set("Content-Type", f.MimeType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": f.Name}))
	w.Header().Set("Content-Length", strconv.FormatInt(f.Size, 10))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, f.Body); err != nil {
		logger.WarnContext(r.Context(), "file download interrupted", "file_id", f.Ref, "error", err)
	}
}
