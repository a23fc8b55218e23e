package repository

import (
	"bytes"
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/Shivanand-hulikatti/event-participation/internal/model"
)

// FileStore keeps uploaded blobs in the files table.
type FileStore struct {
	db DB
}

// NewFileStore constructs a FileStore.
func NewFileStore(db DB) *FileStore {
	return &FileStore{db: db}
}

// Store saves data and returns its reference.
func (s *FileStore) Store(ctx context.Context, data []byte, name, mimeType string) (string, error) {
	ref := uuid.New().String()
	_, err := s.db.Exec(ctx,
		`INSERT INTO files (id, name, mime_type, size, data, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		ref, name, mimeType, int64(len(data)), data, time.Now().UTC(),
	)
	if err != nil {
		return "", wrap("store file", err)
	}
	return ref, nil
}

// Retrieve loads a stored file. The caller must close Body.
func (s *FileStore) Retrieve(ctx context.Context, ref string) (*model.StoredFile, error) {
	var (
		f    model.StoredFile
		data []byte
	)
	err := s.db.QueryRow(ctx,
		`SELECT id, name, mime_type, size, data FROM files WHERE id = $1`,
		ref,
	).Scan(&f.Ref, &f.Name, &f.MimeType, &f.Size, &data)
	if err != nil {
		return nil, wrap("retrieve file", err)
	}
	f.Body = io.NopCloser(bytes.NewReader(data))
	return &f, nil
}

// Delete removes a stored file. Deleting a missing file is not an error.
func (s *FileStore) Delete(ctx context.Context, ref string) error {
	_, err := s.db.Exec(ctx, `DELETE FROM files WHERE id = $1`, ref)
	return wrap("delete file", err)
}
