package storage

import (
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// UploadStore persists uploaded attachments to durable file storage and
// returns the stored paths recorded on farmer rows. Files are written before
// the database transaction opens; a transaction failure after a write leaves
// an orphaned file, which is accepted.
type UploadStore struct {
	dir string
}

// NewUploadStore creates an UploadStore rooted at dir, creating the
// directory if it does not exist.
func NewUploadStore(dir string) (*UploadStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory %s: %w", dir, err)
	}
	return &UploadStore{dir: dir}, nil
}

// Save writes the uploaded file under a generated name, preserving the
// original extension, and returns the stored path.
func (s *UploadStore) Save(fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open uploaded file %s: %w", fh.Filename, err)
	}
	defer src.Close()

	name := uuid.New().String() + filepath.Ext(fh.Filename)
	path := filepath.Join(s.dir, name)

	dst, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create stored file %s: %w", path, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write stored file %s: %w", path, err)
	}

	return path, nil
}
