// Package upload is the attachment store: raw bytes in, retrievable URL
// out. The engine only ever carries the returned URL.
package upload

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"chat-server/internal/models"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const urlPrefix = "/uploads/"

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory served under /uploads/.
func (s *Store) Dir() string {
	return s.dir
}

// Save writes the attachment to disk under a fresh name and returns its
// reference. The original filename survives only as display metadata; the
// stored name is a uuid plus an extension taken from the original or, when
// it has none, sniffed from the content.
func (s *Store) Save(r io.Reader, originalName string) (*models.FileRef, error) {
	tmp, err := os.CreateTemp(s.dir, ".upload-*")
	if err != nil {
		return nil, fmt.Errorf("creating upload file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("writing upload: %w", err)
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		tmp.Close()
		return nil, err
	}

	mtype, err := mimetype.DetectReader(tmp)
	if err != nil {
		tmp.Close()
		return nil, fmt.Errorf("sniffing upload type: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, err
	}

	ext := filepath.Ext(originalName)
	if ext == "" {
		ext = mtype.Extension()
	}
	name := uuid.NewString() + ext
	if err := os.Rename(tmp.Name(), filepath.Join(s.dir, name)); err != nil {
		return nil, fmt.Errorf("storing upload: %w", err)
	}

	return &models.FileRef{
		URL:         urlPrefix + name,
		Name:        filepath.Base(originalName),
		ContentType: mtype.String(),
	}, nil
}
