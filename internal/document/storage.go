package document

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Storage writes uploaded file bytes and returns where they landed. The
// association record stores the returned path verbatim.
type Storage interface {
	Save(ctx context.Context, originalName string, r io.Reader) (string, error)
}

// DiskStorage writes uploads under a base directory with generated names,
// so a hostile original filename never touches the filesystem.
type DiskStorage struct {
	dir string
}

// NewDiskStorage constructs a disk-backed blob store rooted at dir.
func NewDiskStorage(dir string) *DiskStorage {
	return &DiskStorage{dir: dir}
}

// Save streams the upload to a uniquely named file, keeping only the
// original extension.
func (s *DiskStorage) Save(_ context.Context, originalName string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	name := uuid.NewString() + filepath.Ext(originalName)
	path := filepath.Join(s.dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}
