// Package blob stores uploaded regulation PDFs on disk.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Store persists uploaded files and hands back paths the ingestion pipeline
// can read.
type Store interface {
	// Save writes the upload under its sanitized filename and returns the
	// stored path.
	Save(filename string, r io.Reader) (string, error)
	// Path returns the stored path for a filename without checking existence.
	Path(filename string) string
	// Delete removes a stored file. Missing files are not an error.
	Delete(filename string) error
}

// FileStore keeps uploads in a flat directory.
type FileStore struct {
	root string
}

// NewFileStore creates the upload directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload dir: %w", err)
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Save(filename string, r io.Reader) (string, error) {
	name, err := sanitize(filename)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.root, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}

func (s *FileStore) Path(filename string) string {
	return filepath.Join(s.root, filepath.Base(filename))
}

func (s *FileStore) Delete(filename string) error {
	name, err := sanitize(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(s.root, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", name, err)
	}
	return nil
}

// sanitize rejects path traversal in user-supplied filenames.
func sanitize(filename string) (string, error) {
	name := filepath.Base(filename)
	if name == "." || name == ".." || name == "" || strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("invalid filename %q", filename)
	}
	return name, nil
}

var _ Store = (*FileStore)(nil)
