// Package services coordinates file storage with catalog metadata writes.
package services

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// MaxUploadBytes caps a single upload payload at 2 GiB. Enforced at the
// transport boundary with http.MaxBytesReader.
const MaxUploadBytes = 2 << 30

// FileStore owns the upload directory. Stored names are unique per upload so
// concurrent uploads of identically named files never collide.
type FileStore struct {
	dir string
}

// NewFileStore creates the upload directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

// Dir returns the upload directory root.
func (fs *FileStore) Dir() string {
	return fs.dir
}

// Save writes the payload under a fresh storage name built from a random
// identifier and the sanitized original name. The file is fully written
// before the name is returned.
func (fs *FileStore) Save(originalName string, payload io.Reader) (string, error) {
	name := fmt.Sprintf("%s_%s", strings.ReplaceAll(uuid.NewString(), "-", ""), SanitizeFilename(originalName))

	path := filepath.Join(fs.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(f, payload); err != nil {
		f.Close()
		if rmErr := os.Remove(path); rmErr != nil {
			return "", fmt.Errorf("failed to write file: %w (cleanup failed: %v)", err, rmErr)
		}
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	return name, nil
}

// Remove deletes a stored file. An already-absent file is an acceptable end
// state, not an error.
func (fs *FileStore) Remove(name string) error {
	path, err := fs.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove file: %w", err)
	}
	return nil
}

// Path resolves a storage name inside the upload directory. Names carrying
// path separators or traversal elements are rejected.
func (fs *FileStore) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	return filepath.Join(fs.dir, name), nil
}

// SanitizeFilename strips a client-supplied filename down to a safe basename:
// path components are dropped and anything outside [A-Za-z0-9._-] becomes an
// underscore.
func SanitizeFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '_' || r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	cleaned := strings.Trim(b.String(), "._")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}
