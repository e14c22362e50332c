package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// BlobStore persists raw attachment bytes. Keys are job-scoped paths of the
// form "<jobID>/<filename>"; DeleteAll removes a job's whole scope.
type BlobStore interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	DeleteAll(ctx context.Context, jobID string) error
}

// Key builds a job-scoped blob key from the job ID and an uploaded filename.
// The filename is flattened to its base name so user input cannot escape the
// job directory.
func Key(jobID, filename string) string {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(os.PathSeparator) {
		name = "file"
	}
	return jobID + "/" + name
}

// FileStore keeps blobs on the local filesystem under a base directory.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

func (f *FileStore) resolve(key string) (string, error) {
	target := filepath.Join(f.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(target, filepath.Clean(f.basePath)+string(os.PathSeparator)) {
		return "", fmt.Errorf("invalid blob key %q", key)
	}
	return target, nil
}

// Save writes the blob, creating the job directory on first use. A second
// save to the same key overwrites the earlier content.
func (f *FileStore) Save(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	target, err := f.resolve(key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create job dir: %w", err)
	}
	out, err := os.Create(target)
	if err != nil {
		return fmt.Errorf("create file: %w", err)
	}
	defer out.Close()
	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("write file: %w", err)
	}
	return nil
}

// Open returns a reader over the stored blob. A missing blob surfaces as an
// error satisfying os.IsNotExist.
func (f *FileStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	target, err := f.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(target)
}

// Delete removes one blob. Missing blobs are not an error: disk and DB may
// have drifted.
func (f *FileStore) Delete(_ context.Context, key string) error {
	target, err := f.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

// DeleteAll removes a job's entire blob directory.
func (f *FileStore) DeleteAll(_ context.Context, jobID string) error {
	target, err := f.resolve(jobID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(target); os.IsNotExist(err) {
		return nil
	}
	return os.RemoveAll(target)
}
