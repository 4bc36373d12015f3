package client

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore implements StorageClient on the local filesystem. It is the
// development/test backend; deployments point it at a shared volume or swap
// in R2 via config.
type LocalStore struct {
	root string
}

// NewLocalStore creates a store rooted at root, creating it if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, fmt.Errorf("local storage root required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage root: %w", err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Upload(ctx context.Context, key string, body io.Reader, contentType string) (string, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create storage dir for %s: %w", key, err)
	}

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", key, err)
	}
	defer f.Close()

	if _, err := io.Copy(f, body); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", key, err)
	}
	return s.GetPublicURL(key), nil
}

func (s *LocalStore) Download(ctx context.Context, key string) ([]byte, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, nil
}

func (s *LocalStore) Delete(ctx context.Context, key string) error {
	path, err := s.keyPath(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// GetSignedURL has no signing on local disk; it returns the plain file URL.
func (s *LocalStore) GetSignedURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return s.GetPublicURL(key), nil
}

func (s *LocalStore) GetPublicURL(key string) string {
	return "file://" + filepath.Join(s.root, filepath.FromSlash(key))
}

// keyPath rejects keys that would escape the storage root.
func (s *LocalStore) keyPath(key string) (string, error) {
	if key == "" || strings.Contains(key, "..") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf("invalid storage key %q", key)
	}
	return filepath.Join(s.root, filepath.FromSlash(key)), nil
}

var _ StorageClient = (*LocalStore)(nil)
var _ StorageClient = (*R2Client)(nil)
