package assets

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// FSStore is a plain-filesystem LocalStore rooted at a directory, for
// running cmd/syncd standalone. A host application with its own asset
// storage (cloud blob store, encrypted vault, etc.) should implement
// LocalStore itself instead.
type FSStore struct {
	Root string
}

func (s *FSStore) abs(relPath string) string { return filepath.Join(s.Root, filepath.FromSlash(relPath)) }

func (s *FSStore) Exists(_ context.Context, relPath string) (bool, error) {
	_, err := os.Stat(s.abs(relPath))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *FSStore) Read(_ context.Context, relPath string) ([]byte, error) {
	return os.ReadFile(s.abs(relPath))
}

func (s *FSStore) Write(_ context.Context, relPath string, data []byte) error {
	dest := s.abs(relPath)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("assets: creating %s: %w", filepath.Dir(dest), err)
	}
	return os.WriteFile(dest, data, 0o644)
}
