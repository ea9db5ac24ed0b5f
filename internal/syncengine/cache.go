package syncengine

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/flashnote/syncd/internal/model"
)

// ManifestCache persists the local cached manifest — the SyncEngine's own
// record of the last manifest it committed, kept byte-identical to the
// remote's at the end of a successful run (spec §6's sync-manifest.json).
type ManifestCache interface {
	Load(ctx context.Context) (*model.Manifest, error) // nil, nil if absent
	Save(ctx context.Context, m *model.Manifest) error
	Clear(ctx context.Context) error
}

// FileManifestCache stores the cache as a plain JSON file in the per-user
// data directory.
type FileManifestCache struct {
	Path string
}

func NewFileManifestCache(dataDir string) *FileManifestCache {
	return &FileManifestCache{Path: filepath.Join(dataDir, "sync-manifest.json")}
}

func (c *FileManifestCache) Load(_ context.Context) (*model.Manifest, error) {
	data, err := os.ReadFile(c.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var m model.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("syncengine: parsing cached manifest: %w", err)
	}
	return &m, nil
}

func (c *FileManifestCache) Save(_ context.Context, m *model.Manifest) error {
	data, err := json.Marshal(m)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("syncengine: creating data dir: %w", err)
	}
	return os.WriteFile(c.Path, data, 0o644)
}

func (c *FileManifestCache) Clear(_ context.Context) error {
	err := os.Remove(c.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
