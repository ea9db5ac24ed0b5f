// Package deviceid persists the one process-scoped piece of mutable global
// state every sync run needs: a stable identifier for this install (spec
// §9's device_id).
package deviceid

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const fileName = "device-id.txt"

// Load reads the persisted device id from dataDir, generating and writing
// a new one on first run.
func Load(dataDir string) (string, error) {
	path := filepath.Join(dataDir, fileName)

	data, err := os.ReadFile(path)
	if err == nil {
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("deviceid: reading %s: %w", path, err)
	}

	id := uuid.NewString()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return "", fmt.Errorf("deviceid: creating data dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(id), 0o644); err != nil {
		return "", fmt.Errorf("deviceid: writing %s: %w", path, err)
	}
	return id, nil
}
