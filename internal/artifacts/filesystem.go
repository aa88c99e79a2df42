package artifacts

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/daybook/internal/interfaces"
)

// FilesystemStorage implements interfaces.ArtifactStorage on a local
// directory. Keys map to file paths under the root.
type FilesystemStorage struct {
	root   string
	logger arbor.ILogger
}

// NewFilesystemStorage creates a filesystem-backed artifact store.
func NewFilesystemStorage(root string, logger arbor.ILogger) (interfaces.ArtifactStorage, error) {
	if root == "" {
		return nil, fmt.Errorf("artifact directory not configured")
	}
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artifact directory: %w", err)
	}
	return &FilesystemStorage{root: root, logger: logger}, nil
}

// Put writes an artifact under the key, creating parent directories as
// needed. Keys may not escape the root.
func (f *FilesystemStorage) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if strings.Contains(key, "..") || filepath.IsAbs(key) {
		return fmt.Errorf("invalid artifact key %q", key)
	}

	path := filepath.Join(f.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", key, err)
	}

	f.logger.Debug().
		Str("key", key).
		Int("bytes", len(data)).
		Msg("Artifact written")

	return nil
}
