// Package assets provides embedded fallback artwork. Channels without their
// own offline picture fall back to the embedded placeholder, materialized to
// the data directory so the encoder can read it as a plain file input.
package assets

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
)

//go:embed offline.png
var offlinePNG []byte

// OfflinePicture returns the embedded placeholder shown for offline slots.
func OfflinePicture() []byte {
	return offlinePNG
}

// EnsureOfflinePicture writes the placeholder into dir (if not already
// present) and returns its path.
func EnsureOfflinePicture(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating assets dir: %w", err)
	}

	path := filepath.Join(dir, "offline.png")
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, offlinePNG, 0o644); err != nil {
		return "", fmt.Errorf("writing offline picture: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("committing offline picture: %w", err)
	}
	return path, nil
}
