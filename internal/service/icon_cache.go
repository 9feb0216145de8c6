package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Icon cache limits.
const (
	// DefaultIconMaxFetchBytes caps a single icon download.
	DefaultIconMaxFetchBytes = 8 << 20

	// DefaultIconMaxWidth is the width icons are scaled down to.
	DefaultIconMaxWidth = 360
)

// Fetcher downloads a remote asset into memory. Satisfied by
// httpclient.Client.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string, maxBytes int64) ([]byte, error)
}

// IconCache stores channel and program icons on disk as PNG, keyed by a hash
// of the source URL. Fetches are converted (webp/gif/jpeg → png) and scaled
// down so guide clients get small, uniform artwork.
type IconCache struct {
	dir       string
	fetcher   Fetcher
	converter *ImageConverter
	logger    *slog.Logger

	maxFetchBytes int64
	maxWidth      int

	mu    sync.Mutex
	known map[string]string // key -> absolute file path
}

// NewIconCache creates the cache directory and indexes any existing entries.
func NewIconCache(dir string, fetcher Fetcher, logger *slog.Logger) (*IconCache, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating icon cache dir: %w", err)
	}

	c := &IconCache{
		dir:           dir,
		fetcher:       fetcher,
		converter:     NewImageConverter(),
		logger:        logger,
		maxFetchBytes: DefaultIconMaxFetchBytes,
		maxWidth:      DefaultIconMaxWidth,
		known:         make(map[string]string),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading icon cache dir: %w", err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".png") {
			continue
		}
		c.known[strings.TrimSuffix(name, ".png")] = filepath.Join(dir, name)
	}

	logger.Debug("icon cache initialized",
		slog.String("dir", dir),
		slog.Int("entries", len(c.known)))
	return c, nil
}

// Key returns the cache key for a source URL.
func (c *IconCache) Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:8])
}

// Contains reports whether the URL is already cached.
func (c *IconCache) Contains(url string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.known[c.Key(url)]
	return ok
}

// Path returns the on-disk PNG for the URL, fetching and converting it on a
// cache miss.
func (c *IconCache) Path(ctx context.Context, url string) (string, error) {
	key := c.Key(url)

	c.mu.Lock()
	if path, ok := c.known[key]; ok {
		c.mu.Unlock()
		return path, nil
	}
	c.mu.Unlock()

	data, err := c.fetcher.FetchBytes(ctx, url, c.maxFetchBytes)
	if err != nil {
		return "", fmt.Errorf("fetching icon: %w", err)
	}

	pngData, width, height, err := c.converter.ConvertToPNG(data, c.maxWidth)
	if err != nil {
		return "", fmt.Errorf("converting icon: %w", err)
	}

	path := filepath.Join(c.dir, key+".png")
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, pngData, 0o644); err != nil {
		return "", fmt.Errorf("writing icon: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("committing icon: %w", err)
	}

	c.mu.Lock()
	c.known[key] = path
	c.mu.Unlock()

	c.logger.Debug("icon cached",
		slog.String("key", key),
		slog.Int("width", width),
		slog.Int("height", height),
		slog.Int("bytes", len(pngData)))
	return path, nil
}

// PathByKey returns the cached file for a key, for serving /icons/{key}.png.
func (c *IconCache) PathByKey(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	path, ok := c.known[key]
	return path, ok
}

// Len returns the number of cached icons.
func (c *IconCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.known)
}

// PruneOlderThan removes cache files not modified within maxAge and returns
// how many were deleted. Run from the scheduler.
func (c *IconCache) PruneOlderThan(maxAge time.Duration) (int, error) {
	cutoff := time.Now().Add(-maxAge)

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, path := range c.known {
		info, err := os.Stat(path)
		if err != nil {
			delete(c.known, key)
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("removing icon %s: %w", key, err)
		}
		delete(c.known, key)
		removed++
	}
	return removed, nil
}
