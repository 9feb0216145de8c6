// Package ffmpeg provides FFmpeg/FFprobe binary detection and media probing.
package ffmpeg

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/castarr/internal/util"
)

// BinaryInfo contains information about the FFmpeg/FFprobe installation.
type BinaryInfo struct {
	FFmpegPath   string   `json:"ffmpeg_path"`
	FFprobePath  string   `json:"ffprobe_path"`
	Version      string   `json:"version"`
	MajorVersion int      `json:"major_version"`
	MinorVersion int      `json:"minor_version"`
	Encoders     []string `json:"encoders,omitempty"`
}

// BinaryDetector handles detection and caching of FFmpeg binaries.
// Search order per binary: explicit settings path, CASTARR_FFMPEG_BINARY /
// CASTARR_FFPROBE_BINARY env vars, ./name, PATH.
type BinaryDetector struct {
	mu           sync.RWMutex
	ffmpegPath   string
	ffprobePath  string
	info         *BinaryInfo
	lastDetected time.Time
	cacheTTL     time.Duration
}

// NewBinaryDetector creates a new binary detector. The paths are the explicit
// executable locations from persisted encoder settings; either may be empty.
func NewBinaryDetector(ffmpegPath, ffprobePath string) *BinaryDetector {
	return &BinaryDetector{
		ffmpegPath:  ffmpegPath,
		ffprobePath: ffprobePath,
		cacheTTL:    5 * time.Minute,
	}
}

// WithCacheTTL sets the cache TTL for binary detection.
func (d *BinaryDetector) WithCacheTTL(ttl time.Duration) *BinaryDetector {
	d.cacheTTL = ttl
	return d
}

// Detect locates the FFmpeg and FFprobe binaries and probes their
// capabilities. Results are cached for the detector's TTL.
func (d *BinaryDetector) Detect(ctx context.Context) (*BinaryInfo, error) {
	d.mu.RLock()
	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		info := d.info
		d.mu.RUnlock()
		return info, nil
	}
	d.mu.RUnlock()

	d.mu.Lock()
	defer d.mu.Unlock()

	// Double-check after acquiring write lock
	if d.info != nil && time.Since(d.lastDetected) < d.cacheTTL {
		return d.info, nil
	}

	info, err := d.detect(ctx)
	if err != nil {
		return nil, err
	}

	d.info = info
	d.lastDetected = time.Now()
	return info, nil
}

// Clear clears the cached binary information.
func (d *BinaryDetector) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.info = nil
}

// detect performs the actual binary detection.
func (d *BinaryDetector) detect(ctx context.Context) (*BinaryInfo, error) {
	info := &BinaryInfo{}

	ffmpegPath, err := util.FindBinary("ffmpeg", d.ffmpegPath, "CASTARR_FFMPEG_BINARY")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found: %w", err)
	}
	info.FFmpegPath = ffmpegPath

	// ffprobe is optional; without it items stream without probe stats and
	// the planner falls back to transcoding.
	if ffprobePath, err := util.FindBinary("ffprobe", d.ffprobePath, "CASTARR_FFPROBE_BINARY"); err == nil {
		info.FFprobePath = ffprobePath
	}

	version, err := d.getVersion(ctx, ffmpegPath)
	if err != nil {
		return nil, fmt.Errorf("getting ffmpeg version: %w", err)
	}
	info.Version = version.full
	info.MajorVersion = version.major
	info.MinorVersion = version.minor

	if encoders, err := d.getEncoders(ctx, ffmpegPath); err == nil {
		info.Encoders = encoders
	}

	return info, nil
}

// versionInfo holds parsed version information.
type versionInfo struct {
	full  string
	major int
	minor int
}

var versionRegex = regexp.MustCompile(`^n?(\d+)\.(\d+)`)

// getVersion extracts version information from ffmpeg.
func (d *BinaryDetector) getVersion(ctx context.Context, ffmpegPath string) (*versionInfo, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, "-version")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	for _, line := range strings.Split(string(output), "\n") {
		if !strings.HasPrefix(line, "ffmpeg version") {
			continue
		}
		// "ffmpeg version 6.0 Copyright..." or "ffmpeg version n6.0-2-g..."
		parts := strings.Fields(line)
		if len(parts) < 3 {
			continue
		}
		info := &versionInfo{full: parts[2]}
		if matches := versionRegex.FindStringSubmatch(parts[2]); len(matches) >= 3 {
			info.major, _ = strconv.Atoi(matches[1])
			info.minor, _ = strconv.Atoi(matches[2])
		}
		return info, nil
	}

	return nil, fmt.Errorf("failed to parse ffmpeg version")
}

// getEncoders retrieves available encoders.
func (d *BinaryDetector) getEncoders(ctx context.Context, ffmpegPath string) ([]string, error) {
	cmd := exec.CommandContext(ctx, ffmpegPath, "-encoders", "-hide_banner")
	output, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var encoders []string
	inEncoderList := false
	for _, line := range strings.Split(string(output), "\n") {
		if strings.Contains(line, "------") {
			inEncoderList = true
			continue
		}
		if !inEncoderList {
			continue
		}

		// Format: V....D encoder_name description
		line = strings.TrimLeft(line, " ")
		if len(line) < 8 {
			continue
		}
		if line[0] != 'V' && line[0] != 'A' && line[0] != 'S' {
			continue
		}

		parts := strings.Fields(strings.TrimSpace(line[6:]))
		if len(parts) >= 1 && parts[0] != "" {
			encoders = append(encoders, parts[0])
		}
	}

	return encoders, nil
}

// HasEncoder returns true if the encoder is available.
func (info *BinaryInfo) HasEncoder(name string) bool {
	return slices.Contains(info.Encoders, name)
}
