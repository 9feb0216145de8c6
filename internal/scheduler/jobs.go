package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/playback"
	"github.com/jmylchreest/castarr/internal/service"
	"github.com/jmylchreest/castarr/internal/stream"
)

// Default job schedules.
const (
	SpecPlaybackFlush = "* * * * *"    // every minute
	SpecPlaybackPrune = "30 3 * * *"   // daily at 03:30
	SpecGuideRefresh  = "15 * * * *"   // hourly at :15
	SpecSessionSweep  = "*/5 * * * *"  // every 5 minutes
	SpecIconPrune     = "45 4 * * 0"   // weekly, Sunday 04:45
)

// Retention windows.
const (
	// PlaybackRetention is how long playback records are kept. Anything
	// older no longer influences filler cooldowns in a meaningful way.
	PlaybackRetention = 90 * 24 * time.Hour

	// SessionMaxIdle is how long an abandoned concat session survives.
	SessionMaxIdle = 30 * time.Minute

	// IconRetention is how long unused cached icons are kept.
	IconRetention = 30 * 24 * time.Hour
)

// PlaybackStore is the persistence surface the playback jobs need.
// Satisfied by repository.PlaybackRepository.
type PlaybackStore interface {
	UpsertBatch(ctx context.Context, records []models.PlaybackRecord) error
	PruneOlderThan(ctx context.Context, cutoffMs int64) (int64, error)
}

// PlaybackFlushJob persists the in-memory playback cache so filler cooldowns
// survive a restart.
func PlaybackFlushJob(cache *playback.Cache, store PlaybackStore) Job {
	return Job{
		Name: "playback-flush",
		Spec: SpecPlaybackFlush,
		Run: func(ctx context.Context) error {
			records := cache.Snapshot()
			if len(records) == 0 {
				return nil
			}
			if err := store.UpsertBatch(ctx, records); err != nil {
				return fmt.Errorf("flushing playback records: %w", err)
			}
			return nil
		},
	}
}

// PlaybackPruneJob deletes playback records past the retention window.
// retention falls back to PlaybackRetention when non-positive.
func PlaybackPruneJob(store PlaybackStore, retention time.Duration, logger *slog.Logger) Job {
	if retention <= 0 {
		retention = PlaybackRetention
	}
	return Job{
		Name: "playback-prune",
		Spec: SpecPlaybackPrune,
		Run: func(ctx context.Context) error {
			cutoff := time.Now().Add(-retention).UnixMilli()
			pruned, err := store.PruneOlderThan(ctx, cutoff)
			if err != nil {
				return fmt.Errorf("pruning playback records: %w", err)
			}
			if pruned > 0 {
				logger.Info("pruned playback records", slog.Int64("count", pruned))
			}
			return nil
		},
	}
}

// GuideRefreshJob rebuilds the cached XMLTV guide.
func GuideRefreshJob(guide *service.GuideService) Job {
	return Job{
		Name: "guide-refresh",
		Spec: SpecGuideRefresh,
		Run: func(ctx context.Context) error {
			_, err := guide.Refresh(ctx)
			return err
		},
	}
}

// SessionSweepJob drops idle concat sessions and removes the HLS segment
// directories of sessions that no longer exist.
func SessionSweepJob(registry *stream.Registry, segmentDir string, logger *slog.Logger) Job {
	return Job{
		Name: "session-sweep",
		Spec: SpecSessionSweep,
		Run: func(ctx context.Context) error {
			removed := registry.Sweep(time.Now(), SessionMaxIdle)
			if removed > 0 {
				logger.Info("swept idle sessions", slog.Int("count", removed))
			}
			if segmentDir == "" {
				return nil
			}
			return sweepSegmentDirs(registry, segmentDir, logger)
		},
	}
}

// sweepSegmentDirs removes per-session HLS output directories whose session
// is gone and whose contents have not been touched within SessionMaxIdle.
func sweepSegmentDirs(registry *stream.Registry, segmentDir string, logger *slog.Logger) error {
	entries, err := os.ReadDir(segmentDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading segment dir: %w", err)
	}

	active := make(map[int64]bool)
	for _, info := range registry.Snapshot() {
		active[info.ID] = true
	}

	cutoff := time.Now().Add(-SessionMaxIdle)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil || active[id] {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(segmentDir, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("removing segment dir %s: %w", entry.Name(), err)
		}
		logger.Debug("removed stale segment dir", slog.String("dir", path))
	}
	return nil
}

// IconPruneJob evicts cached icons past the retention window.
func IconPruneJob(icons *service.IconCache, logger *slog.Logger) Job {
	return Job{
		Name: "icon-prune",
		Spec: SpecIconPrune,
		Run: func(ctx context.Context) error {
			removed, err := icons.PruneOlderThan(IconRetention)
			if err != nil {
				return fmt.Errorf("pruning icon cache: %w", err)
			}
			if removed > 0 {
				logger.Info("pruned cached icons", slog.Int("count", removed))
			}
			return nil
		},
	}
}
