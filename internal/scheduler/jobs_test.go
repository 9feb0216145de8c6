package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/castarr/internal/models"
	"github.com/jmylchreest/castarr/internal/playback"
	"github.com/jmylchreest/castarr/internal/stream"
)

type fakePlaybackStore struct {
	upserted []models.PlaybackRecord
	pruned   int64
	cutoffMs int64
}

func (s *fakePlaybackStore) UpsertBatch(_ context.Context, records []models.PlaybackRecord) error {
	s.upserted = append(s.upserted, records...)
	return nil
}

func (s *fakePlaybackStore) PruneOlderThan(_ context.Context, cutoffMs int64) (int64, error) {
	s.cutoffMs = cutoffMs
	return s.pruned, nil
}

func TestPlaybackFlushJob(t *testing.T) {
	cache := playback.NewCache()
	cache.RecordItem(1, "plex|srv|ep1", 1000)
	store := &fakePlaybackStore{}

	job := PlaybackFlushJob(cache, store)
	assert.Equal(t, "playback-flush", job.Name)
	require.NoError(t, job.Run(context.Background()))
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "plex|srv|ep1", store.upserted[0].Key)

	// Nothing new: no write.
	store.upserted = nil
	empty := playback.NewCache()
	require.NoError(t, PlaybackFlushJob(empty, store).Run(context.Background()))
	assert.Empty(t, store.upserted)
}

func TestPlaybackPruneJob(t *testing.T) {
	store := &fakePlaybackStore{pruned: 3}
	job := PlaybackPruneJob(store, 0, testLogger())

	before := time.Now().Add(-PlaybackRetention).UnixMilli()
	require.NoError(t, job.Run(context.Background()))
	after := time.Now().Add(-PlaybackRetention).UnixMilli()

	assert.GreaterOrEqual(t, store.cutoffMs, before)
	assert.LessOrEqual(t, store.cutoffMs, after)
}

func TestSessionSweepJobRemovesStaleSegmentDirs(t *testing.T) {
	registry := stream.NewRegistry(3, time.Minute)
	now := time.Now()
	live := registry.Open(1, now)

	dir := t.TempDir()
	liveDir := filepath.Join(dir, "1")   // active session
	staleDir := filepath.Join(dir, "9")  // no session, old
	freshDir := filepath.Join(dir, "12") // no session, but recent
	otherFile := filepath.Join(dir, "stray.txt")
	for _, d := range []string{liveDir, staleDir, freshDir} {
		require.NoError(t, os.Mkdir(d, 0o755))
	}
	require.NoError(t, os.WriteFile(otherFile, []byte("x"), 0o644))

	old := now.Add(-2 * SessionMaxIdle)
	require.NoError(t, os.Chtimes(staleDir, old, old))
	require.NoError(t, os.Chtimes(liveDir, old, old))

	job := SessionSweepJob(registry, dir, testLogger())
	require.NoError(t, job.Run(context.Background()))

	assert.DirExists(t, liveDir)
	assert.NoDirExists(t, staleDir)
	assert.DirExists(t, freshDir)
	assert.FileExists(t, otherFile)
	assert.NotNil(t, registry.Get(live.ID))
}

func TestSessionSweepJobMissingDir(t *testing.T) {
	registry := stream.NewRegistry(3, time.Minute)
	job := SessionSweepJob(registry, filepath.Join(t.TempDir(), "nope"), testLogger())
	assert.NoError(t, job.Run(context.Background()))
}

func TestJobSpecsParse(t *testing.T) {
	s := New(testLogger())
	for _, spec := range []string{SpecPlaybackFlush, SpecPlaybackPrune, SpecGuideRefresh, SpecSessionSweep, SpecIconPrune} {
		assert.NoError(t, s.Register(Job{Name: "spec-" + spec, Spec: spec, Run: func(context.Context) error { return nil }}))
	}
}
