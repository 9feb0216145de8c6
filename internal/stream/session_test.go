package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionThrottledSlidingWindow(t *testing.T) {
	reg := NewRegistry(3, 2*time.Minute)
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	s := reg.Open(1, now)
	assert.False(t, s.Throttled(now))

	s.RecordFailure(now)
	s.RecordFailure(now.Add(10 * time.Second))
	assert.False(t, s.Throttled(now.Add(11*time.Second)))

	s.RecordFailure(now.Add(20 * time.Second))
	assert.True(t, s.Throttled(now.Add(21*time.Second)))

	// The first two failures age out of the window.
	assert.False(t, s.Throttled(now.Add(2*time.Minute+11*time.Second)))
}

func TestSessionSuccessDoesNotCountAgainstBudget(t *testing.T) {
	reg := NewRegistry(2, time.Minute)
	now := time.Now()

	s := reg.Open(1, now)
	for i := 0; i < 10; i++ {
		s.RecordSuccess(now)
	}
	assert.False(t, s.Throttled(now))

	s.RecordFailure(now)
	s.RecordFailure(now)
	assert.True(t, s.Throttled(now))
}

func TestRegistryOpenAssignsIncrementingIDs(t *testing.T) {
	reg := NewRegistry(5, time.Minute)
	now := time.Now()

	a := reg.Open(1, now)
	b := reg.Open(2, now)
	assert.Equal(t, a.ID+1, b.ID)
	assert.Same(t, a, reg.Get(a.ID))
}

func TestRegistryEnsureRegistersUnknownIDs(t *testing.T) {
	reg := NewRegistry(5, time.Minute)
	now := time.Now()

	// A client replaying a manifest minted before a restart presents an ID
	// this process has never issued.
	s := reg.Ensure(42, 7, now)
	require.NotNil(t, s)
	assert.Equal(t, int64(42), s.ID)
	assert.Equal(t, 7, s.ChannelNumber)

	// Subsequent calls return the same session.
	assert.Same(t, s, reg.Ensure(42, 7, now))

	// Freshly opened sessions never collide with the replayed ID.
	assert.Equal(t, int64(43), reg.Open(1, now).ID)
}

func TestRegistryCloseAndSweep(t *testing.T) {
	reg := NewRegistry(5, time.Minute)
	now := time.Now()

	stale := reg.Open(1, now.Add(-time.Hour))
	fresh := reg.Open(2, now)
	fresh.RecordSuccess(now)

	removed := reg.Sweep(now, 30*time.Minute)
	assert.Equal(t, 1, removed)
	assert.Nil(t, reg.Get(stale.ID))
	assert.NotNil(t, reg.Get(fresh.ID))

	reg.Close(fresh.ID)
	assert.Nil(t, reg.Get(fresh.ID))
}

func TestRegistrySnapshotOrderedByID(t *testing.T) {
	reg := NewRegistry(5, time.Minute)
	now := time.Now()

	reg.Ensure(30, 3, now)
	reg.Ensure(10, 1, now)
	reg.Ensure(20, 2, now)

	infos := reg.Snapshot()
	require.Len(t, infos, 3)
	assert.Equal(t, int64(10), infos[0].ID)
	assert.Equal(t, int64(20), infos[1].ID)
	assert.Equal(t, int64(30), infos[2].ID)
	assert.Equal(t, 1, infos[0].ChannelNumber)
}
