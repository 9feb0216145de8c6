// Package playback tracks when lineup items and filler groups were last
// played per channel. The cache is in-memory and authoritative within a
// process; persisted records only warm-start it after a restart.
package playback

import (
	"sync"

	"github.com/jmylchreest/castarr/internal/models"
)

// Cache holds per-channel last-played timestamps for items (lineup items and
// filler clips, keyed by their program key) and filler collections (keyed by
// filler show ID). All timestamps are epoch milliseconds.
type Cache struct {
	mu      sync.Mutex
	items   map[int]map[string]int64
	fillers map[int]map[string]int64
}

// NewCache creates an empty playback cache.
func NewCache() *Cache {
	return &Cache{
		items:   make(map[int]map[string]int64),
		fillers: make(map[int]map[string]int64),
	}
}

// RecordItem stores the play timestamp for an item key on a channel.
// Timestamps are monotonically non-decreasing: an older timestamp never
// overwrites a newer one.
func (c *Cache) RecordItem(channelNumber int, key string, playedAtMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record(c.items, channelNumber, key, playedAtMs)
}

// RecordFiller stores the pick timestamp for a filler show on a channel.
func (c *Cache) RecordFiller(channelNumber int, showID models.ID, playedAtMs int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record(c.fillers, channelNumber, showID.String(), playedAtMs)
}

func record(m map[int]map[string]int64, channelNumber int, key string, playedAtMs int64) {
	byKey, ok := m[channelNumber]
	if !ok {
		byKey = make(map[string]int64)
		m[channelNumber] = byKey
	}
	if playedAtMs > byKey[key] {
		byKey[key] = playedAtMs
	}
}

// LastPlayedItem returns when the item key was last played on the channel.
func (c *Cache) LastPlayedItem(channelNumber int, key string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.items[channelNumber][key]
	return at, ok
}

// LastPlayedFiller returns when the filler show was last picked on the channel.
func (c *Cache) LastPlayedFiller(channelNumber int, showID models.ID) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	at, ok := c.fillers[channelNumber][showID.String()]
	return at, ok
}

// ClearChannel drops all records for a channel. Used when a short offline
// gap is skipped so the re-resolve starts from a clean slate.
func (c *Cache) ClearChannel(channelNumber int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, channelNumber)
	delete(c.fillers, channelNumber)
}

// WarmStart loads persisted records into the cache. Existing newer entries
// are kept.
func (c *Cache) WarmStart(records []models.PlaybackRecord) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range records {
		r := &records[i]
		switch r.Kind {
		case models.PlaybackFiller:
			record(c.fillers, r.ChannelNumber, r.Key, r.LastPlayedAt)
		default:
			record(c.items, r.ChannelNumber, r.Key, r.LastPlayedAt)
		}
	}
}

// Snapshot returns the cache contents as persistable records, for the
// write-behind flush on shutdown.
func (c *Cache) Snapshot() []models.PlaybackRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []models.PlaybackRecord
	for channel, byKey := range c.items {
		for key, at := range byKey {
			out = append(out, models.PlaybackRecord{
				ChannelNumber: channel,
				Kind:          models.PlaybackItem,
				Key:           key,
				LastPlayedAt:  at,
			})
		}
	}
	for channel, byKey := range c.fillers {
		for key, at := range byKey {
			out = append(out, models.PlaybackRecord{
				ChannelNumber: channel,
				Kind:          models.PlaybackFiller,
				Key:           key,
				LastPlayedAt:  at,
			})
		}
	}
	return out
}
