package models

// PlaybackRecordKind distinguishes item plays from filler-group plays.
type PlaybackRecordKind string

// Playback record kinds.
const (
	// PlaybackItem records a lineup item or filler clip play.
	PlaybackItem PlaybackRecordKind = "item"
	// PlaybackFiller records a filler collection pick.
	PlaybackFiller PlaybackRecordKind = "filler"
)

// PlaybackRecord is the persisted write-behind of the in-memory playback
// cache. The cache stays authoritative within a process; these rows only
// warm-start it after a restart and are pruned on a schedule.
type PlaybackRecord struct {
	BaseModel

	// ChannelNumber scopes the record to one channel.
	ChannelNumber int `gorm:"not null;index:idx_playback_key,unique" json:"channel_number"`

	// Kind distinguishes item keys from filler show IDs.
	Kind PlaybackRecordKind `gorm:"not null;size:10;index:idx_playback_key,unique" json:"kind"`

	// Key is the item key or filler show ID.
	Key string `gorm:"not null;size:512;index:idx_playback_key,unique" json:"key"`

	// LastPlayedAt is the play timestamp in epoch milliseconds.
	LastPlayedAt int64 `gorm:"not null" json:"last_played_at"`
}

// TableName returns the table name for PlaybackRecord.
func (PlaybackRecord) TableName() string {
	return "playback_records"
}
