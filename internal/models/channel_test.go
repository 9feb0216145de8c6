package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validChannel() *Channel {
	return &Channel{
		Number:    5,
		Name:      "Retro Movies",
		StartTime: 1700000000000,
		Duration:  210_000,
	}
}

func TestChannelValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Channel)
		wantErr error
	}{
		{
			name:   "valid",
			mutate: func(c *Channel) {},
		},
		{
			name:    "missing number",
			mutate:  func(c *Channel) { c.Number = 0 },
			wantErr: ErrChannelNumberRequired,
		},
		{
			name:    "missing name",
			mutate:  func(c *Channel) { c.Name = "" },
			wantErr: ErrNameRequired,
		},
		{
			name:    "missing start time",
			mutate:  func(c *Channel) { c.StartTime = 0 },
			wantErr: ErrStartTimeRequired,
		},
		{
			name:    "negative duration",
			mutate:  func(c *Channel) { c.Duration = -1 },
			wantErr: ErrNegativeChannelDuration,
		},
		{
			name:    "bad offline mode",
			mutate:  func(c *Channel) { c.OfflineMode = "loop" },
			wantErr: ErrInvalidOfflineMode,
		},
		{
			name:    "negative cooldown",
			mutate:  func(c *Channel) { c.FillerRepeatCooldown = -1 },
			wantErr: ErrNegativeCooldown,
		},
		{
			name:    "bad watermark position",
			mutate:  func(c *Channel) { c.Watermark.Position = "center" },
			wantErr: ErrInvalidWatermarkPosition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validChannel()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestChannelValidateLineup(t *testing.T) {
	c := validChannel()
	cid := NewID()
	c.ID = cid
	pid := NewID()
	c.Lineup = []LineupItem{
		{ChannelID: cid, Position: 0, Type: LineupContent, ProgramID: &pid, DurationMs: 60_000},
		{ChannelID: cid, Position: 1, Type: LineupContent, ProgramID: &pid, DurationMs: 120_000},
		{ChannelID: cid, Position: 2, Type: LineupOffline, DurationMs: 30_000},
	}
	require.NoError(t, c.ValidateLineup())

	c.Lineup[2].DurationMs = 31_000
	assert.ErrorIs(t, c.ValidateLineup(), ErrLineupDurationMismatch)

	c.Lineup[2].DurationMs = 0
	assert.ErrorIs(t, c.ValidateLineup(), ErrDurationNotPositive)
}

func TestLineupItemValidate(t *testing.T) {
	cid := NewID()
	pid := NewID()

	tests := []struct {
		name    string
		item    LineupItem
		wantErr error
	}{
		{
			name: "content with program",
			item: LineupItem{ChannelID: cid, Type: LineupContent, ProgramID: &pid, DurationMs: 1000},
		},
		{
			name:    "content without program",
			item:    LineupItem{ChannelID: cid, Type: LineupContent, DurationMs: 1000},
			wantErr: ErrProgramIDRequired,
		},
		{
			name:    "redirect without target",
			item:    LineupItem{ChannelID: cid, Type: LineupRedirect, DurationMs: 1000},
			wantErr: ErrRedirectChannelRequired,
		},
		{
			name: "offline",
			item: LineupItem{ChannelID: cid, Type: LineupOffline, DurationMs: 1000},
		},
		{
			name:    "unknown type",
			item:    LineupItem{ChannelID: cid, Type: "commercial", DurationMs: 1000},
			wantErr: ErrInvalidLineupItemType,
		},
		{
			name:    "zero duration",
			item:    LineupItem{ChannelID: cid, Type: LineupOffline, DurationMs: 0},
			wantErr: ErrDurationNotPositive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestProgramValidateAndKey(t *testing.T) {
	p := &Program{
		Type:             ProgramEpisode,
		SourceType:       "plex",
		ExternalSourceID: "srv1",
		ExternalKey:      "12345",
		DurationMs:       1_320_000,
	}
	require.NoError(t, p.Validate())
	assert.Equal(t, "plex|srv1|12345", p.Key())

	p.Type = "short"
	assert.ErrorIs(t, p.Validate(), ErrInvalidProgramType)

	p.Type = ProgramMovie
	p.ExternalKey = ""
	assert.ErrorIs(t, p.Validate(), ErrExternalKeyRequired)
}

func TestFillerCollectionValidate(t *testing.T) {
	fc := &FillerCollection{Weight: 1, CooldownMs: 0}
	require.NoError(t, fc.Validate())

	fc.Weight = 0
	assert.ErrorIs(t, fc.Validate(), ErrWeightNotPositive)

	fc.Weight = 2
	fc.CooldownMs = -5
	assert.ErrorIs(t, fc.Validate(), ErrNegativeCooldown)
}

func TestFFmpegSettingsValidate(t *testing.T) {
	s := DefaultFFmpegSettings()
	require.NoError(t, s.Validate())

	s.ErrorScreen = "rainbow"
	assert.Error(t, s.Validate())

	s = DefaultFFmpegSettings()
	s.HLSDeleteThreshold = 0
	assert.Error(t, s.Validate())
}
