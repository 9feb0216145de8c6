package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/jmylchreest/castarr/internal/models"
)

// Store bundles the repositories into the read surface the streaming core
// resolves against. It satisfies the stream controller's Store interface and
// the lineup walker's ChannelLoader.
type Store struct {
	Channels ChannelRepository
	Programs ProgramRepository
	Fillers  FillerRepository
	Settings SettingsRepository
	Playback PlaybackRepository
}

// NewStore creates a Store with repositories bound to db.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		Channels: NewChannelRepository(db),
		Programs: NewProgramRepository(db),
		Fillers:  NewFillerRepository(db),
		Settings: NewSettingsRepository(db),
		Playback: NewPlaybackRepository(db),
	}
}

// ChannelByNumber returns the channel with the given stream number.
func (s *Store) ChannelByNumber(ctx context.Context, number int) (*models.Channel, error) {
	return s.Channels.GetByNumber(ctx, number)
}

// ChannelByID returns the channel with the given ID.
func (s *Store) ChannelByID(ctx context.Context, id models.ID) (*models.Channel, error) {
	return s.Channels.GetByID(ctx, id)
}

// ChannelAndLineup loads a channel and its lineup for redirect hops.
func (s *Store) ChannelAndLineup(ctx context.Context, id models.ID) (*models.Channel, []models.LineupItem, error) {
	ch, err := s.Channels.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if ch == nil {
		return nil, nil, fmt.Errorf("channel %s not found", id)
	}
	items, err := s.Channels.GetLineup(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return ch, items, nil
}

// Lineup returns the channel's ordered items with programs preloaded.
func (s *Store) Lineup(ctx context.Context, channelID models.ID) ([]models.LineupItem, error) {
	return s.Channels.GetLineup(ctx, channelID)
}

// FillerCollections returns the channel's collections with shows and clips
// preloaded.
func (s *Store) FillerCollections(ctx context.Context, channelID models.ID) ([]models.FillerCollection, error) {
	return s.Fillers.GetCollections(ctx, channelID)
}

// FillerClip returns one filler clip.
func (s *Store) FillerClip(ctx context.Context, id models.ID) (*models.FillerClip, error) {
	return s.Fillers.GetClip(ctx, id)
}

// FFmpegSettings returns the encoder settings singleton.
func (s *Store) FFmpegSettings(ctx context.Context) (*models.FFmpegSettings, error) {
	return s.Settings.Get(ctx)
}
