// Package stream orchestrates client-facing channel streams: per-client
// concat sessions, lineup resolution through redirects and filler, encoder
// plan building, and supervision of the encoder feeding the response.
//
// The infinite-stream illusion is concat-driven: /playlist hands the client
// an ffconcat manifest whose entries point back at /stream, so a short-lived
// encoder runs per lineup item and the client's concat demuxer reopens the
// URL between items without a visible splice.
package stream

import (
	"context"
	"errors"

	"github.com/jmylchreest/castarr/internal/lineup"
	"github.com/jmylchreest/castarr/internal/models"
)

const (
	// redirectErrorMs is the offline slot surfaced when a redirect cycle is
	// detected; the schedule may be fixed meanwhile, so keep it short.
	redirectErrorMs int64 = 60 * 1000

	// throttleMs is the offline slot substituted when a session exceeds its
	// failed-attempt budget.
	throttleMs int64 = 60 * 1000

	// permanentOfflineMs is substituted when a lineup consists of a single
	// offline item: the channel is off the air indefinitely.
	permanentOfflineMs int64 = 365 * 24 * 60 * 60 * 1000

	// fallbackCapMs bounds the offline screen shown when no filler is
	// eligible; the schedule may change, so re-resolve within ten minutes.
	fallbackCapMs int64 = 10 * 60 * 1000

	// loadingMs is the tiny slot injected on first==0 to stabilize the first
	// concat splice.
	loadingMs int64 = 40

	// maxSkipDepth caps short-offline skip recursion, mirroring the redirect
	// hop bound.
	maxSkipDepth = 10

	// throttleText labels the throttle offline slot.
	throttleText = "Too many attempts, throttling"
)

// Sentinel errors surfaced to the HTTP layer.
var (
	// ErrChannelRequired indicates the request named no channel.
	ErrChannelRequired = errors.New("channel is required")

	// ErrChannelNotFound indicates the named channel does not exist.
	ErrChannelNotFound = errors.New("channel not found")

	// ErrEncoderMissing indicates no usable ffmpeg executable was found.
	ErrEncoderMissing = errors.New("encoder executable not found")
)

// Store is the read-only persistence surface the streaming core needs, as
// implemented by the repository layer. Lookups return (nil, nil) when the
// entity does not exist.
type Store interface {
	lineup.ChannelLoader

	// ChannelByNumber returns the channel with the given stream number.
	ChannelByNumber(ctx context.Context, number int) (*models.Channel, error)

	// ChannelByID returns the channel with the given ID.
	ChannelByID(ctx context.Context, id models.ID) (*models.Channel, error)

	// Lineup returns the channel's ordered items with programs preloaded.
	Lineup(ctx context.Context, channelID models.ID) ([]models.LineupItem, error)

	// FillerCollections returns the channel's collections with shows and
	// clips preloaded.
	FillerCollections(ctx context.Context, channelID models.ID) ([]models.FillerCollection, error)

	// FillerClip returns one filler clip.
	FillerClip(ctx context.Context, id models.ID) (*models.FillerClip, error)

	// FFmpegSettings returns the encoder settings singleton.
	FFmpegSettings(ctx context.Context) (*models.FFmpegSettings, error)
}
