package stream

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/bluenviron/gohlslib/v2/pkg/playlist"
)

// ManifestOptions shape the stream URLs a concat manifest points at.
type ManifestOptions struct {
	AudioOnly bool
	HLS       bool

	// SingleEntry emits one entry instead of two. Two entries let the
	// client's concat demuxer prefetch the reopen while the current item
	// still plays; auto-play off disables that.
	SingleEntry bool
}

// ConcatManifest renders the ffconcat playlist that glues successive /stream
// calls into one uninterrupted transport stream. The first entry carries
// first=0 so the opening splice starts with the tiny loading slot.
func ConcatManifest(baseURL string, channelNumber int, sessionID int64, opts ManifestOptions) string {
	var b strings.Builder
	b.WriteString("ffconcat version 1.0\n")
	fmt.Fprintf(&b, "file '%s'\n", streamURL(baseURL, channelNumber, sessionID, opts, true))
	if !opts.SingleEntry {
		fmt.Fprintf(&b, "file '%s'\n", streamURL(baseURL, channelNumber, sessionID, opts, false))
	}
	return b.String()
}

func streamURL(baseURL string, channelNumber int, sessionID int64, opts ManifestOptions, first bool) string {
	q := url.Values{}
	q.Set("channel", strconv.Itoa(channelNumber))
	q.Set("session", strconv.FormatInt(sessionID, 10))
	if opts.AudioOnly {
		q.Set("audioOnly", "1")
	}
	if opts.HLS {
		q.Set("hls", "1")
	}
	if first {
		q.Set("first", "0")
	}
	return strings.TrimRight(baseURL, "/") + "/stream?" + q.Encode()
}

// MultivariantPlaylist renders the single-rendition HLS multivariant
// playlist for /m3u8. bandwidthKbps sizes the BANDWIDTH attribute.
func MultivariantPlaylist(mediaURL string, bandwidthKbps int) ([]byte, error) {
	if bandwidthKbps <= 0 {
		bandwidthKbps = 10000
	}
	mv := &playlist.Multivariant{
		Version: 3,
		Variants: []*playlist.MultivariantVariant{{
			Bandwidth: bandwidthKbps * 1000,
			URI:       mediaURL,
		}},
	}
	return mv.Marshal()
}
