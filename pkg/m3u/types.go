// Package m3u writes extended M3U playlists with EXTINF metadata for the
// media-player playlist endpoints.
package m3u

// Entry is one live channel in an extended M3U playlist. Live streams have
// no fixed length, so entries always render with an EXTINF duration of -1.
type Entry struct {
	// TvgID is the EPG channel identifier, matching the XMLTV channel id.
	TvgID string

	// TvgName is the tvg-name attribute.
	TvgName string

	// TvgLogo is the channel logo URL.
	TvgLogo string

	// GroupTitle is the playlist group.
	GroupTitle string

	// ChannelNumber is the tvg-chno attribute; zero omits it.
	ChannelNumber int

	// Title is the display title after the EXTINF attributes.
	Title string

	// URL is the stream URL.
	URL string
}
