package middleware

import (
	"net/http"
	"strings"
)

// streamPrefixes lists the paths that deliver live transport-stream bytes or
// HLS segments. Compressing them would buffer the response and starve the
// player of timely data.
var streamPrefixes = []string{
	"/setup",
	"/video",
	"/radio",
	"/stream",
	"/hls/",
}

// SkipCompressionForStreams wraps a compression middleware so streaming
// endpoints bypass it. Live MPEG-TS output must reach the client unbuffered
// and flushed per chunk; everything else (JSON API, playlists, guide XML)
// still benefits from compression.
func SkipCompressionForStreams(compressionHandler func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		compressedHandler := compressionHandler(next)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range streamPrefixes {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}
			compressedHandler.ServeHTTP(w, r)
		})
	}
}
