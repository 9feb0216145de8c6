// Package xmltv writes XMLTV guide documents for the guide endpoint.
package xmltv

import "time"

// Channel is a channel definition in the guide.
type Channel struct {
	ID          string
	DisplayName string
	Icon        string
	URL         string
}

// Programme is one scheduled airing. Titles render with lang="en"; the
// episode number uses the onscreen SxxExx system.
type Programme struct {
	Start       time.Time
	Stop        time.Time
	Channel     string
	Title       string
	Description string
	Icon        string
	EpisodeNum  string
	Rating      string
}
