package m3u

import (
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Writer streams an extended M3U playlist. Write errors stick: once a write
// fails every later call returns it.
type Writer struct {
	w             io.Writer
	err           error
	headerWritten bool
}

// NewWriter creates an M3U writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) line(s string) {
	if w.err == nil {
		_, w.err = io.WriteString(w.w, s+"\n")
	}
}

// WriteHeader writes the #EXTM3U header. The first WriteEntry calls it
// implicitly.
func (w *Writer) WriteHeader() error {
	if !w.headerWritten {
		w.headerWritten = true
		w.line("#EXTM3U")
	}
	return w.err
}

// WriteEntry writes one channel: the EXTINF line with its tvg attributes,
// then the stream URL.
func (w *Writer) WriteEntry(e *Entry) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}

	var attrs []string
	attr := func(name, value string) {
		attrs = append(attrs, name+`="`+strings.ReplaceAll(value, `"`, `\"`)+`"`)
	}
	if e.TvgID != "" {
		attr("tvg-id", e.TvgID)
	}
	if e.TvgName != "" {
		attr("tvg-name", e.TvgName)
	}
	if e.TvgLogo != "" {
		attr("tvg-logo", e.TvgLogo)
	}
	if e.GroupTitle != "" {
		attr("group-title", e.GroupTitle)
	}
	if e.ChannelNumber > 0 {
		attr("tvg-chno", strconv.Itoa(e.ChannelNumber))
	}

	extinf := "#EXTINF:-1"
	if len(attrs) > 0 {
		extinf += " " + strings.Join(attrs, " ")
	}
	w.line(extinf + "," + e.Title)
	w.line(e.URL)
	if w.err != nil {
		return fmt.Errorf("writing playlist entry %q: %w", e.Title, w.err)
	}
	return nil
}
