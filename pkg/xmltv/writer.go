package xmltv

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// Writer streams an XMLTV document: header, channels, programmes, footer.
// Write errors stick: once a write fails every later call returns it.
type Writer struct {
	w             io.Writer
	err           error
	headerWritten bool
	channelsDone  bool
}

// NewWriter creates an XMLTV writer on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

func (w *Writer) printf(format string, args ...any) {
	if w.err == nil {
		_, w.err = fmt.Fprintf(w.w, format, args...)
	}
}

// element writes one indented child element with escaped character data.
// extra is raw attribute text the caller has already escaped.
func (w *Writer) element(name, extra, value string) {
	if extra != "" {
		extra = " " + extra
	}
	w.printf("    <%s%s>%s</%s>\n", name, extra, xmlEscape(value), name)
}

// WriteHeader writes the XML declaration and opens the tv element. The
// first WriteChannel or WriteProgramme calls it implicitly.
func (w *Writer) WriteHeader() error {
	if !w.headerWritten {
		w.headerWritten = true
		w.printf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
		w.printf("<tv generator-info-name=\"castarr\" generator-info-url=\"https://github.com/jmylchreest/castarr\">\n")
	}
	return w.err
}

// WriteChannel writes one channel definition. The XMLTV DTD puts all
// channels before the first programme.
func (w *Writer) WriteChannel(ch *Channel) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if w.channelsDone {
		return fmt.Errorf("channel %s: channels must precede programmes", ch.ID)
	}

	w.printf("  <channel id=\"%s\">\n", xmlEscape(ch.ID))
	w.element("display-name", "", ch.DisplayName)
	if ch.Icon != "" {
		w.printf("    <icon src=\"%s\"/>\n", xmlEscape(ch.Icon))
	}
	if ch.URL != "" {
		w.element("url", "", ch.URL)
	}
	w.printf("  </channel>\n")
	if w.err != nil {
		return fmt.Errorf("writing channel %s: %w", ch.ID, w.err)
	}
	return nil
}

// WriteProgramme writes one programme entry.
func (w *Writer) WriteProgramme(p *Programme) error {
	if err := w.WriteHeader(); err != nil {
		return err
	}
	w.channelsDone = true

	w.printf("  <programme start=\"%s\" stop=\"%s\" channel=\"%s\">\n",
		formatXMLTVTime(p.Start), formatXMLTVTime(p.Stop), xmlEscape(p.Channel))
	w.element("title", `lang="en"`, p.Title)
	if p.Description != "" {
		w.element("desc", `lang="en"`, p.Description)
	}
	if p.Icon != "" {
		w.printf("    <icon src=\"%s\"/>\n", xmlEscape(p.Icon))
	}
	if p.EpisodeNum != "" {
		w.element("episode-num", `system="onscreen"`, p.EpisodeNum)
	}
	if p.Rating != "" {
		w.printf("    <rating><value>%s</value></rating>\n", xmlEscape(p.Rating))
	}
	w.printf("  </programme>\n")
	if w.err != nil {
		return fmt.Errorf("writing programme on %s: %w", p.Channel, w.err)
	}
	return nil
}

// WriteFooter closes the tv element.
func (w *Writer) WriteFooter() error {
	w.printf("</tv>\n")
	return w.err
}

// formatXMLTVTime renders t in the XMLTV timestamp format, normalized to UTC.
func formatXMLTVTime(t time.Time) string {
	return t.UTC().Format("20060102150405 +0000")
}

// xmlEscape escapes character data and attribute values.
func xmlEscape(s string) string {
	var b strings.Builder
	// EscapeText only fails when the writer fails; Builder never does.
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
