package m3u

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterHeader(t *testing.T) {
	var buf strings.Builder
	w := NewWriter(&buf)

	require.NoError(t, w.WriteHeader())
	require.NoError(t, w.WriteHeader()) // idempotent

	assert.Equal(t, "#EXTM3U\n", buf.String())
}

func TestWriterEntry(t *testing.T) {
	var buf strings.Builder
	w := NewWriter(&buf)

	require.NoError(t, w.WriteEntry(&Entry{
		TvgID:         "retro.1",
		TvgName:       "Retro TV",
		TvgLogo:       "http://host/icon.png",
		GroupTitle:    "Virtual",
		ChannelNumber: 1,
		Title:         "Retro TV",
		URL:           "http://host/video?channel=1",
	}))

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "#EXTM3U", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "#EXTINF:-1 "))
	assert.Contains(t, lines[1], `tvg-id="retro.1"`)
	assert.Contains(t, lines[1], `tvg-chno="1"`)
	assert.Contains(t, lines[1], `group-title="Virtual"`)
	assert.True(t, strings.HasSuffix(lines[1], ",Retro TV"))
	assert.Equal(t, "http://host/video?channel=1", lines[2])
}

func TestWriterEntryNoAttributes(t *testing.T) {
	var buf strings.Builder
	w := NewWriter(&buf)

	require.NoError(t, w.WriteEntry(&Entry{
		Title: "Bare",
		URL:   "http://host/video?channel=2",
	}))

	assert.Contains(t, buf.String(), "#EXTINF:-1,Bare\n")
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errBroken }

var errBroken = errors.New("broken pipe")

func TestWriterKeepsFirstError(t *testing.T) {
	w := NewWriter(brokenWriter{})
	assert.ErrorIs(t, w.WriteEntry(&Entry{Title: "Bare", URL: "http://host/video?channel=2"}), errBroken)
	assert.ErrorIs(t, w.WriteHeader(), errBroken)
}

func TestWriterEscapesQuotes(t *testing.T) {
	var buf strings.Builder
	w := NewWriter(&buf)

	require.NoError(t, w.WriteEntry(&Entry{
		TvgName: `The "Best" Channel`,
		Title:   "Best",
		URL:     "http://host/video?channel=3",
	}))

	assert.Contains(t, buf.String(), `tvg-name="The \"Best\" Channel"`)
}
