package encoder

import (
	"fmt"
	"strings"
)

// filterGraph assembles a -filter_complex expression by chaining named pads.
// Each step appends ";[prev]filter[next]" and advances the video or audio
// cursor, so every generated pad is defined exactly once and the expression
// never starts with a separator.
type filterGraph struct {
	sb  strings.Builder
	seq int

	video    string
	videoRaw bool
	audio    string
	audioRaw bool
}

// nextPad returns a fresh pad label.
func (g *filterGraph) nextPad(prefix string) string {
	g.seq++
	return fmt.Sprintf("%s%d", prefix, g.seq)
}

func (g *filterGraph) sep() {
	if g.sb.Len() > 0 {
		g.sb.WriteByte(';')
	}
}

// setVideoInput points the video cursor at a raw input pad like "0:v:0".
func (g *filterGraph) setVideoInput(pad string) {
	g.video = pad
	g.videoRaw = true
}

// setAudioInput points the audio cursor at a raw input pad like "0:1".
func (g *filterGraph) setAudioInput(pad string) {
	g.audio = pad
	g.audioRaw = true
}

// videoSource starts the video chain from a source filter with no input pad.
func (g *filterGraph) videoSource(filter string) {
	out := g.nextPad("v")
	g.sep()
	fmt.Fprintf(&g.sb, "%s[%s]", filter, out)
	g.video, g.videoRaw = out, false
}

// audioSource starts the audio chain from a source filter with no input pad.
func (g *filterGraph) audioSource(filter string) {
	out := g.nextPad("a")
	g.sep()
	fmt.Fprintf(&g.sb, "%s[%s]", filter, out)
	g.audio, g.audioRaw = out, false
}

// videoFilter chains a single-input filter onto the current video pad.
func (g *filterGraph) videoFilter(filter string) {
	out := g.nextPad("v")
	g.sep()
	fmt.Fprintf(&g.sb, "[%s]%s[%s]", g.video, filter, out)
	g.video, g.videoRaw = out, false
}

// audioFilter chains a single-input filter onto the current audio pad.
func (g *filterGraph) audioFilter(filter string) {
	out := g.nextPad("a")
	g.sep()
	fmt.Fprintf(&g.sb, "[%s]%s[%s]", g.audio, filter, out)
	g.audio, g.audioRaw = out, false
}

// videoOverlay chains a two-input filter taking the current video pad first
// and otherPad second, as overlay does.
func (g *filterGraph) videoOverlay(otherPad, filter string) {
	out := g.nextPad("v")
	g.sep()
	fmt.Fprintf(&g.sb, "[%s][%s]%s[%s]", g.video, otherPad, filter, out)
	g.video, g.videoRaw = out, false
}

// filterInto applies a filter to an arbitrary input pad off the main chains
// and returns the resulting pad, used to pre-scale the watermark image.
func (g *filterGraph) filterInto(inPad, filter string) string {
	out := g.nextPad("w")
	g.sep()
	fmt.Fprintf(&g.sb, "[%s]%s[%s]", inPad, filter, out)
	return out
}

// empty reports whether no filter was added.
func (g *filterGraph) empty() bool {
	return g.sb.Len() == 0
}

// String returns the assembled -filter_complex value.
func (g *filterGraph) String() string {
	return g.sb.String()
}

// videoMap returns the -map argument for the current video cursor.
func (g *filterGraph) videoMap() string {
	if g.videoRaw {
		return g.video
	}
	return "[" + g.video + "]"
}

// audioMap returns the -map argument for the current audio cursor.
func (g *filterGraph) audioMap() string {
	if g.audioRaw {
		return g.audio
	}
	return "[" + g.audio + "]"
}

// hasVideo reports whether a video cursor is set.
func (g *filterGraph) hasVideo() bool { return g.video != "" }

// hasAudio reports whether an audio cursor is set.
func (g *filterGraph) hasAudio() bool { return g.audio != "" }

// videoFiltered reports whether the video cursor points at a generated pad,
// meaning the stream has to be re-encoded.
func (g *filterGraph) videoFiltered() bool { return g.hasVideo() && !g.videoRaw }

// audioFiltered reports whether the audio cursor points at a generated pad.
func (g *filterGraph) audioFiltered() bool { return g.hasAudio() && !g.audioRaw }

// escapeDrawtext escapes a string for use inside a drawtext text='...' value.
func escapeDrawtext(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		`'`, `\'`,
		`:`, `\:`,
		`%`, `\%`,
	)
	return r.Replace(s)
}
