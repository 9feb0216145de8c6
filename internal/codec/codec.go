// Package codec provides codec family detection for the encoder planner.
// It decides whether a probed stream can be copied into the output container
// or has to be transcoded, by reducing probe codec names and configured
// encoder names to a common family.
package codec

import "strings"

// VideoFamily identifies a video codec family.
type VideoFamily string

// Video family constants.
const (
	VideoH264    VideoFamily = "h264"
	VideoH265    VideoFamily = "h265"
	VideoMPEG2   VideoFamily = "mpeg2"
	VideoUnknown VideoFamily = ""
)

// AudioFamily identifies an audio codec family.
type AudioFamily string

// Audio family constants.
const (
	AudioAAC     AudioFamily = "aac"
	AudioMP3     AudioFamily = "mp3"
	AudioAC3     AudioFamily = "ac3"
	AudioFLAC    AudioFamily = "flac"
	AudioUnknown AudioFamily = ""
)

// familyMarkers maps a family to the substrings that identify it in codec
// and encoder names. Detection is substring-based so that probe output
// ("h264", "hevc") and encoder names ("libx264", "hevc_videotoolbox",
// "mpeg2video") land in the same family without an exhaustive alias list.
type videoMarker struct {
	family  VideoFamily
	markers []string
}

type audioMarker struct {
	family  AudioFamily
	markers []string
}

// Order matters: h265 markers are checked before h264 so "hevc" names are
// never shadowed, and every marker set is disjoint from later ones.
var videoMarkers = []videoMarker{
	{family: VideoH265, markers: []string{"265", "hevc"}},
	{family: VideoH264, markers: []string{"264"}},
	{family: VideoMPEG2, markers: []string{"mpeg2"}},
}

var audioMarkers = []audioMarker{
	{family: AudioMP3, markers: []string{"mp3", "lame"}},
	{family: AudioAAC, markers: []string{"aac"}},
	{family: AudioAC3, markers: []string{"ac3"}},
	{family: AudioFLAC, markers: []string{"flac"}},
}

// DetectVideo reduces a codec or encoder name to its video family.
// Unrecognized names return VideoUnknown.
func DetectVideo(name string) VideoFamily {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return VideoUnknown
	}
	for _, vm := range videoMarkers {
		for _, marker := range vm.markers {
			if strings.Contains(name, marker) {
				return vm.family
			}
		}
	}
	return VideoUnknown
}

// DetectAudio reduces a codec or encoder name to its audio family.
// Unrecognized names return AudioUnknown.
func DetectAudio(name string) AudioFamily {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return AudioUnknown
	}
	for _, am := range audioMarkers {
		for _, marker := range am.markers {
			if strings.Contains(name, marker) {
				return am.family
			}
		}
	}
	return AudioUnknown
}

// VideoMatch reports whether a probed video codec and a configured encoder
// belong to the same family. Unknown pairings never match, which forces a
// transcode for safety.
func VideoMatch(probed, encoder string) bool {
	pf := DetectVideo(probed)
	ef := DetectVideo(encoder)
	return pf != VideoUnknown && pf == ef
}

// AudioMatch reports whether a probed audio codec and a configured encoder
// belong to the same family. Unknown pairings never match.
func AudioMatch(probed, encoder string) bool {
	pf := DetectAudio(probed)
	ef := DetectAudio(encoder)
	return pf != AudioUnknown && pf == ef
}

// stillimageTuneEncoders is the set of encoders that accept -tune stillimage.
var stillimageTuneEncoders = map[string]struct{}{
	"mpeg2video":        {},
	"libx264":           {},
	"h264_videotoolbox": {},
}

// SupportsStillimageTune reports whether the encoder accepts the stillimage
// tune used when looping a single offline picture.
func SupportsStillimageTune(encoder string) bool {
	_, ok := stillimageTuneEncoders[strings.ToLower(strings.TrimSpace(encoder))]
	return ok
}
