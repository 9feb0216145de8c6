// Package mpegts inspects MPEG transport streams without ffprobe by reading
// the program tables at the head of the stream.
package mpegts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/asticode/go-astits"
)

// ErrNoProgramMap indicates no PMT was found within the inspection window.
var ErrNoProgramMap = errors.New("no program map table found")

// maxPackets bounds how far Inspect reads before giving up on finding a PMT.
// Tables repeat at least every 100ms, so a few thousand packets is plenty.
const maxPackets = 5000

// Stream is one elementary stream announced by the program map table.
type Stream struct {
	// PID is the packet identifier carrying the stream.
	PID uint16

	// Codec is the ffmpeg-style codec name, empty when the stream type is
	// not one we recognize.
	Codec string

	// Video reports whether the stream type is a video type.
	Video bool
}

// Info is the distilled outcome of inspecting a transport stream.
type Info struct {
	// ProgramNumber is the first program announced by the PAT.
	ProgramNumber uint16

	// PCRPID carries the program clock reference.
	PCRPID uint16

	// Streams are the elementary streams of the first PMT, in table order.
	Streams []Stream
}

// VideoCodec returns the codec of the first video stream, or "".
func (i *Info) VideoCodec() string {
	for _, s := range i.Streams {
		if s.Video {
			return s.Codec
		}
	}
	return ""
}

// AudioCodec returns the codec of the first recognized audio stream, or "".
func (i *Info) AudioCodec() string {
	for _, s := range i.Streams {
		if !s.Video && s.Codec != "" {
			return s.Codec
		}
	}
	return ""
}

// Inspect demuxes packets from r until the first program map table is seen
// and returns the streams it announces.
func Inspect(ctx context.Context, r io.Reader) (*Info, error) {
	dmx := astits.NewDemuxer(ctx, r)

	for packets := 0; packets < maxPackets; packets++ {
		data, err := dmx.NextData()
		if err != nil {
			if errors.Is(err, astits.ErrNoMorePackets) {
				return nil, ErrNoProgramMap
			}
			return nil, fmt.Errorf("demuxing transport stream: %w", err)
		}
		if data.PMT == nil {
			continue
		}

		info := &Info{
			ProgramNumber: data.PMT.ProgramNumber,
			PCRPID:        data.PMT.PCRPID,
		}
		for _, es := range data.PMT.ElementaryStreams {
			codec, video := codecOf(es.StreamType)
			info.Streams = append(info.Streams, Stream{
				PID:   es.ElementaryPID,
				Codec: codec,
				Video: video,
			})
		}
		return info, nil
	}

	return nil, ErrNoProgramMap
}

// codecOf maps a PMT stream type to the codec name ffprobe would report.
func codecOf(t astits.StreamType) (codec string, video bool) {
	switch t {
	case astits.StreamTypeMPEG1Video:
		return "mpeg1video", true
	case astits.StreamTypeMPEG2Video:
		return "mpeg2video", true
	case astits.StreamTypeH264Video:
		return "h264", true
	case astits.StreamTypeH265Video:
		return "hevc", true
	case astits.StreamTypeMPEG1Audio, astits.StreamTypeMPEG2HalvedSampleRateAudio:
		return "mp2", false
	case astits.StreamTypeADTS:
		return "aac", false
	case astits.StreamTypeAC3Audio:
		return "ac3", false
	case astits.StreamTypeEAC3Audio:
		return "eac3", false
	default:
		return "", false
	}
}
