package mpegts

import (
	"bytes"
	"context"
	"testing"

	"github.com/asticode/go-astits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func muxTables(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	mx := astits.NewMuxer(context.Background(), &buf)
	require.NoError(t, mx.AddElementaryStream(astits.PMTElementaryStream{
		ElementaryPID: 256,
		StreamType:    astits.StreamTypeH264Video,
	}))
	require.NoError(t, mx.AddElementaryStream(astits.PMTElementaryStream{
		ElementaryPID: 257,
		StreamType:    astits.StreamTypeADTS,
	}))
	mx.SetPCRPID(256)
	_, err := mx.WriteTables()
	require.NoError(t, err)
	return buf.Bytes()
}

func TestInspect(t *testing.T) {
	info, err := Inspect(context.Background(), bytes.NewReader(muxTables(t)))
	require.NoError(t, err)

	assert.Equal(t, uint16(256), info.PCRPID)
	require.Len(t, info.Streams, 2)
	assert.Equal(t, uint16(256), info.Streams[0].PID)
	assert.True(t, info.Streams[0].Video)
	assert.Equal(t, uint16(257), info.Streams[1].PID)
	assert.False(t, info.Streams[1].Video)

	assert.Equal(t, "h264", info.VideoCodec())
	assert.Equal(t, "aac", info.AudioCodec())
}

func TestInspectEmptyStream(t *testing.T) {
	_, err := Inspect(context.Background(), bytes.NewReader(nil))
	assert.ErrorIs(t, err, ErrNoProgramMap)
}

func TestInspectGarbage(t *testing.T) {
	_, err := Inspect(context.Background(), bytes.NewReader(bytes.Repeat([]byte{0x00}, 4*188)))
	assert.Error(t, err)
}

func TestCodecOf(t *testing.T) {
	tests := []struct {
		streamType astits.StreamType
		codec      string
		video      bool
	}{
		{astits.StreamTypeMPEG2Video, "mpeg2video", true},
		{astits.StreamTypeH264Video, "h264", true},
		{astits.StreamTypeH265Video, "hevc", true},
		{astits.StreamTypeADTS, "aac", false},
		{astits.StreamTypeAC3Audio, "ac3", false},
		{astits.StreamTypeMPEG1Audio, "mp2", false},
		{astits.StreamType(0xEA), "", false},
	}
	for _, tt := range tests {
		codec, video := codecOf(tt.streamType)
		assert.Equal(t, tt.codec, codec)
		assert.Equal(t, tt.video, video)
	}
}
