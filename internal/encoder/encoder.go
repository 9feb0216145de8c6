// Package encoder builds ffmpeg invocations for resolved lineup items and
// supervises the resulting child processes.
//
// Plan building is a pure function: identical inputs produce byte-identical
// argument lists, which keeps the encoder contract reproducible under test.
// Argument order is canonical: global flags, inputs, -filter_complex, stream
// mapping, codec parameters, duration bound, muxer target.
package encoder

import "errors"

// Output selects the muxer target of a plan.
type Output string

// Output constants.
const (
	// OutputMPEGTS writes a transport stream to stdout for direct serving.
	OutputMPEGTS Output = "mpegts"
	// OutputHLS writes segments and a playlist into the segment directory.
	OutputHLS Output = "hls"
	// OutputDASH writes a DASH manifest into the segment directory.
	OutputDASH Output = "dash"
)

// Sentinel errors for plan building and process supervision.
var (
	// ErrKillScreen indicates the configured error screen is "kill": the
	// request fails instead of synthesizing video.
	ErrKillScreen = errors.New("error screen is kill")

	// ErrKilled indicates the process was killed before it could start.
	ErrKilled = errors.New("encoder process killed")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("encoder process already started")

	// ErrNotStarted indicates the process has not been spawned yet.
	ErrNotStarted = errors.New("encoder process not started")

	// ErrNoResolution indicates the target resolution string is unparseable.
	ErrNoResolution = errors.New("invalid target resolution")
)
