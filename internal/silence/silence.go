// Package silence implements the endless valid MP3 silence stream the engine
// falls back to whenever no playable track is ready.
package silence

import "io"

// DefaultBitrateKbps and DefaultSampleRate match the engine's usual
// playback configuration.
const (
	DefaultBitrateKbps = 128
	DefaultSampleRate  = 44100
)

// frameHeader is the fixed MPEG-1 Layer III header used for every silence
// frame: version 1, layer III, no CRC, bitrate index 9 (128 kbps), sample
// rate index 0 (44.1 kHz), no padding, stereo. 0xFF 0xFB 0x90 0x00 is the
// canonical silence header used by the reference stream generator this
// package is grounded on. The header is never patched, so it declares
// 128 kbps / 44.1 kHz whatever bitrate and sample rate a Generator uses.
var frameHeader = [4]byte{0xFF, 0xFB, 0x90, 0x00}

// FrameSize returns the byte size of one MP3 frame at the given bitrate
// (kbps) and sample rate (Hz): floor(144 * bitrateKbps * 1000 / sampleRate).
func FrameSize(bitrateKbps, sampleRate int) int {
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if bitrateKbps <= 0 {
		bitrateKbps = DefaultBitrateKbps
	}
	return (144 * bitrateKbps * 1000) / sampleRate
}

// Generator is a pull-based, unbounded source of silent MP3 frames. It
// implements io.Reader so callers can pull frames at whatever pace they
// choose to pace playback.
type Generator struct {
	frame []byte
	pos   int
}

// NewGenerator builds a Generator whose frames are FrameSize(bitrateKbps,
// sampleRate) bytes long, each the fixed silence header followed by zero
// bytes.
func NewGenerator(bitrateKbps, sampleRate int) *Generator {
	size := FrameSize(bitrateKbps, sampleRate)
	frame := make([]byte, size)
	copy(frame, frameHeader[:])
	return &Generator{frame: frame}
}

// Read fills p with silence frame bytes, looping the frame indefinitely. It
// never returns io.EOF; the caller decides when to stop reading.
func (g *Generator) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if g.pos == 0 && len(p)-n >= len(g.frame) {
			// Fast path: whole frames at a time.
			copy(p[n:n+len(g.frame)], g.frame)
			n += len(g.frame)
			continue
		}
		copied := copy(p[n:], g.frame[g.pos:])
		n += copied
		g.pos += copied
		if g.pos >= len(g.frame) {
			g.pos = 0
		}
	}
	return n, nil
}

var _ io.Reader = (*Generator)(nil)
