// Package audio moves PCM between the sequencer engine and the outside world:
// sample decoding, the paced render pipeline, format conversion and WAV output.
package audio

import "time"

const (
	SampleRate    = 48000
	Channels      = 2
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960                  // samples per channel per 20ms frame
	FrameSamples  = FrameSize * Channels // total interleaved samples per frame
	FrameBytes    = FrameSamples * 2     // bytes per frame (int16 = 2 bytes)
)

// Renderer produces planar audio one block at a time. sequencer.Engine
// satisfies it.
type Renderer interface {
	ProcessBlock(out [][]float32)
}

// NewPlanar allocates channels buffers of frames samples each.
func NewPlanar(channels, frames int) [][]float32 {
	buf := make([][]float32, channels)
	for ch := range buf {
		buf[ch] = make([]float32, frames)
	}
	return buf
}
