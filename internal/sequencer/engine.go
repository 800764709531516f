// Package sequencer implements a six-track, sixteen-step sample sequencer.
//
// An Engine is driven by one audio thread calling Prepare and ProcessBlock.
// Every other method is safe to call from any goroutine while audio runs;
// changes take effect from the next processed sample, or the next block for a
// newly loaded sample buffer. Nothing on the audio path locks or allocates.
package sequencer

import (
	"sync/atomic"
	"time"

	"github.com/satindergrewal/stepseq/internal/dsp"
)

// Options tune behaviour that has more than one reasonable answer.
type Options struct {
	// FractionalTempo carries the fractional part of the step length so the
	// long-run step rate matches the tempo exactly.
	FractionalTempo bool
	// GainSmoothing ramps gain changes over this duration. Zero applies them
	// on the next sample.
	GainSmoothing time.Duration
}

// Engine is the sequencer and mixer.
type Engine struct {
	opts Options

	bpm  floatCell
	rate floatCell
	step atomic.Int32

	// audio thread
	sampleRate float64
	clock      Clock
	prepared   bool

	tracks [NumTracks]track
}

// New returns an engine at DefaultBPM with every track empty and stopped.
func New(opts Options) *Engine {
	e := &Engine{opts: opts}
	e.bpm.Store(DefaultBPM)
	e.clock.SetFractional(opts.FractionalTempo)
	for i := range e.tracks {
		e.tracks[i].init()
	}
	return e
}

// Prepare starts a new session: the step resets to 0, every cursor to the
// start of its buffer and all filter, crusher and envelope state is cleared.
// blockSize is the largest block the host intends to pass; the engine keeps
// fixed-size state so it is informational only. A non-positive sample rate
// keeps the previous one.
func (e *Engine) Prepare(sampleRate float64, blockSize int) {
	if sampleRate > 0 {
		e.sampleRate = sampleRate
		e.rate.Store(sampleRate)
	}
	e.clock.Prepare(e.sampleRate, e.bpm.Load())
	smoothing := int(e.opts.GainSmoothing.Seconds() * e.sampleRate)
	for i := range e.tracks {
		e.tracks[i].prepare(e.sampleRate, smoothing)
	}
	e.step.Store(0)
	e.prepared = e.sampleRate > 0
}

// ProcessBlock renders len(out[0]) frames into out, one slice per output
// channel. The output is overwritten; channels beyond dsp.MaxChannels stay
// silent. The mix is not clipped.
func (e *Engine) ProcessBlock(out [][]float32) {
	if len(out) == 0 {
		return
	}
	frames := len(out[0])
	for ch := range out {
		frames = min(frames, len(out[ch]))
		clear(out[ch])
	}
	if !e.prepared || frames == 0 {
		return
	}
	channels := min(len(out), dsp.MaxChannels)

	e.clock.SetTempo(e.bpm.Load())
	for i := range e.tracks {
		e.tracks[i].adopt()
	}

	step := e.clock.Step()
	for s := 0; s < frames; s++ {
		var crossed bool
		crossed, step = e.clock.Tick()
		if crossed {
			for i := range e.tracks {
				e.tracks[i].trigger(step)
			}
		}
		for i := range e.tracks {
			e.tracks[i].render(out, s, step, channels)
		}
	}

	e.step.Store(int32(step))
	for i := range e.tracks {
		e.tracks[i].publish()
	}
}

// Render allocates a planar buffer and processes one block into it. It is
// meant for offline rendering.
func (e *Engine) Render(channels, frames int) [][]float32 {
	out := make([][]float32, channels)
	for ch := range out {
		out[ch] = make([]float32, frames)
	}
	e.ProcessBlock(out)
	return out
}
