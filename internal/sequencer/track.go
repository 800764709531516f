package sequencer

import (
	"sync/atomic"

	"github.com/satindergrewal/stepseq/internal/dsp"
)

// NumTracks is the fixed number of tracks in the engine.
const NumTracks = 6

// track holds one voice. The first block of fields is written by the control
// side and read by the audio thread; the second block belongs to the audio
// thread alone; the last block is published by the audio thread for readers.
type track struct {
	pending atomic.Pointer[Sample]
	loaded  atomic.Bool
	playing atomic.Bool
	crush   atomic.Bool
	filters atomic.Uint32
	steps   [NumSteps]atomic.Bool
	params  [numParams]floatCell

	sample  *Sample
	cursor  int
	bank    dsp.FilterBank
	crusher dsp.Bitcrusher
	env     dsp.Envelope
	gain    dsp.Ramp
	frame   [dsp.MaxChannels]float32

	cursorOut atomic.Int64
	stageOut  atomic.Int32
	levelOut  floatCell
}

func (t *track) init() {
	for p, v := range defaultParams() {
		t.params[p].Store(v)
	}
}

func (t *track) param(p Param) float64 {
	return t.params[p].Load()
}

func (t *track) filterParams() dsp.FilterParams {
	return dsp.FilterParams{
		LowpassCutoff:  t.param(ParamLowpassCutoff),
		HighpassCutoff: t.param(ParamHighpassCutoff),
		BandpassCutoff: t.param(ParamBandpassCutoff),
		BandpassWidth:  t.param(ParamBandpassWidth),
		NotchCutoff:    t.param(ParamNotchCutoff),
		NotchWidth:     t.param(ParamNotchWidth),
		PeakCutoff:     t.param(ParamPeakCutoff),
		PeakQ:          t.param(ParamPeakQ),
		PeakGainDB:     t.param(ParamPeakGain),
	}
}

func (t *track) adsr() dsp.ADSR {
	return dsp.ADSR{
		Attack:  t.param(ParamAttack),
		Decay:   t.param(ParamDecay),
		Sustain: t.param(ParamSustain),
		Release: t.param(ParamRelease),
	}
}

func (t *track) targetGain() float64 {
	return finiteOr(t.param(ParamGain), 0)
}

// prepare resets all audio-side state for a new session.
func (t *track) prepare(sampleRate float64, smoothing int) {
	t.sample = t.pending.Load()
	t.cursor = 0
	t.bank.Prepare(sampleRate, t.filterParams())
	t.crusher.Reset()
	t.env.Reset()
	t.env.SetSampleRate(sampleRate)
	t.env.SetParams(t.adsr())
	t.gain.SetLength(smoothing)
	t.gain.Snap(t.targetGain())
	t.publish()
}

// adopt picks up a buffer published by Load. A new buffer restarts playback
// from its first frame; an idle envelope is opened so those frames sound.
func (t *track) adopt() {
	if s := t.pending.Load(); s != t.sample {
		t.sample = s
		t.cursor = 0
		t.crusher.Reset()
		if t.active() && t.env.Stage() == dsp.StageIdle {
			t.env.NoteOn()
		}
	}
}

func (t *track) active() bool {
	return t.sample != nil && t.loaded.Load() && t.playing.Load()
}

// trigger restarts the track from the top of its buffer if step is gated on.
func (t *track) trigger(step int) {
	if !t.active() || !t.steps[step].Load() {
		return
	}
	t.cursor = 0
	t.env.NoteOn()
}

// render mixes one output frame of this track into out at sample index s.
func (t *track) render(out [][]float32, s, step, channels int) {
	if !t.active() {
		return
	}
	t.env.SetParams(t.adsr())
	level := t.env.Next()
	t.gain.SetTarget(t.targetGain())
	gain := float32(t.gain.Next())

	n := t.sample.Len()
	if !t.steps[step].Load() || t.cursor >= n {
		return
	}

	set := dsp.FilterSet(t.filters.Load())
	if set != 0 {
		t.bank.Update(t.filterParams())
	}
	frame := t.frame[:channels]
	for ch := range frame {
		frame[ch] = t.bank.Process(t.sample.At(ch, t.cursor), ch, set)
	}
	if t.crush.Load() {
		bits := roundParam(t.param(ParamBitDepth), DefaultBitDepth)
		factor := roundParam(t.param(ParamDownsample), DefaultDownsample)
		t.crusher.Process(frame, bits, factor)
	}
	g := level * gain
	for ch, x := range frame {
		out[ch][s] += x * g
	}

	t.cursor++
	if t.cursor >= n {
		t.env.NoteOff()
	}
}

func (t *track) publish() {
	t.cursorOut.Store(int64(t.cursor))
	t.stageOut.Store(int32(t.env.Stage()))
	t.levelOut.Store(float64(t.env.Level()))
}
