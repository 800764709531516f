package sequencer

import (
	"github.com/satindergrewal/stepseq/internal/dsp"
)

// Control-side accessors. Out-of-range track or step indices make setters a
// no-op and getters return the zero value.

func (e *Engine) track(i int) *track {
	if i < 0 || i >= NumTracks {
		return nil
	}
	return &e.tracks[i]
}

func validStep(step int) bool {
	return step >= 0 && step < NumSteps
}

// SetBPM changes the tempo. Non-positive or infinite values are ignored.
func (e *Engine) SetBPM(bpm float64) {
	if validTempo(bpm) {
		e.bpm.Store(bpm)
	}
}

func (e *Engine) BPM() float64 { return e.bpm.Load() }

// SampleRate is the rate of the current session, or 0 before Prepare.
func (e *Engine) SampleRate() float64 { return e.rate.Load() }

// CurrentStep is the step the audio thread was on at the end of its last block.
func (e *Engine) CurrentStep() int { return int(e.step.Load()) }

// SamplesPerStep is the step length for the current tempo and sample rate.
func (e *Engine) SamplesPerStep() int {
	if e.SampleRate() <= 0 {
		return 0
	}
	return SamplesPerStep(e.BPM(), e.SampleRate())
}

// Load publishes a decoded buffer for track i. A nil sample records a failed
// load: the track is marked unloaded and stops sounding, but the previous
// buffer is kept in place.
func (e *Engine) Load(i int, s *Sample) {
	t := e.track(i)
	if t == nil {
		return
	}
	if s == nil {
		t.loaded.Store(false)
		return
	}
	t.pending.Store(s)
	t.loaded.Store(true)
}

func (e *Engine) IsLoaded(i int) bool {
	t := e.track(i)
	return t != nil && t.loaded.Load()
}

// Sample returns the most recently published buffer for track i.
func (e *Engine) Sample(i int) *Sample {
	t := e.track(i)
	if t == nil {
		return nil
	}
	return t.pending.Load()
}

func (e *Engine) SetPlaying(i int, on bool) {
	if t := e.track(i); t != nil {
		t.playing.Store(on)
	}
}

func (e *Engine) IsPlaying(i int) bool {
	t := e.track(i)
	return t != nil && t.playing.Load()
}

// TogglePlaying flips the play flag and returns the new value.
func (e *Engine) TogglePlaying(i int) bool {
	t := e.track(i)
	if t == nil {
		return false
	}
	return toggle(&t.playing)
}

func (e *Engine) SetStep(i, step int, on bool) {
	if t := e.track(i); t != nil && validStep(step) {
		t.steps[step].Store(on)
	}
}

func (e *Engine) Step(i, step int) bool {
	t := e.track(i)
	return t != nil && validStep(step) && t.steps[step].Load()
}

// ToggleStep flips one step and returns the new value.
func (e *Engine) ToggleStep(i, step int) bool {
	t := e.track(i)
	if t == nil || !validStep(step) {
		return false
	}
	return toggle(&t.steps[step])
}

// SetPattern replaces all sixteen steps of track i.
func (e *Engine) SetPattern(i int, pattern [NumSteps]bool) {
	t := e.track(i)
	if t == nil {
		return
	}
	for s, on := range pattern {
		t.steps[s].Store(on)
	}
}

func (e *Engine) Pattern(i int) [NumSteps]bool {
	var p [NumSteps]bool
	if t := e.track(i); t != nil {
		for s := range p {
			p[s] = t.steps[s].Load()
		}
	}
	return p
}

func toggle(b interface {
	Load() bool
	CompareAndSwap(old, new bool) bool
}) bool {
	for {
		old := b.Load()
		if b.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// SetParam stores v as given; out-of-range values are sanitized when the
// audio thread uses them, so the value reads back unchanged.
func (e *Engine) SetParam(i int, p Param, v float64) {
	if t := e.track(i); t != nil && p >= 0 && p < numParams {
		t.params[p].Store(v)
	}
}

func (e *Engine) ParamValue(i int, p Param) float64 {
	t := e.track(i)
	if t == nil || p < 0 || p >= numParams {
		return 0
	}
	return t.param(p)
}

func (e *Engine) SetGain(i int, g float64) { e.SetParam(i, ParamGain, g) }
func (e *Engine) Gain(i int) float64 { return e.ParamValue(i, ParamGain) }

func (e *Engine) SetLowpassCutoff(i int, hz float64) { e.SetParam(i, ParamLowpassCutoff, hz) }
func (e *Engine) LowpassCutoff(i int) float64 { return e.ParamValue(i, ParamLowpassCutoff) }
func (e *Engine) SetHighpassCutoff(i int, hz float64) { e.SetParam(i, ParamHighpassCutoff, hz) }
func (e *Engine) HighpassCutoff(i int) float64 { return e.ParamValue(i, ParamHighpassCutoff) }
func (e *Engine) SetBandpassCutoff(i int, hz float64) { e.SetParam(i, ParamBandpassCutoff, hz) }
func (e *Engine) BandpassCutoff(i int) float64 { return e.ParamValue(i, ParamBandpassCutoff) }
func (e *Engine) SetBandpassWidth(i int, hz float64) { e.SetParam(i, ParamBandpassWidth, hz) }
func (e *Engine) BandpassWidth(i int) float64 { return e.ParamValue(i, ParamBandpassWidth) }
func (e *Engine) SetNotchCutoff(i int, hz float64) { e.SetParam(i, ParamNotchCutoff, hz) }
func (e *Engine) NotchCutoff(i int) float64 { return e.ParamValue(i, ParamNotchCutoff) }
func (e *Engine) SetNotchWidth(i int, hz float64) { e.SetParam(i, ParamNotchWidth, hz) }
func (e *Engine) NotchWidth(i int) float64 { return e.ParamValue(i, ParamNotchWidth) }
func (e *Engine) SetPeakCutoff(i int, hz float64) { e.SetParam(i, ParamPeakCutoff, hz) }
func (e *Engine) PeakCutoff(i int) float64 { return e.ParamValue(i, ParamPeakCutoff) }
func (e *Engine) SetPeakGain(i int, db float64) { e.SetParam(i, ParamPeakGain, db) }
func (e *Engine) PeakGain(i int) float64 { return e.ParamValue(i, ParamPeakGain) }

// SetFilterEnabled turns one filter mode on or off, applying the mode
// exclusion rules of dsp.SelectMode atomically.
func (e *Engine) SetFilterEnabled(i int, mode dsp.FilterMode, on bool) {
	t := e.track(i)
	if t == nil {
		return
	}
	for {
		old := t.filters.Load()
		next := uint32(dsp.SelectMode(dsp.FilterSet(old), mode, on))
		if old == next || t.filters.CompareAndSwap(old, next) {
			return
		}
	}
}

func (e *Engine) FilterEnabled(i int, mode dsp.FilterMode) bool {
	return e.ActiveFilters(i).Has(mode)
}

// ActiveFilters returns the enabled filter modes of track i.
func (e *Engine) ActiveFilters(i int) dsp.FilterSet {
	t := e.track(i)
	if t == nil {
		return 0
	}
	return dsp.FilterSet(t.filters.Load())
}

func (e *Engine) SetLowpassEnabled(i int, on bool) { e.SetFilterEnabled(i, dsp.Lowpass, on) }
func (e *Engine) SetHighpassEnabled(i int, on bool) { e.SetFilterEnabled(i, dsp.Highpass, on) }
func (e *Engine) SetBandpassEnabled(i int, on bool) { e.SetFilterEnabled(i, dsp.Bandpass, on) }
func (e *Engine) SetNotchEnabled(i int, on bool) { e.SetFilterEnabled(i, dsp.Notch, on) }
func (e *Engine) SetPeakEnabled(i int, on bool) { e.SetFilterEnabled(i, dsp.Peak, on) }

func (e *Engine) LowpassEnabled(i int) bool { return e.FilterEnabled(i, dsp.Lowpass) }
func (e *Engine) HighpassEnabled(i int) bool { return e.FilterEnabled(i, dsp.Highpass) }
func (e *Engine) BandpassEnabled(i int) bool { return e.FilterEnabled(i, dsp.Bandpass) }
func (e *Engine) NotchEnabled(i int) bool { return e.FilterEnabled(i, dsp.Notch) }
func (e *Engine) PeakEnabled(i int) bool { return e.FilterEnabled(i, dsp.Peak) }

func (e *Engine) SetBitcrusherEnabled(i int, on bool) {
	if t := e.track(i); t != nil {
		t.crush.Store(on)
	}
}

func (e *Engine) BitcrusherEnabled(i int) bool {
	t := e.track(i)
	return t != nil && t.crush.Load()
}

// SetBitDepth and SetDownsample store the raw value; the crusher clamps it to
// [dsp.MinBitDepth, dsp.MaxBitDepth] and [dsp.MinDownsample, dsp.MaxDownsample].
func (e *Engine) SetBitDepth(i, bits int) { e.SetParam(i, ParamBitDepth, float64(bits)) }
func (e *Engine) BitDepth(i int) int { return int(e.ParamValue(i, ParamBitDepth)) }
func (e *Engine) SetDownsample(i, factor int) { e.SetParam(i, ParamDownsample, float64(factor)) }
func (e *Engine) Downsample(i int) int { return int(e.ParamValue(i, ParamDownsample)) }

// SetEnvelope sets all four ADSR controls of track i.
func (e *Engine) SetEnvelope(i int, env dsp.ADSR) {
	e.SetParam(i, ParamAttack, env.Attack)
	e.SetParam(i, ParamDecay, env.Decay)
	e.SetParam(i, ParamSustain, env.Sustain)
	e.SetParam(i, ParamRelease, env.Release)
}

func (e *Engine) Envelope(i int) dsp.ADSR {
	return dsp.ADSR{
		Attack:  e.ParamValue(i, ParamAttack),
		Decay:   e.ParamValue(i, ParamDecay),
		Sustain: e.ParamValue(i, ParamSustain),
		Release: e.ParamValue(i, ParamRelease),
	}
}

// ReadCursor is the playback position of track i as of the end of the last
// block. It never exceeds the loaded buffer length.
func (e *Engine) ReadCursor(i int) int {
	t := e.track(i)
	if t == nil {
		return 0
	}
	return int(t.cursorOut.Load())
}

// TrackStatus is a point-in-time view of one track.
type TrackStatus struct {
	Index      int                `json:"index"`
	Sample     string             `json:"sample"`
	Loaded     bool               `json:"loaded"`
	Playing    bool               `json:"playing"`
	Steps      [NumSteps]bool     `json:"steps"`
	Filters    []string           `json:"filters"`
	Bitcrusher bool               `json:"bitcrusher"`
	Params     map[string]float64 `json:"params"`
	Cursor     int                `json:"cursor"`
	Length     int                `json:"length"`
	Envelope   string             `json:"envelope"`
	Level      float64            `json:"level"`
}

// Status is a point-in-time view of the whole engine.
type Status struct {
	BPM            float64       `json:"bpm"`
	Step           int           `json:"step"`
	SampleRate     float64       `json:"sample_rate"`
	SamplesPerStep int           `json:"samples_per_step"`
	Tracks         []TrackStatus `json:"tracks"`
}

// TrackStatus reports track i; ok is false for an out-of-range index.
func (e *Engine) TrackStatus(i int) (ts TrackStatus, ok bool) {
	t := e.track(i)
	if t == nil {
		return TrackStatus{}, false
	}
	ts = TrackStatus{
		Index:      i,
		Loaded:     t.loaded.Load(),
		Playing:    t.playing.Load(),
		Steps:      e.Pattern(i),
		Filters:    []string{},
		Bitcrusher: t.crush.Load(),
		Params:     make(map[string]float64, numParams),
		Cursor:     int(t.cursorOut.Load()),
		Envelope:   dsp.Stage(t.stageOut.Load()).String(),
		Level:      t.levelOut.Load(),
	}
	if s := t.pending.Load(); s != nil {
		ts.Sample = s.Name
		ts.Length = s.Len()
	}
	set := dsp.FilterSet(t.filters.Load())
	for _, m := range dsp.FilterModes {
		if set.Has(m) {
			ts.Filters = append(ts.Filters, m.String())
		}
	}
	for p := Param(0); p < numParams; p++ {
		ts.Params[p.String()] = t.param(p)
	}
	return ts, true
}

// Status reports the engine and every track.
func (e *Engine) Status() Status {
	st := Status{
		BPM:            e.BPM(),
		Step:           e.CurrentStep(),
		SampleRate:     e.SampleRate(),
		SamplesPerStep: e.SamplesPerStep(),
		Tracks:         make([]TrackStatus, 0, NumTracks),
	}
	for i := 0; i < NumTracks; i++ {
		ts, _ := e.TrackStatus(i)
		st.Tracks = append(st.Tracks, ts)
	}
	return st
}
