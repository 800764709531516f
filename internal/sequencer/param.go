package sequencer

import (
	"math"
	"sync/atomic"

	"github.com/satindergrewal/stepseq/internal/dsp"
)

// Param identifies a per-track numeric control.
type Param int

const (
	ParamGain Param = iota
	ParamLowpassCutoff
	ParamHighpassCutoff
	ParamBandpassCutoff
	ParamBandpassWidth
	ParamNotchCutoff
	ParamNotchWidth
	ParamPeakCutoff
	ParamPeakQ
	ParamPeakGain
	ParamBitDepth
	ParamDownsample
	ParamAttack
	ParamDecay
	ParamSustain
	ParamRelease

	numParams
)

var paramNames = [numParams]string{
	ParamGain:           "gain",
	ParamLowpassCutoff:  "lowpass_cutoff",
	ParamHighpassCutoff: "highpass_cutoff",
	ParamBandpassCutoff: "bandpass_cutoff",
	ParamBandpassWidth:  "bandpass_width",
	ParamNotchCutoff:    "notch_cutoff",
	ParamNotchWidth:     "notch_width",
	ParamPeakCutoff:     "peak_cutoff",
	ParamPeakQ:          "peak_q",
	ParamPeakGain:       "peak_gain_db",
	ParamBitDepth:       "bit_depth",
	ParamDownsample:     "downsample",
	ParamAttack:         "attack",
	ParamDecay:          "decay",
	ParamSustain:        "sustain",
	ParamRelease:        "release",
}

func (p Param) String() string {
	if p < 0 || p >= numParams {
		return "unknown"
	}
	return paramNames[p]
}

// ParamByName looks up a Param by its String form.
func ParamByName(name string) (Param, bool) {
	for p, n := range paramNames {
		if n == name {
			return Param(p), true
		}
	}
	return 0, false
}

// Params lists every Param in order.
func Params() []Param {
	ps := make([]Param, numParams)
	for i := range ps {
		ps[i] = Param(i)
	}
	return ps
}

const (
	DefaultGain       = 1.0
	DefaultBitDepth   = 8
	DefaultDownsample = 1
)

func defaultParams() [numParams]float64 {
	f := dsp.DefaultFilterParams()
	env := dsp.DefaultADSR()
	return [numParams]float64{
		ParamGain:           DefaultGain,
		ParamLowpassCutoff:  f.LowpassCutoff,
		ParamHighpassCutoff: f.HighpassCutoff,
		ParamBandpassCutoff: f.BandpassCutoff,
		ParamBandpassWidth:  f.BandpassWidth,
		ParamNotchCutoff:    f.NotchCutoff,
		ParamNotchWidth:     f.NotchWidth,
		ParamPeakCutoff:     f.PeakCutoff,
		ParamPeakQ:          f.PeakQ,
		ParamPeakGain:       f.PeakGainDB,
		ParamBitDepth:       DefaultBitDepth,
		ParamDownsample:     DefaultDownsample,
		ParamAttack:         env.Attack,
		ParamDecay:          env.Decay,
		ParamSustain:        env.Sustain,
		ParamRelease:        env.Release,
	}
}

// floatCell is a float64 that can be shared between the control side and the
// audio thread without locks.
type floatCell struct {
	bits atomic.Uint64
}

func (c *floatCell) Load() float64 {
	return math.Float64frombits(c.bits.Load())
}

func (c *floatCell) Store(v float64) {
	c.bits.Store(math.Float64bits(v))
}

// roundParam converts a stored control value to an integer setting, falling
// back to def for NaN.
func roundParam(v float64, def int) int {
	if math.IsNaN(v) {
		return def
	}
	v = min(max(v, -1e6), 1e6)
	return int(math.Round(v))
}

// finiteOr returns v, or def if v is NaN or infinite.
func finiteOr(v, def float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
