package dsp

import "math"

// FilterMode identifies one filter of a track's bank.
type FilterMode uint8

const (
	Lowpass FilterMode = 1 << iota
	Highpass
	Bandpass
	Notch
	Peak
)

// FilterModes lists every mode.
var FilterModes = []FilterMode{Lowpass, Highpass, Bandpass, Notch, Peak}

func (m FilterMode) String() string {
	switch m {
	case Lowpass:
		return "lowpass"
	case Highpass:
		return "highpass"
	case Bandpass:
		return "bandpass"
	case Notch:
		return "notch"
	case Peak:
		return "peak"
	}
	return "unknown"
}

// FilterModeByName maps a mode name back to its FilterMode.
func FilterModeByName(name string) (FilterMode, bool) {
	for _, m := range FilterModes {
		if m.String() == name {
			return m, true
		}
	}
	return 0, false
}

// FilterSet is the set of enabled filters of one track.
type FilterSet uint8

// Has reports whether mode is enabled in the set.
func (s FilterSet) Has(mode FilterMode) bool {
	return s&FilterSet(mode) != 0
}

// SelectMode returns the filter set after mode is switched on or off.
//
// Notch excludes everything. Bandpass and Peak exclude each other. Lowpass and
// Highpass drop Bandpass, but enabling Bandpass leaves them alone. Any other
// enable drops Notch. Disabling only clears the requested mode.
func SelectMode(current FilterSet, mode FilterMode, enabled bool) FilterSet {
	if !enabled {
		return current &^ FilterSet(mode)
	}
	next := current | FilterSet(mode)
	switch mode {
	case Notch:
		return FilterSet(Notch)
	case Bandpass:
		next &^= FilterSet(Peak)
	case Peak:
		next &^= FilterSet(Bandpass)
	case Lowpass, Highpass:
		next &^= FilterSet(Bandpass)
	}
	return next &^ FilterSet(Notch)
}

// Route is the single processing branch a sample takes through the bank.
type Route uint8

const (
	RouteBypass Route = iota
	RouteNotch
	RouteBandpass
	RoutePeak
	RouteSeries // highpass then lowpass, each only if enabled
)

// Route picks the branch: notch, else bandpass, else peak, else the
// highpass/lowpass series.
func (s FilterSet) Route() Route {
	switch {
	case s.Has(Notch):
		return RouteNotch
	case s.Has(Bandpass):
		return RouteBandpass
	case s.Has(Peak):
		return RoutePeak
	case s.Has(Highpass) || s.Has(Lowpass):
		return RouteSeries
	}
	return RouteBypass
}

// Fallbacks substituted for degenerate filter parameters.
const (
	DefaultLowpassCutoff  = 2000.0
	DefaultHighpassCutoff = 1000.0
	DefaultCenter         = 1000.0
	DefaultBandwidth      = 500.0
	MinBandwidth          = 1.0
	DefaultPeakQ          = 0.7071
)

// FilterParams are the user-facing parameters of every filter in a bank.
// Frequencies are in Hz, PeakGainDB in decibels.
type FilterParams struct {
	LowpassCutoff  float64
	HighpassCutoff float64
	BandpassCutoff float64
	BandpassWidth  float64
	NotchCutoff    float64
	NotchWidth     float64
	PeakCutoff     float64
	PeakQ          float64
	PeakGainDB     float64
}

// DefaultFilterParams returns the parameters a fresh track starts with.
func DefaultFilterParams() FilterParams {
	return FilterParams{
		LowpassCutoff:  DefaultLowpassCutoff,
		HighpassCutoff: DefaultHighpassCutoff,
		BandpassCutoff: DefaultCenter,
		BandpassWidth:  DefaultBandwidth,
		NotchCutoff:    DefaultCenter,
		NotchWidth:     DefaultBandwidth,
		PeakCutoff:     DefaultCenter,
		PeakQ:          DefaultPeakQ,
		PeakGainDB:     0,
	}
}

func safeCutoff(hz, fallback float64) float64 {
	if math.IsNaN(hz) || hz <= 0 {
		return fallback
	}
	return hz
}

func safeBandwidth(hz float64) float64 {
	switch {
	case math.IsNaN(hz) || hz <= 0:
		return DefaultBandwidth
	case hz < MinBandwidth:
		return MinBandwidth
	}
	return hz
}

// BandQ derives Q from a center frequency and bandwidth after substituting
// safe values for degenerate input.
func BandQ(cutoff, bandwidth float64) float64 {
	return safeCutoff(cutoff, DefaultCenter) / safeBandwidth(bandwidth)
}

// DBToLinear converts decibels to a linear amplitude factor.
func DBToLinear(db float64) float64 {
	if math.IsNaN(db) || math.IsInf(db, 0) {
		return 1
	}
	return math.Pow(10, db/20)
}

// FilterBank is the set of filters owned by one track. Only one branch is
// evaluated per sample, chosen by the FilterSet passed to Process.
type FilterBank struct {
	sampleRate float64
	applied    FilterParams

	lowpass  SVF
	highpass SVF
	bandpass SVF
	notch    SVF
	peak     SVF
	peakGain float64
}

// Prepare resets every filter and computes all coefficients for sampleRate.
func (b *FilterBank) Prepare(sampleRate float64, p FilterParams) {
	b.sampleRate = sampleRate
	b.lowpass.Reset()
	b.highpass.Reset()
	b.bandpass.Reset()
	b.notch.Reset()
	b.peak.Reset()
	b.applied = p
	b.setLowpass()
	b.setHighpass()
	b.setBandpass()
	b.setNotch()
	b.setPeak()
}

// Update recomputes the coefficients of the filters whose parameters changed
// since the last call.
func (b *FilterBank) Update(p FilterParams) {
	if p == b.applied {
		return
	}
	old := b.applied
	b.applied = p
	if p.LowpassCutoff != old.LowpassCutoff {
		b.setLowpass()
	}
	if p.HighpassCutoff != old.HighpassCutoff {
		b.setHighpass()
	}
	if p.BandpassCutoff != old.BandpassCutoff || p.BandpassWidth != old.BandpassWidth {
		b.setBandpass()
	}
	if p.NotchCutoff != old.NotchCutoff || p.NotchWidth != old.NotchWidth {
		b.setNotch()
	}
	if p.PeakCutoff != old.PeakCutoff || p.PeakQ != old.PeakQ || p.PeakGainDB != old.PeakGainDB {
		b.setPeak()
	}
}

// Applied returns the parameters the current coefficients were built from.
func (b *FilterBank) Applied() FilterParams {
	return b.applied
}

func (b *FilterBank) setLowpass() {
	b.lowpass.SetParams(b.sampleRate, safeCutoff(b.applied.LowpassCutoff, DefaultLowpassCutoff), DefaultPeakQ)
}

func (b *FilterBank) setHighpass() {
	b.highpass.SetParams(b.sampleRate, safeCutoff(b.applied.HighpassCutoff, DefaultHighpassCutoff), DefaultPeakQ)
}

func (b *FilterBank) setBandpass() {
	c := safeCutoff(b.applied.BandpassCutoff, DefaultCenter)
	b.bandpass.SetParams(b.sampleRate, c, BandQ(c, b.applied.BandpassWidth))
}

func (b *FilterBank) setNotch() {
	c := safeCutoff(b.applied.NotchCutoff, DefaultCenter)
	b.notch.SetParams(b.sampleRate, c, BandQ(c, b.applied.NotchWidth))
}

func (b *FilterBank) setPeak() {
	q := b.applied.PeakQ
	if math.IsNaN(q) || q <= 0 {
		q = DefaultPeakQ
	}
	b.peak.SetParams(b.sampleRate, safeCutoff(b.applied.PeakCutoff, DefaultCenter), q)
	b.peakGain = DBToLinear(b.applied.PeakGainDB)
}

// Process filters one sample of channel ch through the branch selected by set.
func (b *FilterBank) Process(x float32, ch int, set FilterSet) float32 {
	in := float64(x)
	switch set.Route() {
	case RouteNotch:
		lp, _, hp := b.notch.Process(in, ch)
		return float32(lp + hp)
	case RouteBandpass:
		// k*bp has unity gain at the center frequency
		_, bp, _ := b.bandpass.Process(in, ch)
		return float32(b.bandpass.K() * bp)
	case RoutePeak:
		_, bp, _ := b.peak.Process(in, ch)
		return float32(in + (b.peakGain-1)*b.peak.K()*bp)
	case RouteSeries:
		if set.Has(Highpass) {
			_, _, in = b.highpass.Process(in, ch)
		}
		if set.Has(Lowpass) {
			in, _, _ = b.lowpass.Process(in, ch)
		}
		return float32(in)
	}
	return x
}
