package dsp

import (
	"math"
	"testing"
)

const testRate = 48000.0

func set(modes ...FilterMode) FilterSet {
	var s FilterSet
	for _, m := range modes {
		s |= FilterSet(m)
	}
	return s
}

// --- SelectMode ---

func TestSelectModeTable(t *testing.T) {
	all := set(Lowpass, Highpass, Bandpass, Peak)
	tests := []struct {
		name    string
		current FilterSet
		mode    FilterMode
		enabled bool
		want    FilterSet
	}{
		{"notch clears everything", all, Notch, true, set(Notch)},
		{"bandpass clears peak keeps lp/hp", set(Lowpass, Highpass, Peak), Bandpass, true, set(Lowpass, Highpass, Bandpass)},
		{"peak clears bandpass", set(Bandpass), Peak, true, set(Peak)},
		{"lowpass clears bandpass", set(Bandpass), Lowpass, true, set(Lowpass)},
		{"highpass clears bandpass", set(Bandpass, Lowpass), Highpass, true, set(Lowpass, Highpass)},
		{"lowpass and highpass coexist", set(Highpass), Lowpass, true, set(Lowpass, Highpass)},
		{"lowpass keeps peak", set(Peak), Lowpass, true, set(Peak, Lowpass)},
		{"any enable clears notch", set(Notch), Highpass, true, set(Highpass)},
		{"disable clears only that mode", set(Lowpass, Highpass), Lowpass, false, set(Highpass)},
		{"disable notch", set(Notch), Notch, false, 0},
		{"disable absent mode", set(Peak), Bandpass, false, set(Peak)},
	}
	for _, tt := range tests {
		got := SelectMode(tt.current, tt.mode, tt.enabled)
		if got != tt.want {
			t.Errorf("%s: SelectMode(%05b, %v, %v) = %05b, want %05b", tt.name, tt.current, tt.mode, tt.enabled, got, tt.want)
		}
	}
}

func TestSelectModeLowpassTwice(t *testing.T) {
	s := SelectMode(0, Lowpass, true)
	s = SelectMode(s, Lowpass, true)
	if s.Has(Bandpass) || s.Has(Highpass) {
		t.Errorf("after enabling lowpass twice: %05b, want only lowpass", s)
	}
	if !s.Has(Lowpass) {
		t.Error("lowpass should be enabled")
	}
}

func TestSelectModeBandpassThenPeak(t *testing.T) {
	s := SelectMode(0, Bandpass, true)
	s = SelectMode(s, Peak, true)
	if s.Has(Bandpass) {
		t.Error("bandpass should be disabled after enabling peak")
	}
}

func TestRoutePrecedence(t *testing.T) {
	tests := []struct {
		set  FilterSet
		want Route
	}{
		{0, RouteBypass},
		{set(Notch, Bandpass, Peak, Lowpass), RouteNotch},
		{set(Bandpass, Peak, Lowpass), RouteBandpass},
		{set(Peak, Lowpass, Highpass), RoutePeak},
		{set(Lowpass), RouteSeries},
		{set(Highpass), RouteSeries},
		{set(Lowpass, Highpass), RouteSeries},
	}
	for _, tt := range tests {
		if got := tt.set.Route(); got != tt.want {
			t.Errorf("Route(%05b) = %v, want %v", tt.set, got, tt.want)
		}
	}
}

func TestFilterModeByName(t *testing.T) {
	for _, m := range FilterModes {
		got, ok := FilterModeByName(m.String())
		if !ok || got != m {
			t.Errorf("FilterModeByName(%q) = %v, %v", m.String(), got, ok)
		}
	}
	if _, ok := FilterModeByName("comb"); ok {
		t.Error("unknown mode name should not resolve")
	}
}

// --- FilterBank ---

func newBank(p FilterParams) *FilterBank {
	b := &FilterBank{}
	b.Prepare(testRate, p)
	return b
}

func sine(freq float64, i int) float32 {
	return float32(math.Sin(2 * math.Pi * freq * float64(i) / testRate))
}

// steadyPeak runs n samples of a sine through the bank and returns the peak
// magnitude over the final tail samples.
func steadyPeak(b *FilterBank, s FilterSet, freq float64, n, tail int) float64 {
	peak := 0.0
	for i := 0; i < n; i++ {
		y := b.Process(sine(freq, i), 0, s)
		if i >= n-tail {
			peak = math.Max(peak, math.Abs(float64(y)))
		}
	}
	return peak
}

func TestBankBypassIsIdentity(t *testing.T) {
	b := newBank(DefaultFilterParams())
	for _, x := range []float32{0, 1, -1, 0.25, -0.7} {
		if got := b.Process(x, 0, 0); got != x {
			t.Errorf("bypass Process(%v) = %v", x, got)
		}
	}
}

func TestBankLowpass(t *testing.T) {
	b := newBank(DefaultFilterParams())
	var y float32
	for i := 0; i < 4000; i++ {
		y = b.Process(1, 0, set(Lowpass))
	}
	if math.Abs(float64(y)-1) > 1e-3 {
		t.Errorf("lowpass DC response = %v, want ~1", y)
	}

	b = newBank(DefaultFilterParams())
	peak := 0.0
	for i := 0; i < 2000; i++ {
		x := float32(1)
		if i%2 == 1 {
			x = -1
		}
		y := b.Process(x, 0, set(Lowpass))
		if i > 1800 {
			peak = math.Max(peak, math.Abs(float64(y)))
		}
	}
	if peak > 0.05 {
		t.Errorf("lowpass Nyquist response = %v, want ~0", peak)
	}
}

func TestBankHighpassBlocksDC(t *testing.T) {
	b := newBank(DefaultFilterParams())
	var y float32
	for i := 0; i < 4000; i++ {
		y = b.Process(1, 0, set(Highpass))
	}
	if math.Abs(float64(y)) > 1e-3 {
		t.Errorf("highpass DC response = %v, want ~0", y)
	}
}

func TestBankNotchRejectsCenter(t *testing.T) {
	b := newBank(DefaultFilterParams())
	if peak := steadyPeak(b, set(Notch), DefaultCenter, 9600, 480); peak > 0.05 {
		t.Errorf("notch at center peak = %v, want ~0", peak)
	}
}

func TestBankBandpassUnityAtCenter(t *testing.T) {
	b := newBank(DefaultFilterParams())
	peak := steadyPeak(b, set(Bandpass), DefaultCenter, 9600, 480)
	if peak < 0.95 || peak > 1.05 {
		t.Errorf("bandpass at center peak = %v, want ~1", peak)
	}
}

func TestBankPeakGain(t *testing.T) {
	p := DefaultFilterParams()
	b := newBank(p)
	for i := 0; i < 100; i++ {
		x := sine(440, i)
		if got := b.Process(x, 0, set(Peak)); got != x {
			t.Fatalf("0 dB peak should be transparent: sample %d = %v, want %v", i, got, x)
		}
	}

	p.PeakGainDB = 20 * math.Log10(2)
	b = newBank(p)
	peak := steadyPeak(b, set(Peak), DefaultCenter, 9600, 480)
	if peak < 1.9 || peak > 2.1 {
		t.Errorf("+6 dB peak at center = %v, want ~2", peak)
	}
}

func TestBankDegenerateParams(t *testing.T) {
	p := FilterParams{
		LowpassCutoff:  0,
		HighpassCutoff: -5,
		BandpassCutoff: math.NaN(),
		BandpassWidth:  0,
		NotchCutoff:    1e9,
		NotchWidth:     0.001,
		PeakCutoff:     -1,
		PeakQ:          0,
		PeakGainDB:     math.Inf(1),
	}
	b := newBank(p)
	for _, s := range []FilterSet{set(Lowpass, Highpass), set(Bandpass), set(Notch), set(Peak)} {
		for i := 0; i < 1000; i++ {
			y := b.Process(sine(300, i), 0, s)
			if math.IsNaN(float64(y)) || math.IsInf(float64(y), 0) {
				t.Fatalf("set %05b produced %v at sample %d", s, y, i)
			}
		}
	}
}

func TestBankUpdateOnlyOnChange(t *testing.T) {
	p := DefaultFilterParams()
	b := newBank(p)
	p.LowpassCutoff = 500
	b.Update(p)
	if got := b.Applied().LowpassCutoff; got != 500 {
		t.Errorf("Applied().LowpassCutoff = %v, want 500", got)
	}
}

func TestBandQ(t *testing.T) {
	tests := []struct {
		cutoff, width, want float64
	}{
		{1000, 500, 2},
		{1000, 0, 2},
		{1000, -3, 2},
		{1000, 0.5, 1000},
		{0, 500, 2},
		{4000, 1000, 4},
	}
	for _, tt := range tests {
		if got := BandQ(tt.cutoff, tt.width); got != tt.want {
			t.Errorf("BandQ(%v, %v) = %v, want %v", tt.cutoff, tt.width, got, tt.want)
		}
	}
}

// --- Bitcrusher ---

func TestBitcrusherOneBit(t *testing.T) {
	var b Bitcrusher
	frame := make([]float32, 1)
	for i := -20; i <= 20; i++ {
		frame[0] = float32(i) / 20
		b.Process(frame, 1, 1)
		if v := frame[0]; v != -1 && v != 0 && v != 1 {
			t.Errorf("1-bit crush of %v = %v, want -1, 0 or 1", float32(i)/20, v)
		}
	}
}

func TestBitcrusherNoHoldCrushesEverySample(t *testing.T) {
	var b Bitcrusher
	frame := make([]float32, 1)
	for i := 0; i < 64; i++ {
		x := sine(1000, i)
		frame[0] = x
		b.Process(frame, 4, 1)
		if want := Quantize(x, 4); frame[0] != want {
			t.Errorf("sample %d: got %v, want %v", i, frame[0], want)
		}
		if b.HoldCounter() != 0 {
			t.Errorf("hold counter = %d, want 0 with factor 1", b.HoldCounter())
		}
	}
}

func TestBitcrusherHoldsRawInput(t *testing.T) {
	var b Bitcrusher
	in := []float32{0.3, 0.9, -0.4, 0.1, 0.6, 0.2, 0.2, 0.2}
	want := []float32{Quantize(0.3, 2), 0.3, 0.3, 0.3, Quantize(0.6, 2), 0.6, 0.6, 0.6}
	frame := make([]float32, 1)
	for i, x := range in {
		frame[0] = x
		b.Process(frame, 2, 4)
		if frame[0] != want[i] {
			t.Errorf("sample %d: got %v, want %v", i, frame[0], want[i])
		}
	}
}

func TestBitcrusherStereoSharesCounter(t *testing.T) {
	var b Bitcrusher
	frame := []float32{0.5, -0.5}
	b.Process(frame, 24, 2)
	if b.HoldCounter() != 1 {
		t.Errorf("hold counter after one stereo frame = %d, want 1", b.HoldCounter())
	}
	frame[0], frame[1] = 0.1, 0.1
	b.Process(frame, 24, 2)
	if frame[0] != 0.5 || frame[1] != -0.5 {
		t.Errorf("held frame = %v, want [0.5 -0.5]", frame)
	}
}

func TestBitcrusherClamps(t *testing.T) {
	if ClampBitDepth(0) != 1 || ClampBitDepth(99) != 24 || ClampBitDepth(8) != 8 {
		t.Error("ClampBitDepth bounds wrong")
	}
	if ClampDownsample(0) != 1 || ClampDownsample(500) != 50 || ClampDownsample(7) != 7 {
		t.Error("ClampDownsample bounds wrong")
	}
	if Quantize(0.4, 0) != Quantize(0.4, 1) {
		t.Error("bit depth 0 should behave as 1")
	}
	if Quantize(0.4, 64) != Quantize(0.4, 24) {
		t.Error("bit depth 64 should behave as 24")
	}
}

func TestBitcrusherShrinkFactor(t *testing.T) {
	var b Bitcrusher
	frame := make([]float32, 1)
	for i := 0; i < 7; i++ {
		b.Process(frame, 8, 10)
	}
	frame[0] = 0.5
	b.Process(frame, 8, 3)
	if b.HoldCounter() >= 3 {
		t.Errorf("hold counter %d out of range for factor 3", b.HoldCounter())
	}
}

// --- Envelope ---

func newEnv(p ADSR) *Envelope {
	e := &Envelope{}
	e.SetSampleRate(1000)
	e.SetParams(p)
	return e
}

func TestEnvelopeDefaultIsTransparent(t *testing.T) {
	e := newEnv(DefaultADSR())
	if got := e.Next(); got != 0 {
		t.Errorf("idle envelope = %v, want 0", got)
	}
	e.NoteOn()
	for i := 0; i < 5; i++ {
		if got := e.Next(); got != 1 {
			t.Errorf("sample %d = %v, want 1", i, got)
		}
	}
	e.NoteOff()
	if got := e.Next(); got != 0 {
		t.Errorf("after instant release = %v, want 0", got)
	}
	if e.Stage() != StageIdle {
		t.Errorf("stage = %v, want idle", e.Stage())
	}
}

func TestEnvelopeStages(t *testing.T) {
	e := newEnv(ADSR{Attack: 0.01, Decay: 0.01, Sustain: 0.5, Release: 0.01})
	e.NoteOn()

	prev := float32(0)
	for i := 0; i < 10; i++ {
		v := e.Next()
		if v <= prev {
			t.Fatalf("attack not rising at %d: %v <= %v", i, v, prev)
		}
		prev = v
	}
	if prev != 1 {
		t.Errorf("end of attack = %v, want 1", prev)
	}
	if e.Stage() != StageDecay {
		t.Errorf("stage after attack = %v, want decay", e.Stage())
	}

	for i := 0; i < 10; i++ {
		e.Next()
	}
	if e.Stage() != StageSustain {
		t.Errorf("stage after decay = %v, want sustain", e.Stage())
	}
	if got := e.Next(); math.Abs(float64(got)-0.5) > 1e-6 {
		t.Errorf("sustain level = %v, want 0.5", got)
	}

	e.NoteOff()
	for i := 0; i < 10; i++ {
		e.Next()
	}
	if e.Stage() != StageIdle || e.Level() != 0 {
		t.Errorf("after release: stage %v level %v, want idle at 0", e.Stage(), e.Level())
	}
}

func TestEnvelopeRetriggerIsLevelContinuous(t *testing.T) {
	e := newEnv(ADSR{Attack: 0.1, Decay: 0, Sustain: 1, Release: 0.1})
	e.NoteOn()
	for i := 0; i < 200; i++ {
		e.Next()
	}
	e.NoteOff()
	for i := 0; i < 50; i++ {
		e.Next()
	}
	before := e.Level()
	if before <= 0 || before >= 1 {
		t.Fatalf("expected mid-release level, got %v", before)
	}
	e.NoteOn()
	after := e.Next()
	if after < before {
		t.Errorf("retrigger dropped level: %v -> %v", before, after)
	}
	if after-before > 0.02 {
		t.Errorf("retrigger jumped: %v -> %v", before, after)
	}
}

func TestEnvelopeNoteOffWhileIdle(t *testing.T) {
	e := newEnv(ADSR{Release: 1})
	e.NoteOff()
	if e.Stage() != StageIdle {
		t.Errorf("NoteOff on idle envelope moved to %v", e.Stage())
	}
}

// --- Ramp ---

func TestRampImmediateWithoutLength(t *testing.T) {
	var r Ramp
	r.SetTarget(0.8)
	if got := r.Next(); got != 0.8 {
		t.Errorf("Next() = %v, want 0.8", got)
	}
}

func TestRampLinear(t *testing.T) {
	var r Ramp
	r.Snap(0)
	r.SetLength(4)
	r.SetTarget(1)
	want := []float64{0.25, 0.5, 0.75, 1, 1}
	for i, w := range want {
		if got := r.Next(); math.Abs(got-w) > 1e-12 {
			t.Errorf("step %d = %v, want %v", i, got, w)
		}
	}
}
