package midictl

import (
	"math"
	"testing"

	"gitlab.com/gomidi/midi/v2"

	"github.com/satindergrewal/stepseq/internal/sequencer"
)

// --- ControlValue ---

func TestControlValue(t *testing.T) {
	tests := []struct {
		name  string
		cc    uint8
		val   uint8
		param sequencer.Param
		want  float64
	}{
		{"gain max", CCGain, 127, sequencer.ParamGain, 1},
		{"gain off", CCGain, 0, sequencer.ParamGain, 0},
		{"lowpass bottom", CCLowpassCutoff, 0, sequencer.ParamLowpassCutoff, 20},
		{"lowpass top", CCLowpassCutoff, 127, sequencer.ParamLowpassCutoff, 20000},
		{"highpass bottom", CCHighpassCutoff, 0, sequencer.ParamHighpassCutoff, 20},
		{"bandpass width top", CCBandpassWidth, 127, sequencer.ParamBandpassWidth, 10000},
		{"peak gain cut", CCPeakGain, 0, sequencer.ParamPeakGain, -24},
		{"peak gain boost", CCPeakGain, 127, sequencer.ParamPeakGain, 24},
		{"bit depth min", CCBitDepth, 0, sequencer.ParamBitDepth, 1},
		{"bit depth max", CCBitDepth, 127, sequencer.ParamBitDepth, 24},
		{"downsample max", CCDownsample, 127, sequencer.ParamDownsample, 50},
		{"attack max", CCAttack, 127, sequencer.ParamAttack, 2},
		{"sustain full", CCSustain, 127, sequencer.ParamSustain, 1},
		{"release zero", CCRelease, 0, sequencer.ParamRelease, 0},
		{"decay max", CCDecay, 127, sequencer.ParamDecay, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, v, ok := ControlValue(tt.cc, tt.val)
			if !ok {
				t.Fatalf("ControlValue(%d, %d) not mapped", tt.cc, tt.val)
			}
			if p != tt.param {
				t.Errorf("param = %v, want %v", p, tt.param)
			}
			if math.Abs(v-tt.want) > 1e-9*math.Max(1, math.Abs(tt.want)) {
				t.Errorf("value = %v, want %v", v, tt.want)
			}
		})
	}
}

func TestControlValueUnmapped(t *testing.T) {
	if _, _, ok := ControlValue(1, 64); ok {
		t.Error("CC 1 should not be mapped")
	}
}

func TestCutoffScaleMonotonic(t *testing.T) {
	prev := 0.0
	for v := 0; v <= 127; v++ {
		_, hz, _ := ControlValue(CCLowpassCutoff, uint8(v))
		if hz <= prev {
			t.Fatalf("cutoff at %d = %v, not above %v", v, hz, prev)
		}
		prev = hz
	}
}

// --- Mapper ---

func TestHandleControlChange(t *testing.T) {
	e := sequencer.New(sequencer.Options{})
	m := NewMapper(e)

	if !m.Handle(midi.ControlChange(2, CCGain, 0)) {
		t.Fatal("gain CC not applied")
	}
	if g := e.Gain(2); g != 0 {
		t.Errorf("Gain(2) = %v, want 0", g)
	}
	if g := e.Gain(0); g != sequencer.DefaultGain {
		t.Errorf("Gain(0) = %v, want untouched %v", g, sequencer.DefaultGain)
	}

	m.Handle(midi.ControlChange(1, CCBitDepth, 127))
	if b := e.BitDepth(1); b != 24 {
		t.Errorf("BitDepth(1) = %d, want 24", b)
	}
}

func TestHandleIgnoresOutOfRangeChannel(t *testing.T) {
	e := sequencer.New(sequencer.Options{})
	m := NewMapper(e)

	if m.Handle(midi.ControlChange(sequencer.NumTracks, CCGain, 0)) {
		t.Error("CC on channel beyond the last track was applied")
	}
	if m.Handle(midi.NoteOn(9, FirstStepKey, 100)) {
		t.Error("note on channel beyond the last track was applied")
	}
	if m.Handle(midi.ControlChange(0, 1, 10)) {
		t.Error("unmapped CC was applied")
	}
}

func TestHandleNotes(t *testing.T) {
	e := sequencer.New(sequencer.Options{})
	m := NewMapper(e)

	if !m.Handle(midi.NoteOn(3, FirstStepKey+4, 100)) {
		t.Fatal("step key not applied")
	}
	if !e.Step(3, 4) {
		t.Error("Step(3, 4) = false, want true after toggle")
	}
	m.Handle(midi.NoteOn(3, FirstStepKey+4, 100))
	if e.Step(3, 4) {
		t.Error("Step(3, 4) = true, want false after second toggle")
	}

	m.Handle(midi.NoteOn(0, FirstStepKey+15, 1))
	if !e.Step(0, 15) {
		t.Error("last step key did not toggle step 15")
	}

	m.Handle(midi.NoteOn(5, PlayKey, 100))
	if !e.IsPlaying(5) {
		t.Error("IsPlaying(5) = false, want true after play key")
	}
}

func TestHandleIgnoresNoteOffAndOtherKeys(t *testing.T) {
	e := sequencer.New(sequencer.Options{})
	m := NewMapper(e)

	if m.Handle(midi.NoteOn(0, FirstStepKey, 0)) {
		t.Error("zero-velocity note on should count as note off")
	}
	if m.Handle(midi.NoteOff(0, FirstStepKey)) {
		t.Error("note off was applied")
	}
	if m.Handle(midi.NoteOn(0, FirstStepKey+sequencer.NumSteps, 100)) {
		t.Error("key past the step range was applied")
	}
	if e.Step(0, 0) {
		t.Error("Step(0, 0) changed")
	}
}
