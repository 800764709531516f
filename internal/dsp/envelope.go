package dsp

import "math"

// levelEpsilon absorbs accumulated rounding when a ramp reaches its end point.
const levelEpsilon = 1e-9

// Stage is the current segment of an ADSR envelope.
type Stage int

const (
	StageIdle Stage = iota
	StageAttack
	StageDecay
	StageSustain
	StageRelease
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAttack:
		return "attack"
	case StageDecay:
		return "decay"
	case StageSustain:
		return "sustain"
	case StageRelease:
		return "release"
	}
	return "unknown"
}

// ADSR holds envelope times in seconds and the sustain level in [0,1].
type ADSR struct {
	Attack  float64
	Decay   float64
	Sustain float64
	Release float64
}

// DefaultADSR is a transparent envelope: instant attack to full level, held
// until release, instant release.
func DefaultADSR() ADSR {
	return ADSR{Attack: 0, Decay: 0, Sustain: 1, Release: 0}
}

// Envelope is a linear ADSR generator producing one gain value per sample.
//
// NoteOn restarts the attack from the current level rather than from zero, so
// a retrigger during release does not jump.
type Envelope struct {
	sampleRate float64
	params     ADSR

	attackStep  float64
	decayStep   float64
	releaseStep float64

	stage Stage
	level float64
}

// SetSampleRate sets the rate used to turn seconds into per-sample steps.
func (e *Envelope) SetSampleRate(sampleRate float64) {
	e.sampleRate = sampleRate
	e.computeSteps()
}

// SetParams updates the envelope shape. The change applies from the next sample.
func (e *Envelope) SetParams(p ADSR) {
	if p == e.params {
		return
	}
	e.params = p
	e.computeSteps()
}

// Params returns the current envelope shape.
func (e *Envelope) Params() ADSR {
	return e.params
}

func (e *Envelope) sustain() float64 {
	s := e.params.Sustain
	if math.IsNaN(s) {
		return 1
	}
	return min(max(s, 0), 1)
}

// perSample returns the level change per sample for a ramp of span over
// seconds, or 0 when the ramp is instantaneous.
func (e *Envelope) perSample(span, seconds float64) float64 {
	if math.IsNaN(seconds) || seconds <= 0 || e.sampleRate <= 0 {
		return 0
	}
	return span / (seconds * e.sampleRate)
}

func (e *Envelope) computeSteps() {
	e.attackStep = e.perSample(1, e.params.Attack)
	e.decayStep = e.perSample(1-e.sustain(), e.params.Decay)
	if e.stage == StageRelease {
		e.releaseStep = e.perSample(e.level, e.params.Release)
	}
}

// NoteOn enters the attack stage from the current level.
func (e *Envelope) NoteOn() {
	e.stage = StageAttack
}

// NoteOff enters the release stage, ramping from the current level to zero.
func (e *Envelope) NoteOff() {
	if e.stage == StageIdle || e.stage == StageRelease {
		return
	}
	e.stage = StageRelease
	e.releaseStep = e.perSample(e.level, e.params.Release)
}

// Next advances the envelope by one sample and returns the new level.
func (e *Envelope) Next() float32 {
	switch e.stage {
	case StageAttack:
		if e.attackStep == 0 {
			e.level = 1
		} else {
			e.level += e.attackStep
		}
		if e.level >= 1-levelEpsilon {
			e.level = 1
			e.stage = StageDecay
			if e.decayStep == 0 {
				e.level = e.sustain()
				e.stage = StageSustain
			}
		}
	case StageDecay:
		s := e.sustain()
		e.level -= e.decayStep
		if e.decayStep == 0 || e.level <= s+levelEpsilon {
			e.level = s
			e.stage = StageSustain
		}
	case StageSustain:
		e.level = e.sustain()
	case StageRelease:
		if e.releaseStep == 0 {
			e.level = 0
		} else {
			e.level -= e.releaseStep
		}
		if e.level <= levelEpsilon {
			e.level = 0
			e.stage = StageIdle
		}
	}
	return float32(e.level)
}

// Level returns the most recent output without advancing.
func (e *Envelope) Level() float32 {
	return float32(e.level)
}

// Stage returns the current segment.
func (e *Envelope) Stage() Stage {
	return e.stage
}

// Reset returns the envelope to idle at zero.
func (e *Envelope) Reset() {
	e.stage = StageIdle
	e.level = 0
	e.releaseStep = 0
}
