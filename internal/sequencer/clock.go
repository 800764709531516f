package sequencer

import "math"

const (
	NumSteps     = 16 // steps per loop
	StepsPerBeat = 4  // sixteenth-note steps
	DefaultBPM   = 120.0
)

// SamplesPerBeat is the truncated number of samples in one beat.
func SamplesPerBeat(bpm, sampleRate float64) int {
	if !validTempo(bpm) || !(sampleRate > 0) {
		return 0
	}
	return int(60 / bpm * sampleRate)
}

// SamplesPerStep is SamplesPerBeat divided by StepsPerBeat with integer
// division, i.e. floor(60/bpm*sampleRate/4). It never returns less than 1 so
// the clock always makes progress.
func SamplesPerStep(bpm, sampleRate float64) int {
	return max(SamplesPerBeat(bpm, sampleRate)/StepsPerBeat, 1)
}

func validTempo(bpm float64) bool {
	return bpm > 0 && !math.IsInf(bpm, 0)
}

// Clock turns tempo and sample rate into step boundaries.
//
// By default every step lasts exactly SamplesPerStep samples, which drifts from
// the true tempo by the truncated fraction. With fractional accumulation the
// remainder is carried so that some steps last one sample longer and the long-run
// rate matches the tempo.
type Clock struct {
	bpm        float64
	sampleRate float64
	fractional bool

	samplesPerBeat int
	samplesPerStep int
	exactStep      float64
	carry          float64
	length         int

	accumulated int
	step        int
	started     bool
}

// SetFractional enables carrying the fractional step length between steps.
func (c *Clock) SetFractional(on bool) {
	c.fractional = on
	c.carry = 0
	c.recompute()
}

// Prepare starts a new session at step 0.
func (c *Clock) Prepare(sampleRate, bpm float64) {
	c.sampleRate = sampleRate
	c.accumulated = 0
	c.step = 0
	c.started = false
	c.carry = 0
	if validTempo(bpm) {
		c.bpm = bpm
	}
	c.recompute()
}

// SetTempo changes the tempo; invalid values are ignored.
func (c *Clock) SetTempo(bpm float64) {
	if !validTempo(bpm) || bpm == c.bpm {
		return
	}
	c.bpm = bpm
	c.recompute()
}

func (c *Clock) recompute() {
	c.samplesPerBeat = SamplesPerBeat(c.bpm, c.sampleRate)
	if c.samplesPerBeat == 0 {
		c.samplesPerStep = 0
		c.exactStep = 0
		c.length = 0
		return
	}
	c.samplesPerStep = SamplesPerStep(c.bpm, c.sampleRate)
	c.exactStep = 60 / c.bpm * c.sampleRate / StepsPerBeat
	c.nextLength()
}

// nextLength sets the length of the step in progress. With fractional
// accumulation step k ends at floor(k*exactStep) samples into the session.
func (c *Clock) nextLength() {
	c.length = c.samplesPerStep
	if c.fractional && c.exactStep >= 1 {
		c.length = int(c.carry + c.exactStep)
	}
}

// drain consumes whole steps from the accumulator. It loops so a large
// accumulation crosses several steps.
func (c *Clock) drain() bool {
	if c.length <= 0 {
		return false
	}
	crossed := false
	for c.accumulated >= c.length {
		c.accumulated -= c.length
		c.step = (c.step + 1) % NumSteps
		crossed = true
		if c.fractional {
			c.carry += c.exactStep - float64(c.length)
		}
		c.nextLength()
	}
	return crossed
}

// Advance adds n elapsed samples and reports whether at least one step
// boundary was crossed, along with the resulting step.
func (c *Clock) Advance(n int) (crossed bool, step int) {
	c.accumulated += n
	return c.drain(), c.step
}

// Tick evaluates the boundary at the current sample and then counts that
// sample. The first tick of a session reports the boundary into step 0.
func (c *Clock) Tick() (crossed bool, step int) {
	if !c.started {
		c.started = true
		crossed = true
	} else {
		crossed = c.drain()
	}
	c.accumulated++
	return crossed, c.step
}

func (c *Clock) BPM() float64 { return c.bpm }
func (c *Clock) SampleRate() float64 { return c.sampleRate }
func (c *Clock) SamplesPerBeat() int { return c.samplesPerBeat }
func (c *Clock) SamplesPerStep() int { return c.samplesPerStep }
func (c *Clock) Step() int { return c.step }
func (c *Clock) Accumulated() int { return c.accumulated }
