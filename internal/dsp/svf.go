// Package dsp holds the per-track signal processors: the state-variable
// filter bank, bitcrusher, ADSR envelope and a linear parameter ramp.
//
// Nothing in this package allocates or blocks after construction. All state is
// sized for MaxChannels so processors can live inside fixed arrays and be driven
// from the audio thread.
package dsp

import "math"

// MaxChannels is the number of independent channel states each processor keeps.
const MaxChannels = 8

// maxCutoffRatio keeps the pre-warped frequency below Nyquist.
const maxCutoffRatio = 0.499

// SVF is a topology-preserving-transform state-variable filter (Simper).
// A single update yields low-, band- and high-pass outputs.
type SVF struct {
	g float64 // pre-warped frequency coefficient
	k float64 // damping, 1/Q

	a1, a2, a3 float64

	ic1eq [MaxChannels]float64
	ic2eq [MaxChannels]float64
}

// SetParams recomputes the coefficients. Integrator state is kept so a
// parameter change does not reset the filter.
func (s *SVF) SetParams(sampleRate, cutoff, q float64) {
	ratio := 0.0
	if sampleRate > 0 {
		ratio = cutoff / sampleRate
	}
	if ratio < 0 {
		ratio = 0
	}
	if ratio > maxCutoffRatio {
		ratio = maxCutoffRatio
	}
	if q < 1e-6 {
		q = 1e-6
	}
	s.g = math.Tan(math.Pi * ratio)
	s.k = 1 / q
	s.a1 = 1 / (1 + s.g*(s.g+s.k))
	s.a2 = s.g * s.a1
	s.a3 = s.g * s.a2
}

// K returns the damping coefficient (1/Q).
func (s *SVF) K() float64 {
	return s.k
}

// Process runs one sample of channel ch through the filter.
func (s *SVF) Process(x float64, ch int) (lp, bp, hp float64) {
	ic1, ic2 := s.ic1eq[ch], s.ic2eq[ch]

	v3 := x - ic2
	v1 := s.a1*ic1 + s.a2*v3
	v2 := ic2 + s.a2*ic1 + s.a3*v3

	s.ic1eq[ch] = 2*v1 - ic1
	s.ic2eq[ch] = 2*v2 - ic2

	return v2, v1, x - s.k*v1 - v2
}

// Reset clears the integrators of every channel.
func (s *SVF) Reset() {
	for i := range s.ic1eq {
		s.ic1eq[i] = 0
		s.ic2eq[i] = 0
	}
}
