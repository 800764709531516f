package dsp

// Ramp moves a value linearly toward a target over a fixed number of samples.
// With a length of zero or less it follows the target immediately.
type Ramp struct {
	length    int
	current   float64
	target    float64
	step      float64
	remaining int
}

// SetLength sets how many samples a full move to a new target takes.
func (r *Ramp) SetLength(samples int) {
	r.length = samples
}

// SetTarget starts a new ramp if v differs from the current target.
func (r *Ramp) SetTarget(v float64) {
	if v == r.target {
		return
	}
	r.target = v
	if r.length <= 0 {
		r.current = v
		r.remaining = 0
		return
	}
	r.remaining = r.length
	r.step = (v - r.current) / float64(r.length)
}

// Next advances one sample and returns the smoothed value.
func (r *Ramp) Next() float64 {
	if r.remaining > 0 {
		r.remaining--
		r.current += r.step
		if r.remaining == 0 {
			r.current = r.target
		}
	}
	return r.current
}

// Snap jumps to v without ramping.
func (r *Ramp) Snap(v float64) {
	r.current = v
	r.target = v
	r.remaining = 0
}

// Value returns the current smoothed value.
func (r *Ramp) Value() float64 {
	return r.current
}
