package audio

// Smoothstep returns the smoothstep interpolation for t in [0,1].
// Formula: 3t^2 - 2t^3.
func Smoothstep(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	return t * t * (3 - 2*t)
}

// FadeFrame scales an interleaved frame in place by a smoothstep gain moving
// from progress from to progress to across the frame.
func FadeFrame(frame []int16, channels int, from, to float64) {
	frames := len(frame) / channels
	if frames == 0 {
		return
	}
	for i := 0; i < frames; i++ {
		gain := Smoothstep(from + (to-from)*float64(i)/float64(frames))
		for ch := 0; ch < channels; ch++ {
			frame[i*channels+ch] = int16(float64(frame[i*channels+ch]) * gain)
		}
	}
}
