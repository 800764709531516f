package dsp

import "math"

// Bitcrusher limits and hold bounds.
const (
	MinBitDepth   = 1
	MaxBitDepth   = 24
	MinDownsample = 1
	MaxDownsample = 50
)

// ClampBitDepth bounds a bit depth to [MinBitDepth, MaxBitDepth].
func ClampBitDepth(bits int) int {
	return min(max(bits, MinBitDepth), MaxBitDepth)
}

// ClampDownsample bounds a hold factor to [MinDownsample, MaxDownsample].
func ClampDownsample(factor int) int {
	return min(max(factor, MinDownsample), MaxDownsample)
}

// Quantize rounds x to the nearest of 2^bits-1 steps per unit amplitude.
func Quantize(x float32, bits int) float32 {
	levels := math.Exp2(float64(ClampBitDepth(bits))) - 1
	return float32(math.Round(float64(x)*levels) / levels)
}

// Bitcrusher reduces amplitude resolution and holds samples to lower the
// effective rate.
//
// On the first sample of every hold window the input is quantized. For the
// rest of the window the raw input captured at the window start is repeated,
// not the quantized value.
type Bitcrusher struct {
	hold int
	held [MaxChannels]float32
}

// Process crushes one frame in place, one entry per channel, and advances the
// hold counter once.
func (b *Bitcrusher) Process(frame []float32, bits, factor int) {
	factor = ClampDownsample(factor)
	if b.hold >= factor {
		b.hold = 0
	}
	if b.hold == 0 {
		for ch, x := range frame {
			b.held[ch] = x
			frame[ch] = Quantize(x, bits)
		}
	} else {
		for ch := range frame {
			frame[ch] = b.held[ch]
		}
	}
	b.hold = (b.hold + 1) % factor
}

// HoldCounter returns the position inside the current hold window.
func (b *Bitcrusher) HoldCounter() int {
	return b.hold
}

// Reset rewinds the hold window and forgets held samples.
func (b *Bitcrusher) Reset() {
	b.hold = 0
	b.held = [MaxChannels]float32{}
}
