package audio

import (
	"math"

	"github.com/viterin/vek/vek32"
)

// Converter turns planar float blocks into interleaved output formats and
// meters them. Scratch space is reused between calls.
type Converter struct {
	scratch []float32
}

func (c *Converter) grow(n int) []float32 {
	if cap(c.scratch) < n {
		c.scratch = make([]float32, n)
	}
	return c.scratch[:n]
}

// Int16 interleaves planar into dst as 16-bit PCM, clipping anything outside
// [-1, 1]. dst must hold frames*len(planar) samples.
func (c *Converter) Int16(dst []int16, planar [][]float32) {
	channels := len(planar)
	for ch, in := range planar {
		scaled := vek32.MulNumber_Into(c.grow(len(in)), in, math.MaxInt16)
		for i, v := range scaled {
			dst[i*channels+ch] = clip16(v)
		}
	}
}

func clip16(v float32) int16 {
	switch {
	case math.IsNaN(float64(v)):
		return 0
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(v)
}

// Float32 interleaves planar into dst without clipping.
func Float32(dst []float32, planar [][]float32) {
	channels := len(planar)
	for ch, in := range planar {
		for i, v := range in {
			dst[i*channels+ch] = v
		}
	}
}

// Peak returns the largest absolute sample of x, or 0 for an empty slice.
func (c *Converter) Peak(x []float32) float32 {
	if len(x) == 0 {
		return 0
	}
	return vek32.Max(vek32.Abs_Into(c.grow(len(x)), x))
}
