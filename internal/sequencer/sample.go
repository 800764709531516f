package sequencer

import (
	"errors"
	"fmt"
)

var (
	ErrNoChannels = errors.New("sample has no channels")
	ErrEmpty      = errors.New("sample has no frames")
)

// Sample is an immutable, decoded multi-channel buffer. Once handed to the
// engine it must not be modified.
type Sample struct {
	Name string
	data [][]float32
}

// NewSample wraps planar channel data. Every channel must have the same
// non-zero length.
func NewSample(name string, data [][]float32) (*Sample, error) {
	if len(data) == 0 {
		return nil, ErrNoChannels
	}
	n := len(data[0])
	if n == 0 {
		return nil, ErrEmpty
	}
	for ch, d := range data {
		if len(d) != n {
			return nil, fmt.Errorf("channel %d has %d frames, want %d", ch, len(d), n)
		}
	}
	return &Sample{Name: name, data: data}, nil
}

func (s *Sample) Channels() int { return len(s.data) }

// Len is the number of frames per channel.
func (s *Sample) Len() int { return len(s.data[0]) }

// Channel returns the data for output channel ch. A mono sample serves every
// output channel; otherwise channels wrap around.
func (s *Sample) Channel(ch int) []float32 {
	return s.data[ch%len(s.data)]
}

// At returns frame i of output channel ch.
func (s *Sample) At(ch, i int) float32 {
	return s.data[ch%len(s.data)][i]
}
