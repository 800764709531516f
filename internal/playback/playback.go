// Package playback plays the engine on the local sound device. oto pulls
// audio from a reader on its own goroutine, which makes that goroutine the
// engine's audio thread.
package playback

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/satindergrewal/stepseq/internal/audio"
)

const (
	bytesPerSample = 4
	// DefaultBlockFrames is the largest block rendered without growing the
	// scratch buffers.
	DefaultBlockFrames = 4096
)

// Source renders a Renderer into interleaved float32 little-endian bytes.
type Source struct {
	r        audio.Renderer
	channels int
	planar   [][]float32
	views    [][]float32
	inter    []float32
}

// NewSource preallocates buffers for blocks of up to maxFrames frames.
func NewSource(r audio.Renderer, channels, maxFrames int) *Source {
	if maxFrames <= 0 {
		maxFrames = DefaultBlockFrames
	}
	s := &Source{r: r, channels: channels}
	s.grow(maxFrames)
	return s
}

func (s *Source) grow(frames int) {
	s.planar = audio.NewPlanar(s.channels, frames)
	s.views = make([][]float32, s.channels)
	s.inter = make([]float32, frames*s.channels)
}

// Read fills p with whole frames. Trailing bytes that do not make a whole
// frame are left unwritten.
func (s *Source) Read(p []byte) (int, error) {
	frameBytes := bytesPerSample * s.channels
	frames := len(p) / frameBytes
	if frames == 0 {
		return 0, nil
	}
	// oto keeps its request size fixed, so this grows at most once.
	if frames > len(s.planar[0]) {
		s.grow(frames)
	}
	for ch := range s.views {
		s.views[ch] = s.planar[ch][:frames]
	}
	s.r.ProcessBlock(s.views)

	inter := s.inter[:frames*s.channels]
	audio.Float32(inter, s.views)
	for i, v := range inter {
		binary.LittleEndian.PutUint32(p[i*bytesPerSample:], math.Float32bits(v))
	}
	return frames * frameBytes, nil
}

// output is the part of *oto.Player that Player drives.
type output interface {
	Play()
	Pause()
}

// Player owns the oto context and the player reading from a Source.
type Player struct {
	ctx    *oto.Context
	player output

	mu      sync.Mutex
	started bool
}

// NewPlayer opens the default output device at the stream rate and wires it
// to r. bufferSize of zero leaves the choice to oto.
func NewPlayer(r audio.Renderer, bufferSize time.Duration) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   audio.SampleRate,
		ChannelCount: audio.Channels,
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufferSize,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio device: %w", err)
	}
	<-ready

	src := NewSource(r, audio.Channels, DefaultBlockFrames)
	return &Player{
		ctx:    ctx,
		player: ctx.NewPlayer(src),
	}, nil
}

// Start begins playback.
func (p *Player) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.started && p.player != nil {
		p.player.Play()
		p.started = true
	}
}

// Close stops playback and releases the player. oto keeps the device open
// for the life of the process, so pausing is what silences it.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = false
	if p.player == nil {
		return nil
	}
	p.player.Pause()
	p.player = nil
	return nil
}
