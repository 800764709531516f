package audio

import (
	"context"
	"sync"
	"time"

	"github.com/satindergrewal/stepseq/internal/logger"
)

// FadeInFrames is how many frames the stream takes to fade in after Run starts.
const FadeInFrames = 10

// PipelineStatus reports what the pipeline has rendered so far.
type PipelineStatus struct {
	Frames  uint64            `json:"frames"`
	Elapsed time.Duration     `json:"elapsed"`
	Peaks   [Channels]float32 `json:"peaks"`
	Dropped uint64            `json:"dropped"`
}

// Pipeline renders a Renderer at real-time rate and outputs PCM frames.
// The goroutine running Run is the audio thread for the renderer.
type Pipeline struct {
	r       Renderer
	frameCh chan []int16
	planar  [][]float32
	conv    Converter

	mu      sync.RWMutex
	frames  uint64
	peaks   [Channels]float32
	dropped uint64
}

// NewPipeline creates a pipeline rendering r in FrameSize blocks.
func NewPipeline(r Renderer) *Pipeline {
	return &Pipeline{
		r:       r,
		frameCh: make(chan []int16, 100),
		planar:  NewPlanar(Channels, FrameSize),
	}
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (p *Pipeline) Frames() <-chan []int16 {
	return p.frameCh
}

// RenderFrame renders and converts the next frame without pacing.
func (p *Pipeline) RenderFrame() []int16 {
	p.r.ProcessBlock(p.planar)
	frame := make([]int16, FrameSamples)
	p.conv.Int16(frame, p.planar)

	var peaks [Channels]float32
	for ch := range peaks {
		peaks[ch] = p.conv.Peak(p.planar[ch])
	}
	p.mu.Lock()
	p.frames++
	p.peaks = peaks
	p.mu.Unlock()
	return frame
}

// Status returns current render info.
func (p *Pipeline) Status() PipelineStatus {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return PipelineStatus{
		Frames:  p.frames,
		Elapsed: time.Duration(p.frames) * FrameDuration,
		Peaks:   p.peaks,
		Dropped: p.dropped,
	}
}

// Run starts the pipeline. Blocks until ctx is cancelled.
func (p *Pipeline) Run(ctx context.Context) {
	defer close(p.frameCh)

	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	logger.Info("Render pipeline started",
		logger.Int("sample_rate", SampleRate),
		logger.Int("frame_size", FrameSize),
	)

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			logger.Info("Render pipeline stopped", logger.Int64("frames", int64(p.Status().Frames)))
			return
		case <-ticker.C:
		}

		frame := p.RenderFrame()
		if n < FadeInFrames {
			FadeFrame(frame, Channels, float64(n)/FadeInFrames, float64(n+1)/FadeInFrames)
		}

		// Never block the render clock on a slow consumer.
		select {
		case p.frameCh <- frame:
		default:
			p.mu.Lock()
			p.dropped++
			p.mu.Unlock()
		}
	}
}
