package audio

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/satindergrewal/stepseq/internal/logger"
	"github.com/satindergrewal/stepseq/internal/sequencer"
)

// Target receives decoded samples. A nil sample reports a failed load.
// sequencer.Engine satisfies it.
type Target interface {
	Load(track int, s *sequencer.Sample)
}

// LoadRequest asks for path to be decoded into track.
type LoadRequest struct {
	Track int
	Path  string
}

// Loader decodes sample files off the audio thread and hands the result to a
// Target.
type Loader struct {
	dec    Decoder
	target Target
	reqCh  chan LoadRequest
}

// NewLoader creates a loader with a small request queue.
func NewLoader(dec Decoder, target Target) *Loader {
	return &Loader{
		dec:    dec,
		target: target,
		reqCh:  make(chan LoadRequest, 16),
	}
}

// Enqueue schedules a load. It returns false if the queue is full.
func (l *Loader) Enqueue(track int, path string) bool {
	select {
	case l.reqCh <- LoadRequest{Track: track, Path: path}:
		return true
	default:
		return false
	}
}

// Pending returns the number of queued requests.
func (l *Loader) Pending() int {
	return len(l.reqCh)
}

// LoadNow decodes path and publishes it to track, blocking until done. On
// failure the track is marked unloaded and the error returned.
func (l *Loader) LoadNow(ctx context.Context, track int, path string) error {
	start := time.Now()
	planar, err := l.dec.Decode(ctx, path)
	if err != nil {
		l.target.Load(track, nil)
		return err
	}
	s, err := sequencer.NewSample(SampleName(path), planar)
	if err != nil {
		l.target.Load(track, nil)
		return fmt.Errorf("load %s: %w", path, err)
	}
	l.target.Load(track, s)
	logger.Info("Sample loaded",
		logger.Int("track", track),
		logger.String("sample", s.Name),
		logger.Int("frames", s.Len()),
		logger.Duration("took", time.Since(start)),
	)
	return nil
}

// Run serves queued requests. Blocks until ctx is cancelled.
func (l *Loader) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-l.reqCh:
			if err := l.LoadNow(ctx, req.Track, req.Path); err != nil {
				logger.Warn("Sample load failed",
					logger.Int("track", req.Track),
					logger.String("path", req.Path),
					logger.ErrorField(err),
				)
			}
		}
	}
}

// SampleName is the display name for a sample file: its base name without
// extension.
func SampleName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
