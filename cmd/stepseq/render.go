package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/stepseq/internal/audio"
	"github.com/satindergrewal/stepseq/internal/logger"
	"github.com/satindergrewal/stepseq/internal/sequencer"
)

const renderBlock = 512

var (
	renderSteps int
	renderOut   string
	renderRate  int
)

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the kit offline to a 16-bit WAV file",
	RunE:  runRender,
}

func init() {
	flags := renderCmd.Flags()
	flags.IntVar(&renderSteps, "steps", 2*sequencer.NumSteps, "number of steps to render")
	flags.StringVarP(&renderOut, "out", "o", "", "output WAV file, - for stdout")
	flags.IntVar(&renderRate, "rate", audio.SampleRate, "sample rate")
	renderCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(renderCmd)
}

// syncLoader decodes each sample before returning so the render sees every
// buffer from its first block.
type syncLoader struct {
	ctx    context.Context
	loader *audio.Loader
}

func (s syncLoader) Enqueue(track int, path string) bool {
	if err := s.loader.LoadNow(s.ctx, track, path); err != nil {
		logger.Warn("Sample load failed", logger.Int("track", track), logger.String("path", path), logger.ErrorField(err))
		return false
	}
	return true
}

// renderDecoder resamples sample files to the render rate so they play at
// their recorded pitch.
func renderDecoder(rate int) *audio.FFmpegDecoder {
	return audio.NewFFmpegDecoder(cfg.FFmpegPath, cfg.DecodeChannels, rate)
}

func runRender(cmd *cobra.Command, args []string) error {
	if cfg.Kit == "" {
		return errors.New("render needs a kit (--kit or STEPSEQ_KIT)")
	}
	if renderSteps <= 0 || renderRate <= 0 {
		return fmt.Errorf("steps and rate must be positive")
	}

	engine := newEngine()
	loader := audio.NewLoader(renderDecoder(renderRate), engine)
	if err := applyKit(cfg.Kit, engine, syncLoader{ctx: cmd.Context(), loader: loader}); err != nil {
		return err
	}
	engine.Prepare(float64(renderRate), renderBlock)

	planar := renderPlanar(engine, renderSteps, renderRate, cfg.FractionalTempo)

	var w io.Writer = os.Stdout
	if renderOut != "-" {
		f, err := os.Create(renderOut)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	bw := bufio.NewWriter(w)
	if err := audio.WriteWAV(bw, planar, renderRate); err != nil {
		return err
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	logger.Info("Render complete",
		logger.String("out", renderOut),
		logger.Int("steps", renderSteps),
		logger.Int("frames", len(planar[0])),
	)
	return nil
}

// renderPlanar runs a prepared engine for steps steps in fixed-size blocks.
func renderPlanar(e *sequencer.Engine, steps, rate int, fractional bool) [][]float32 {
	frames := steps * e.SamplesPerStep()
	if fractional {
		stepSeconds := 60 / e.BPM() / sequencer.StepsPerBeat
		frames = int(math.Round(float64(steps) * stepSeconds * float64(rate)))
	}

	out := audio.NewPlanar(audio.Channels, frames)
	views := make([][]float32, audio.Channels)
	for off := 0; off < frames; off += renderBlock {
		end := min(off+renderBlock, frames)
		for ch := range views {
			views[ch] = out[ch][off:end]
		}
		e.ProcessBlock(views)
	}
	return out
}
