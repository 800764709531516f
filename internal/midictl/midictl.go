// Package midictl maps incoming MIDI messages onto the sequencer's parameter
// surface. The MIDI channel selects the track.
package midictl

import (
	"fmt"
	"math"
	"strings"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/satindergrewal/stepseq/internal/dsp"
	"github.com/satindergrewal/stepseq/internal/logger"
	"github.com/satindergrewal/stepseq/internal/sequencer"
)

// Controller numbers.
const (
	CCGain           = 7
	CCLowpassCutoff  = 74
	CCHighpassCutoff = 75
	CCBandpassCutoff = 76
	CCBandpassWidth  = 77
	CCPeakGain       = 78
	CCBitDepth       = 79
	CCDownsample     = 80
	CCAttack         = 73
	CCRelease        = 72
	CCDecay          = 70
	CCSustain        = 71
)

// Note numbers. FirstStepKey..FirstStepKey+15 toggle steps 0..15.
const (
	FirstStepKey = 36
	PlayKey      = 60
)

const (
	minCutoff    = 20.0
	maxCutoff    = 20000.0
	minWidth     = 10.0
	maxWidth     = 10000.0
	maxPeakGain  = 24.0
	maxEnvelope  = 2.0
	controlRange = 127.0
)

// Surface is the part of the engine driven by MIDI.
type Surface interface {
	SetParam(track int, p sequencer.Param, v float64)
	ToggleStep(track, step int) bool
	TogglePlaying(track int) bool
}

// Mapper turns MIDI messages into engine calls.
type Mapper struct {
	surface Surface
}

func NewMapper(s Surface) *Mapper {
	return &Mapper{surface: s}
}

// unit maps a 7-bit controller value to [0, 1].
func unit(v uint8) float64 {
	return min(float64(v), controlRange) / controlRange
}

// expScale maps a controller value exponentially onto [lo, hi].
func expScale(v uint8, lo, hi float64) float64 {
	return lo * math.Pow(hi/lo, unit(v))
}

func intScale(v uint8, lo, hi int) float64 {
	return float64(lo) + math.Round(unit(v)*float64(hi-lo))
}

// ControlValue converts a controller value to the engine value it sets.
func ControlValue(cc, v uint8) (sequencer.Param, float64, bool) {
	switch cc {
	case CCGain:
		return sequencer.ParamGain, unit(v), true
	case CCLowpassCutoff:
		return sequencer.ParamLowpassCutoff, expScale(v, minCutoff, maxCutoff), true
	case CCHighpassCutoff:
		return sequencer.ParamHighpassCutoff, expScale(v, minCutoff, maxCutoff), true
	case CCBandpassCutoff:
		return sequencer.ParamBandpassCutoff, expScale(v, minCutoff, maxCutoff), true
	case CCBandpassWidth:
		return sequencer.ParamBandpassWidth, expScale(v, minWidth, maxWidth), true
	case CCPeakGain:
		return sequencer.ParamPeakGain, (unit(v)*2 - 1) * maxPeakGain, true
	case CCBitDepth:
		return sequencer.ParamBitDepth, intScale(v, dsp.MinBitDepth, dsp.MaxBitDepth), true
	case CCDownsample:
		return sequencer.ParamDownsample, intScale(v, dsp.MinDownsample, dsp.MaxDownsample), true
	case CCAttack:
		return sequencer.ParamAttack, unit(v) * maxEnvelope, true
	case CCDecay:
		return sequencer.ParamDecay, unit(v) * maxEnvelope, true
	case CCSustain:
		return sequencer.ParamSustain, unit(v), true
	case CCRelease:
		return sequencer.ParamRelease, unit(v) * maxEnvelope, true
	}
	return 0, 0, false
}

// Handle applies one message. It reports whether the message changed anything.
func (m *Mapper) Handle(msg midi.Message) bool {
	var ch, a, b uint8
	switch {
	case msg.GetControlChange(&ch, &a, &b):
		if int(ch) >= sequencer.NumTracks {
			return false
		}
		p, v, ok := ControlValue(a, b)
		if !ok {
			return false
		}
		m.surface.SetParam(int(ch), p, v)
		return true
	case msg.GetNoteStart(&ch, &a, &b):
		if int(ch) >= sequencer.NumTracks {
			return false
		}
		switch {
		case a == PlayKey:
			m.surface.TogglePlaying(int(ch))
			return true
		case a >= FirstStepKey && int(a) < FirstStepKey+sequencer.NumSteps:
			m.surface.ToggleStep(int(ch), int(a)-FirstStepKey)
			return true
		}
	}
	return false
}

// Listen opens the first rtmidi input whose name contains portName and feeds
// its messages to m. The returned stop function closes the port and driver.
func Listen(portName string, m *Mapper) (stop func(), err error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("failed to open MIDI driver: %w", err)
	}
	in, err := findInput(drv, portName)
	if err != nil {
		drv.Close()
		return nil, err
	}
	if err := in.Open(); err != nil {
		drv.Close()
		return nil, fmt.Errorf("failed to open MIDI port %q: %w", in.String(), err)
	}

	stopListen, err := midi.ListenTo(in, func(msg midi.Message, timestampms int32) {
		if m.Handle(msg) {
			logger.Debug("MIDI message applied", logger.String("msg", msg.String()))
		}
	}, midi.HandleError(func(listenErr error) {
		logger.Warn("MIDI listener error", logger.String("port", in.String()), logger.ErrorField(listenErr))
	}))
	if err != nil {
		in.Close()
		drv.Close()
		return nil, fmt.Errorf("failed to listen on MIDI port %q: %w", in.String(), err)
	}

	logger.Info("MIDI input opened", logger.String("port", in.String()))
	return func() {
		stopListen()
		in.Close()
		drv.Close()
	}, nil
}

func findInput(drv drivers.Driver, portName string) (drivers.In, error) {
	ins, err := drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("failed to list MIDI inputs: %w", err)
	}
	for _, in := range ins {
		if strings.Contains(strings.ToLower(in.String()), strings.ToLower(portName)) {
			return in, nil
		}
	}
	names := make([]string, len(ins))
	for i, in := range ins {
		names[i] = in.String()
	}
	return nil, fmt.Errorf("MIDI input %q not found (have %s)", portName, strings.Join(names, ", "))
}
