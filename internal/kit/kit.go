// Package kit reads the YAML description of a sequencer session: tempo,
// which sample sits in which slot, and each track's pattern and effects.
package kit

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/satindergrewal/stepseq/internal/dsp"
	"github.com/satindergrewal/stepseq/internal/sequencer"
)

// Kit is a parsed kit file.
type Kit struct {
	BPM    float64 `yaml:"bpm"`
	Tracks []Track `yaml:"tracks"`

	// Dir is where relative sample paths are resolved from.
	Dir string `yaml:"-"`
}

// Track configures one slot. Unset optional fields leave the engine's value
// alone.
type Track struct {
	Slot       int                `yaml:"slot"`
	File       string             `yaml:"file"`
	Playing    bool               `yaml:"playing"`
	Gain       *float64           `yaml:"gain"`
	Steps      string             `yaml:"steps"`
	Filters    []string           `yaml:"filters"`
	Bitcrusher *Bitcrusher        `yaml:"bitcrusher"`
	Envelope   *Envelope          `yaml:"envelope"`
	Params     map[string]float64 `yaml:"params"`
}

type Bitcrusher struct {
	Enabled    bool `yaml:"enabled"`
	BitDepth   int  `yaml:"bit_depth"`
	Downsample int  `yaml:"downsample"`
}

// Envelope stages left out keep the track's current value.
type Envelope struct {
	Attack  *float64 `yaml:"attack"`
	Decay   *float64 `yaml:"decay"`
	Sustain *float64 `yaml:"sustain"`
	Release *float64 `yaml:"release"`
}

func (env *Envelope) apply(cur dsp.ADSR) dsp.ADSR {
	set := func(dst *float64, v *float64) {
		if v != nil {
			*dst = *v
		}
	}
	set(&cur.Attack, env.Attack)
	set(&cur.Decay, env.Decay)
	set(&cur.Sustain, env.Sustain)
	set(&cur.Release, env.Release)
	return cur
}

var ErrNoTracks = errors.New("kit has no tracks")

// Load reads and validates the kit at path.
func Load(path string) (*Kit, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read kit: %w", err)
	}
	k, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	k.Dir = filepath.Dir(path)
	return k, nil
}

// Parse decodes and validates a kit document.
func Parse(data []byte) (*Kit, error) {
	var k Kit
	if err := yaml.Unmarshal(data, &k); err != nil {
		return nil, fmt.Errorf("failed to parse kit: %w", err)
	}
	if err := k.validate(); err != nil {
		return nil, err
	}
	return &k, nil
}

func (k *Kit) validate() error {
	if len(k.Tracks) == 0 {
		return ErrNoTracks
	}
	if k.BPM < 0 {
		return fmt.Errorf("bpm %v is negative", k.BPM)
	}
	seen := make(map[int]bool)
	for _, t := range k.Tracks {
		if t.Slot < 0 || t.Slot >= sequencer.NumTracks {
			return fmt.Errorf("slot %d out of range 0..%d", t.Slot, sequencer.NumTracks-1)
		}
		if seen[t.Slot] {
			return fmt.Errorf("slot %d listed twice", t.Slot)
		}
		seen[t.Slot] = true
		if _, err := ParsePattern(t.Steps); err != nil {
			return fmt.Errorf("slot %d: %w", t.Slot, err)
		}
		for _, name := range t.Filters {
			if _, ok := dsp.FilterModeByName(name); !ok {
				return fmt.Errorf("slot %d: unknown filter %q", t.Slot, name)
			}
		}
		for name := range t.Params {
			if _, ok := sequencer.ParamByName(name); !ok {
				return fmt.Errorf("slot %d: unknown param %q", t.Slot, name)
			}
		}
	}
	return nil
}

// ParsePattern reads a step string such as "x...x...x...x...". 'x', 'X' and
// '1' gate a step on, '.', '-' and '0' leave it off; spaces and '|' are
// ignored. Short patterns leave the remaining steps off.
func ParsePattern(s string) ([sequencer.NumSteps]bool, error) {
	var p [sequencer.NumSteps]bool
	n := 0
	for _, r := range s {
		switch r {
		case ' ', '|':
			continue
		case 'x', 'X', '1':
			if n < sequencer.NumSteps {
				p[n] = true
			}
		case '.', '-', '0':
		default:
			return p, fmt.Errorf("invalid step %q in pattern %q", r, s)
		}
		n++
	}
	if n > sequencer.NumSteps {
		return p, fmt.Errorf("pattern %q has %d steps, max %d", s, n, sequencer.NumSteps)
	}
	return p, nil
}

// FormatPattern is the inverse of ParsePattern.
func FormatPattern(p [sequencer.NumSteps]bool) string {
	var b strings.Builder
	for _, on := range p {
		if on {
			b.WriteByte('x')
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}

// Loader queues sample files for decoding.
type Loader interface {
	Enqueue(track int, path string) bool
}

// Path resolves a track file against the kit directory.
func (k *Kit) Path(t Track) string {
	if t.File == "" || filepath.IsAbs(t.File) {
		return t.File
	}
	return filepath.Join(k.Dir, t.File)
}

// Apply pushes the kit into e and queues every sample file on loader. Tracks
// not named in the kit are left as they are. Filters are replaced by the
// listed set, enabled in order.
func Apply(k *Kit, e *sequencer.Engine, loader Loader) error {
	if k.BPM > 0 {
		e.SetBPM(k.BPM)
	}
	var errs []error
	for _, t := range k.Tracks {
		i := t.Slot
		pattern, err := ParsePattern(t.Steps)
		if err != nil {
			errs = append(errs, fmt.Errorf("slot %d: %w", i, err))
			continue
		}
		e.SetPattern(i, pattern)
		e.SetPlaying(i, t.Playing)
		if t.Gain != nil {
			e.SetGain(i, *t.Gain)
		}

		for _, m := range dsp.FilterModes {
			e.SetFilterEnabled(i, m, false)
		}
		for _, name := range t.Filters {
			if m, ok := dsp.FilterModeByName(name); ok {
				e.SetFilterEnabled(i, m, true)
			}
		}

		if bc := t.Bitcrusher; bc != nil {
			e.SetBitcrusherEnabled(i, bc.Enabled)
			if bc.BitDepth != 0 {
				e.SetBitDepth(i, bc.BitDepth)
			}
			if bc.Downsample != 0 {
				e.SetDownsample(i, bc.Downsample)
			}
		}
		if env := t.Envelope; env != nil {
			e.SetEnvelope(i, env.apply(e.Envelope(i)))
		}
		for name, v := range t.Params {
			if p, ok := sequencer.ParamByName(name); ok {
				e.SetParam(i, p, v)
			}
		}

		if path := k.Path(t); path != "" && loader != nil {
			if !loader.Enqueue(i, path) {
				errs = append(errs, fmt.Errorf("slot %d: could not load %s", i, path))
			}
		}
	}
	return errors.Join(errs...)
}
