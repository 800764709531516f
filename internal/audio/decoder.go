package audio

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
)

// ErrNoAudio is returned when a file decodes to zero frames.
var ErrNoAudio = errors.New("no audio frames")

// Decoder turns an audio file into planar float32 channels.
type Decoder interface {
	Decode(ctx context.Context, path string) ([][]float32, error)
}

// FFmpegDecoder decodes any format FFmpeg understands, resampled to the
// session rate and mixed to a fixed channel count.
type FFmpegDecoder struct {
	Path       string // ffmpeg binary
	Channels   int
	SampleRate int
}

// NewFFmpegDecoder returns a decoder using the ffmpeg binary at path. A
// non-positive sampleRate means SampleRate.
func NewFFmpegDecoder(path string, channels, sampleRate int) *FFmpegDecoder {
	if path == "" {
		path = "ffmpeg"
	}
	if channels <= 0 {
		channels = Channels
	}
	if sampleRate <= 0 {
		sampleRate = SampleRate
	}
	return &FFmpegDecoder{Path: path, Channels: channels, SampleRate: sampleRate}
}

// args is the ffmpeg command line that decodes path.
func (d *FFmpegDecoder) args(path string) []string {
	return []string{
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", strconv.Itoa(d.SampleRate),
		"-ac", strconv.Itoa(d.Channels),
		"-loglevel", "error",
		"pipe:1",
	}
}

// Decode runs FFmpeg to decode path to 32-bit float PCM.
func (d *FFmpegDecoder) Decode(ctx context.Context, path string) ([][]float32, error) {
	cmd := exec.CommandContext(ctx, d.Path, d.args(path)...)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	planar := Deinterleave(BytesToFloats(out), d.Channels)
	if len(planar[0]) == 0 {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, ErrNoAudio)
	}
	return planar, nil
}

// BytesToFloats reads little-endian float32 samples. A trailing partial
// sample is dropped.
func BytesToFloats(b []byte) []float32 {
	samples := make([]float32, len(b)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return samples
}

// Deinterleave splits interleaved samples into channels. A trailing partial
// frame is dropped.
func Deinterleave(samples []float32, channels int) [][]float32 {
	frames := len(samples) / channels
	planar := NewPlanar(channels, frames)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			planar[ch][i] = samples[i*channels+ch]
		}
	}
	return planar
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
