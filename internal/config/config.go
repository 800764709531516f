package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Output modes.
const (
	OutputStream = "stream" // render pipeline to HTTP and WebRTC listeners
	OutputDevice = "device" // local sound card through oto
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Server
	Port int

	// Sequencer
	BPM             float64
	Kit             string        // YAML kit applied at startup, "" for an empty session
	FractionalTempo bool          // carry fractional step lengths
	GainSmoothing   time.Duration // 0 disables gain ramps

	// Output
	Output      string // OutputStream or OutputDevice
	OpusBitrate int

	// Sample decoding
	FFmpegPath     string
	DecodeChannels int

	// Control surfaces
	MIDIPort string // input port name substring, "" disables MIDI

	// Logging
	LogLevel string
	LogFile  string // rotated log file, "" for stdout only
}

// Load reads configuration from environment variables with sane defaults.
// A .env file in the working directory is read first; it never overrides
// variables already set.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port: envInt("STEPSEQ_PORT", 8080),

		BPM:             envFloat("STEPSEQ_BPM", 120),
		Kit:             envStr("STEPSEQ_KIT", ""),
		FractionalTempo: envBool("STEPSEQ_FRACTIONAL_TEMPO", false),
		GainSmoothing:   time.Duration(envInt("STEPSEQ_GAIN_SMOOTHING_MS", 0)) * time.Millisecond,

		Output:      envStr("STEPSEQ_OUTPUT", OutputStream),
		OpusBitrate: envInt("STEPSEQ_OPUS_BITRATE", 128000),

		FFmpegPath:     envStr("STEPSEQ_FFMPEG_PATH", "ffmpeg"),
		DecodeChannels: envInt("STEPSEQ_DECODE_CHANNELS", 2),

		MIDIPort: envStr("STEPSEQ_MIDI_PORT", ""),

		LogLevel: envStr("STEPSEQ_LOG_LEVEL", "info"),
		LogFile:  envStr("STEPSEQ_LOG_FILE", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}
