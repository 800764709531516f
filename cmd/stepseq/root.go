package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/stepseq/internal/config"
	"github.com/satindergrewal/stepseq/internal/logger"
	"github.com/satindergrewal/stepseq/internal/sequencer"
)

// cfg starts from the environment; flags override it.
var cfg = config.Load()

var rootCmd = &cobra.Command{
	Use:          "stepseq",
	Short:        "stepseq is a six-track sample step sequencer.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		err := logger.InitLogger(logger.Config{
			Level:      logger.LogLevel(cfg.LogLevel),
			OutputPath: cfg.LogFile,
			MaxSize:    100,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		})
		if err != nil {
			return fmt.Errorf("failed to init logger: %w", err)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfg.Kit, "kit", cfg.Kit, "YAML kit to load at startup")
	flags.Float64Var(&cfg.BPM, "bpm", cfg.BPM, "tempo, overridden by the kit's bpm")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flags.StringVar(&cfg.FFmpegPath, "ffmpeg", cfg.FFmpegPath, "ffmpeg binary used to decode samples")
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newEngine() *sequencer.Engine {
	e := sequencer.New(sequencer.Options{
		FractionalTempo: cfg.FractionalTempo,
		GainSmoothing:   cfg.GainSmoothing,
	})
	e.SetBPM(cfg.BPM)
	return e
}
