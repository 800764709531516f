package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/satindergrewal/stepseq/internal/audio"
	"github.com/satindergrewal/stepseq/internal/config"
	"github.com/satindergrewal/stepseq/internal/control"
	"github.com/satindergrewal/stepseq/internal/kit"
	"github.com/satindergrewal/stepseq/internal/logger"
	"github.com/satindergrewal/stepseq/internal/midictl"
	"github.com/satindergrewal/stepseq/internal/playback"
	"github.com/satindergrewal/stepseq/internal/sequencer"
	"github.com/satindergrewal/stepseq/internal/stream"
)

var watchKit bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sequencer with the control API",
	Long: `Run the sequencer in real time. In stream mode the mix is served as a
WAV stream on /stream and over WebRTC on /offer; in device mode it plays on
the local sound card. The control API is always served.`,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.IntVar(&cfg.Port, "port", cfg.Port, "HTTP port")
	flags.StringVar(&cfg.Output, "output", cfg.Output, "stream or device")
	flags.StringVar(&cfg.MIDIPort, "midi", cfg.MIDIPort, "MIDI input port name, empty to disable")
	flags.BoolVar(&watchKit, "watch", true, "reapply the kit when its file changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger.Info("stepseq starting up", logger.String("output", cfg.Output), logger.Float64("bpm", cfg.BPM))

	engine := newEngine()
	engine.Prepare(audio.SampleRate, audio.FrameSize)

	loader := audio.NewLoader(audio.NewFFmpegDecoder(cfg.FFmpegPath, cfg.DecodeChannels, audio.SampleRate), engine)
	go loader.Run(ctx)

	if cfg.Kit != "" {
		if err := applyKit(cfg.Kit, engine, loader); err != nil {
			return err
		}
		if watchKit {
			go func() {
				err := kit.Watch(ctx, cfg.Kit, kit.DefaultDebounce, func(k *kit.Kit) {
					if err := kit.Apply(k, engine, loader); err != nil {
						logger.Warn("Kit partially applied", logger.ErrorField(err))
					}
				})
				if err != nil {
					logger.Warn("Kit watcher stopped", logger.ErrorField(err))
				}
			}()
		}
	}

	router := mux.NewRouter()
	ctl := control.NewServer(engine, loader)
	ctl.Routes(router)

	switch cfg.Output {
	case config.OutputDevice:
		player, err := playback.NewPlayer(engine, 0)
		if err != nil {
			return err
		}
		defer player.Close()
		player.Start()
		ctl.SetExtras(func() map[string]any {
			return map[string]any{"mode": config.OutputDevice}
		})

	case config.OutputStream:
		pipeline := audio.NewPipeline(engine)
		go pipeline.Run(ctx)

		broadcaster := stream.NewBroadcaster()
		go broadcaster.Run(ctx, pipeline.Frames())

		webrtcHandler := stream.NewWebRTCHandler(broadcaster, cfg.OpusBitrate)
		defer webrtcHandler.Close()

		router.Handle("/stream", stream.NewHTTPHandler(broadcaster))
		router.Handle("/offer", webrtcHandler)

		ctl.SetExtras(func() map[string]any {
			return map[string]any{
				"mode":             config.OutputStream,
				"pipeline":         pipeline.Status(),
				"http_listeners":   broadcaster.ListenerCount(),
				"webrtc_listeners": webrtcHandler.PeerCount(),
				"dropped_frames":   broadcaster.Dropped(),
			}
		})

	default:
		return fmt.Errorf("unknown output %q (want %s or %s)", cfg.Output, config.OutputStream, config.OutputDevice)
	}

	if cfg.MIDIPort != "" {
		stop, err := midictl.Listen(cfg.MIDIPort, midictl.NewMapper(engine))
		if err != nil {
			logger.Warn("MIDI disabled", logger.ErrorField(err))
		} else {
			defer stop()
		}
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{Addr: addr, Handler: router}

	go func() {
		<-ctx.Done()
		logger.Info("Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("stepseq live", logger.String("addr", addr))
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// applyKit loads the kit at path into engine, queueing its samples on loader.
func applyKit(path string, engine *sequencer.Engine, loader kit.Loader) error {
	k, err := kit.Load(path)
	if err != nil {
		return err
	}
	if err := kit.Apply(k, engine, loader); err != nil {
		logger.Warn("Kit partially applied", logger.String("kit", path), logger.ErrorField(err))
	}
	logger.Info("Kit applied",
		logger.String("kit", path),
		logger.Int("tracks", len(k.Tracks)),
		logger.Float64("bpm", engine.BPM()),
	)
	return nil
}
