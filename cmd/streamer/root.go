package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"avatar-bridge/internal/config"
	"avatar-bridge/internal/domain/audio"
	"avatar-bridge/internal/domain/avatar"
	"avatar-bridge/internal/domain/retry"
	"avatar-bridge/internal/domain/streamer"
	"avatar-bridge/internal/infrastructure/livekit"
	"avatar-bridge/internal/infrastructure/logger"
	"avatar-bridge/internal/interfaces/wsserver"
)

// consoleLogEvery is how many frames the console publisher skips between
// progress lines.
const consoleLogEvery = 25

func newRootCmd() (*cobra.Command, error) {
	cfg, err := config.LoadStreamer()
	if err != nil {
		return nil, err
	}

	cmd := &cobra.Command{
		Use:   "streamer",
		Short: "Run the bitHuman avatar streamer",
		Long: `Run the avatar streamer.

Modes:
  console  frames are logged locally; no LiveKit room is needed
  dev      frames are published into a LiveKit room as the avatar participant

Audio clients connect to ws://<host>:<ws-port>/ws and send 16 kHz mono
int16 PCM as binary messages, plus {"type":"end"} or {"type":"interrupt"}.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := avatar.ValidateModelPath(cfg.AvatarModel); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return run(ctx, cfg)
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.Mode, "mode", cfg.Mode, "run mode: console or dev")
	f.StringVar(&cfg.AvatarModel, "avatar-model", cfg.AvatarModel, "path to the .imx avatar model")
	f.StringVar(&cfg.APISecret, "api-secret", cfg.APISecret, "bitHuman API secret")
	f.StringVar(&cfg.RuntimeToken, "token", cfg.RuntimeToken, "bitHuman runtime token")
	f.StringVar(&cfg.LiveKitURL, "livekit-url", cfg.LiveKitURL, "LiveKit server URL")
	f.StringVar(&cfg.LiveKitAPIKey, "livekit-api-key", cfg.LiveKitAPIKey, "LiveKit API key")
	f.StringVar(&cfg.LiveKitAPISecret, "livekit-api-secret", cfg.LiveKitAPISecret, "LiveKit API secret")
	f.StringVar(&cfg.Room, "room", cfg.Room, "LiveKit room to join in dev mode")
	f.StringVar(&cfg.Identity, "identity", cfg.Identity, "participant identity of the avatar")
	f.IntVar(&cfg.WSPort, "ws-port", cfg.WSPort, "WebSocket listen port")
	f.IntVar(&cfg.VideoFPS, "fps", cfg.VideoFPS, "video frame rate")
	f.IntVar(&cfg.QueueSize, "queue-size", cfg.QueueSize, "audio queue capacity in chunks")
	f.BoolVar(&cfg.VADEnabled, "vad", cfg.VADEnabled, "gate incoming audio on voice activity")
	f.Float64Var(&cfg.VADThresholdDB, "vad-threshold", cfg.VADThresholdDB, "voice activity threshold in dBFS")
	f.Float64Var(&cfg.Volume, "volume", cfg.Volume, "gain applied to incoming audio")
	f.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	return cmd, nil
}

func run(ctx context.Context, cfg *config.StreamerConfig) error {
	log := logger.New(cfg.ServiceName, cfg.Environment, cfg.LogLevel)

	creds := avatar.Credentials{Token: cfg.RuntimeToken, APISecret: cfg.APISecret}
	warnings, err := creds.Validate()
	if err != nil {
		return err
	}
	for _, w := range warnings {
		log.Warn().Msg(w)
	}

	rt := avatar.NewLoopback(avatar.LoopbackConfig{FPS: cfg.VideoFPS}, log)
	pub, err := newPublisher(ctx, cfg, log)
	if err != nil {
		_ = rt.Close(context.Background())
		return err
	}

	scfg := streamer.Config{
		SampleRate: cfg.SampleRate,
		FPS:        cfg.VideoFPS,
		QueueSize:  cfg.QueueSize,
		Volume:     cfg.Volume,
		Pace:       true,
	}
	if cfg.VADEnabled {
		gate := audio.DefaultGateConfig()
		gate.ThresholdDB = audio.Threshold(cfg.VADThresholdDB)
		gate.SilenceTimeout = cfg.VADSilence
		scfg.VAD = &gate
	}
	s := streamer.New(scfg, rt, pub, log)
	ws := wsserver.New(wsserver.Config{
		Addr:            cfg.WSAddr(),
		ShutdownTimeout: cfg.ShutdownTimeout,
	}, s, log)

	log.Info().
		Str("mode", cfg.Mode).
		Str("model", cfg.AvatarModel).
		Str("credential", creds.Mask()).
		Str("ws_addr", cfg.WSAddr()).
		Msg("starting avatar streamer")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.Run(gctx, cfg.ShutdownTimeout)
	})
	g.Go(func() error {
		return ws.Run(gctx)
	})
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info().Interface("stats", s.Stats()).Msg("avatar streamer stopped")
	return nil
}

func newPublisher(ctx context.Context, cfg *config.StreamerConfig, log zerolog.Logger) (streamer.Publisher, error) {
	if cfg.Mode == config.ModeConsole {
		return streamer.NewConsolePublisher(log, consoleLogEvery), nil
	}

	policy := retry.Policy{
		MaxRetries:      5,
		InitialDelay:    time.Second,
		MaxDelay:        10 * time.Second,
		BackoffStrategy: retry.BackoffExponential,
		JitterFactor:    0.1,
	}
	pub, err := retry.ExecuteWithResult(ctx, policy, func(context.Context, int) (*livekit.DataPublisher, error) {
		return livekit.ConnectDataPublisher(livekit.PublisherConfig{
			URL:       cfg.LiveKitURL,
			APIKey:    cfg.LiveKitAPIKey,
			APISecret: cfg.LiveKitAPISecret,
			Room:      cfg.Room,
			Identity:  cfg.Identity,
		}, log)
	}, func(attempt int, delay time.Duration, err error) {
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("LiveKit connect failed, retrying")
	})
	if err != nil {
		return nil, fmt.Errorf("join LiveKit room %s: %w", cfg.Room, err)
	}
	return pub, nil
}
