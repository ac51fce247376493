package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Run modes for the avatar streamer.
const (
	ModeConsole = "console"
	ModeDev     = "dev"
)

// StreamerConfig configures the avatar streamer process. Flags on the
// streamer command override these env-derived defaults.
type StreamerConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"avatar-streamer"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Mode        string `env:"STREAMER_MODE" envDefault:"console"`

	AvatarModel  string `env:"BITHUMAN_AVATAR_MODEL"`
	RuntimeToken string `env:"BITHUMAN_RUNTIME_TOKEN"`
	APISecret    string `env:"BITHUMAN_API_SECRET"`

	LiveKitURL       string `env:"LIVEKIT_URL"`
	LiveKitAPIKey    string `env:"LIVEKIT_API_KEY"`
	LiveKitAPISecret string `env:"LIVEKIT_API_SECRET"`
	Room             string `env:"LIVEKIT_ROOM"`
	Identity         string `env:"STREAMER_IDENTITY" envDefault:"bithuman-avatar"`

	WSPort          int           `env:"STREAMER_WS_PORT" envDefault:"8765"`
	VideoFPS        int           `env:"STREAMER_VIDEO_FPS" envDefault:"25"`
	SampleRate      int           `env:"STREAMER_SAMPLE_RATE" envDefault:"16000"`
	QueueSize       int           `env:"STREAMER_QUEUE_SIZE" envDefault:"500"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// Voice gating of incoming audio; off for pre-recorded streams.
	VADEnabled     bool          `env:"STREAMER_VAD_ENABLED" envDefault:"false"`
	VADThresholdDB float64       `env:"STREAMER_VAD_THRESHOLD_DB" envDefault:"-40"`
	VADSilence     time.Duration `env:"STREAMER_VAD_SILENCE" envDefault:"3s"`
	Volume         float64       `env:"STREAMER_VOLUME" envDefault:"1.0"`
}

// LoadStreamer parses the streamer configuration without validating it.
func LoadStreamer() (*StreamerConfig, error) {
	LoadEnvFiles()

	cfg := &StreamerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return cfg, nil
}

// Validate checks the streamer configuration for the selected mode.
func (c *StreamerConfig) Validate() error {
	switch c.Mode {
	case ModeConsole, ModeDev:
	default:
		return fmt.Errorf("mode must be %q or %q, got %q", ModeConsole, ModeDev, c.Mode)
	}

	if strings.TrimSpace(c.AvatarModel) == "" {
		return fmt.Errorf("avatar model is required (--avatar-model or BITHUMAN_AVATAR_MODEL)")
	}
	if strings.TrimSpace(c.RuntimeToken) == "" && strings.TrimSpace(c.APISecret) == "" {
		return fmt.Errorf("bithuman runtime token or API secret is required")
	}

	if c.Mode == ModeDev {
		if strings.TrimSpace(c.LiveKitURL) == "" {
			return fmt.Errorf("LiveKit URL is required in dev mode")
		}
		if strings.TrimSpace(c.LiveKitAPIKey) == "" || strings.TrimSpace(c.LiveKitAPISecret) == "" {
			return fmt.Errorf("LiveKit API key and secret are required in dev mode")
		}
		if strings.TrimSpace(c.Room) == "" {
			return fmt.Errorf("LiveKit room name is required in dev mode")
		}
	}

	if c.VideoFPS <= 0 {
		return fmt.Errorf("video fps must be positive")
	}
	if c.SampleRate != 16000 && c.SampleRate != 24000 && c.SampleRate != 48000 {
		return fmt.Errorf("unsupported sample rate %d", c.SampleRate)
	}
	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be positive")
	}
	return nil
}

// WSAddr returns the WebSocket listen address.
func (c *StreamerConfig) WSAddr() string {
	return fmt.Sprintf(":%d", c.WSPort)
}
