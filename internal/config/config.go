package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the avatar-bridge HTTP server.
type Config struct {
	// Service settings
	ServiceName     string        `env:"SERVICE_NAME" envDefault:"avatar-bridge"`
	Environment     string        `env:"ENVIRONMENT" envDefault:"development"`
	HTTPPort        int           `env:"TOKEN_SERVER_PORT" envDefault:"8190"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`

	// OpenTelemetry
	EnableTracing bool   `env:"OTEL_ENABLED" envDefault:"false"`
	OTLPEndpoint  string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:""`

	// Auth
	AuthEnabled  bool     `env:"AUTH_ENABLED" envDefault:"false"`
	AuthIssuer   string   `env:"ISSUER"`
	AuthAudience string   `env:"AUDIENCE"`
	AuthJWKSURL  string   `env:"JWKS_URL"`
	AuthAPIKeys  []string `env:"AUTH_API_KEYS" envSeparator:","`

	// LiveKit
	LiveKitURL                string        `env:"LIVEKIT_URL" envDefault:"ws://localhost:7880"`
	LiveKitAPIKey             string        `env:"LIVEKIT_API_KEY"`
	LiveKitAPISecret          string        `env:"LIVEKIT_API_SECRET"`
	LiveKitTokenTTL           time.Duration `env:"LIVEKIT_TOKEN_TTL" envDefault:"1h"`
	DefaultRoom               string        `env:"DEFAULT_ROOM" envDefault:"avatar-room"`
	DefaultParticipant        string        `env:"DEFAULT_PARTICIPANT" envDefault:"Avatar User"`
	LiveKitWebhookRequireAuth bool          `env:"LIVEKIT_WEBHOOK_REQUIRE_AUTH" envDefault:"true"`

	// Session management
	SessionCleanupInterval time.Duration `env:"SESSION_CLEANUP_INTERVAL" envDefault:"15s"`
	SessionStaleTTL        time.Duration `env:"SESSION_STALE_TTL" envDefault:"10m"` // how long a "created" session may wait for a participant

	// Inbound avatar webhooks
	WebhookSecret           string        `env:"WEBHOOK_SECRET"`
	WebhookRequireSignature bool          `env:"WEBHOOK_REQUIRE_SIGNATURE" envDefault:"false"`
	WebhookTolerance        time.Duration `env:"WEBHOOK_TIMESTAMP_TOLERANCE" envDefault:"5m"`
	WebhookQueueSize        int           `env:"WEBHOOK_QUEUE_SIZE" envDefault:"256"`
	WebhookWorkers          int           `env:"WEBHOOK_WORKERS" envDefault:"4"`
	WebhookMaxAttempts      int           `env:"WEBHOOK_MAX_ATTEMPTS" envDefault:"3"`
	WebhookDedupTTL         time.Duration `env:"WEBHOOK_DEDUP_TTL" envDefault:"10m"`
	WebhookDedupSize        int           `env:"WEBHOOK_DEDUP_SIZE" envDefault:"4096"`
	WebhookHandlerTimeout   time.Duration `env:"WEBHOOK_HANDLER_TIMEOUT" envDefault:"25s"`

	// Outbound lifecycle notifications
	NotifyURL    string `env:"WEBHOOK_NOTIFY_URL"`
	NotifySecret string `env:"WEBHOOK_NOTIFY_SECRET"`

	// Dead letters
	DeadLetterBackend string `env:"DEAD_LETTER_BACKEND" envDefault:"memory"`
	DeadLetterLimit   int    `env:"DEAD_LETTER_LIMIT" envDefault:"1000"`
	RedisURL          string `env:"REDIS_URL"`

	// bitHuman cloud API
	BithumanAPIURL    string `env:"BITHUMAN_API_URL" envDefault:"https://api.bithuman.ai"`
	BithumanAPISecret string `env:"BITHUMAN_API_SECRET"`

	// Gestures triggered from chat.push messages
	DynamicsEnabled      bool          `env:"DYNAMICS_ENABLED" envDefault:"false"`
	DynamicsURL          string        `env:"BITHUMAN_DYNAMICS_URL" envDefault:"https://public.api.bithuman.ai"`
	DynamicsCooldown     time.Duration `env:"DYNAMICS_COOLDOWN" envDefault:"3s"`
	DynamicsFetchTimeout time.Duration `env:"DYNAMICS_FETCH_TIMEOUT" envDefault:"10s"`
	BithumanAgentID      string        `env:"BITHUMAN_AGENT_ID"`
	StreamerURL          string        `env:"STREAMER_URL" envDefault:"ws://localhost:8765/ws"`
}

// Load reads .env files and parses environment variables into Config.
func Load() (*Config, error) {
	LoadEnvFiles()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.AuthEnabled {
		hasJWT := strings.TrimSpace(c.AuthJWKSURL) != ""
		if !hasJWT && len(c.AuthAPIKeys) == 0 {
			return fmt.Errorf("JWKS_URL or AUTH_API_KEYS is required when AUTH_ENABLED is true")
		}
		if hasJWT {
			if strings.TrimSpace(c.AuthIssuer) == "" {
				return fmt.Errorf("ISSUER is required when JWKS_URL is set")
			}
			if strings.TrimSpace(c.AuthAudience) == "" {
				return fmt.Errorf("AUDIENCE is required when JWKS_URL is set")
			}
		}
	}

	if strings.TrimSpace(c.LiveKitAPIKey) == "" {
		return fmt.Errorf("LIVEKIT_API_KEY is required")
	}
	if strings.TrimSpace(c.LiveKitAPISecret) == "" {
		return fmt.Errorf("LIVEKIT_API_SECRET is required")
	}
	if c.LiveKitTokenTTL <= 0 {
		return fmt.Errorf("LIVEKIT_TOKEN_TTL must be positive")
	}

	if c.WebhookRequireSignature && strings.TrimSpace(c.WebhookSecret) == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_REQUIRE_SIGNATURE is true")
	}
	if c.WebhookQueueSize <= 0 || c.WebhookWorkers <= 0 || c.WebhookMaxAttempts <= 0 {
		return fmt.Errorf("webhook queue size, workers and max attempts must be positive")
	}

	if c.DynamicsEnabled && strings.TrimSpace(c.StreamerURL) == "" {
		return fmt.Errorf("STREAMER_URL is required when DYNAMICS_ENABLED is true")
	}

	switch c.DeadLetterBackend {
	case "memory":
	case "redis":
		if strings.TrimSpace(c.RedisURL) == "" {
			return fmt.Errorf("REDIS_URL is required when DEAD_LETTER_BACKEND is redis")
		}
	default:
		return fmt.Errorf("unknown DEAD_LETTER_BACKEND %q (want memory or redis)", c.DeadLetterBackend)
	}

	return nil
}

// Addr returns the HTTP server address.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// LoadEnvFiles overlays .env files from the working directory and its parents.
func LoadEnvFiles() {
	paths := []string{".env", "../.env", "../../.env"}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Overload(path); err != nil {
				fmt.Fprintf(os.Stderr, "warning: failed to load %s: %v\n", path, err)
			}
		}
	}
}
