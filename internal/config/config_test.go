package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("LIVEKIT_API_KEY", "APIkey")
	t.Setenv("LIVEKIT_API_SECRET", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "avatar-bridge", cfg.ServiceName)
	assert.Equal(t, ":8190", cfg.Addr())
	assert.Equal(t, time.Hour, cfg.LiveKitTokenTTL)
	assert.Equal(t, "avatar-room", cfg.DefaultRoom)
	assert.Equal(t, 5*time.Minute, cfg.WebhookTolerance)
	assert.Equal(t, "memory", cfg.DeadLetterBackend)
	assert.False(t, cfg.DynamicsEnabled)
	assert.Equal(t, 3*time.Second, cfg.DynamicsCooldown)
	assert.Equal(t, "ws://localhost:8765/ws", cfg.StreamerURL)
}

func TestLoad_APIKeysList(t *testing.T) {
	t.Setenv("LIVEKIT_API_KEY", "APIkey")
	t.Setenv("LIVEKIT_API_SECRET", "secret")
	t.Setenv("AUTH_ENABLED", "true")
	t.Setenv("AUTH_API_KEYS", "k1,k2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"k1", "k2"}, cfg.AuthAPIKeys)
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			LiveKitAPIKey:      "APIkey",
			LiveKitAPISecret:   "secret",
			LiveKitTokenTTL:    time.Hour,
			WebhookQueueSize:   1,
			WebhookWorkers:     1,
			WebhookMaxAttempts: 1,
			DeadLetterBackend:  "memory",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "missing livekit key", mutate: func(c *Config) { c.LiveKitAPIKey = " " }, wantErr: "LIVEKIT_API_KEY"},
		{name: "missing livekit secret", mutate: func(c *Config) { c.LiveKitAPISecret = "" }, wantErr: "LIVEKIT_API_SECRET"},
		{name: "auth without source", mutate: func(c *Config) { c.AuthEnabled = true }, wantErr: "AUTH_API_KEYS"},
		{
			name: "jwks without issuer",
			mutate: func(c *Config) {
				c.AuthEnabled = true
				c.AuthJWKSURL = "http://keycloak/certs"
			},
			wantErr: "ISSUER",
		},
		{name: "signature required without secret", mutate: func(c *Config) { c.WebhookRequireSignature = true }, wantErr: "WEBHOOK_SECRET"},
		{name: "redis without url", mutate: func(c *Config) { c.DeadLetterBackend = "redis" }, wantErr: "REDIS_URL"},
		{
			name: "dynamics without streamer",
			mutate: func(c *Config) {
				c.DynamicsEnabled = true
				c.StreamerURL = ""
			},
			wantErr: "STREAMER_URL",
		},
		{name: "unknown backend", mutate: func(c *Config) { c.DeadLetterBackend = "s3" }, wantErr: "DEAD_LETTER_BACKEND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestStreamerConfig_Validate(t *testing.T) {
	base := func() *StreamerConfig {
		return &StreamerConfig{
			Mode:        ModeConsole,
			AvatarModel: "/models/einstein.imx",
			APISecret:   "sk_bh_test",
			VideoFPS:    25,
			SampleRate:  16000,
			QueueSize:   10,
		}
	}

	t.Run("console needs no livekit", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("dev requires livekit", func(t *testing.T) {
		cfg := base()
		cfg.Mode = ModeDev
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "LiveKit URL")

		cfg.LiveKitURL = "wss://example.livekit.cloud"
		cfg.LiveKitAPIKey = "APIkey"
		cfg.LiveKitAPISecret = "secret"
		cfg.Room = "demo"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("unknown mode", func(t *testing.T) {
		cfg := base()
		cfg.Mode = "prod"
		assert.Error(t, cfg.Validate())
	})

	t.Run("credentials required", func(t *testing.T) {
		cfg := base()
		cfg.APISecret = ""
		assert.Error(t, cfg.Validate())
		cfg.RuntimeToken = "jwt"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("sample rate", func(t *testing.T) {
		cfg := base()
		cfg.SampleRate = 8000
		assert.Error(t, cfg.Validate())
	})
}
