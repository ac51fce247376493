package main

import (
	"fmt"

	"github.com/caarlos0/env/v10"
	"github.com/spf13/cobra"

	"avatar-bridge/internal/config"
	"avatar-bridge/internal/domain/diagnose"
)

// cliEnv holds the environment the subcommands fall back to.
type cliEnv struct {
	BithumanAPISecret string `env:"BITHUMAN_API_SECRET"`
	BithumanAPIURL    string `env:"BITHUMAN_API_URL" envDefault:"https://api.bithuman.ai"`
	AvatarID          string `env:"BITHUMAN_AVATAR_ID"`
	AvatarModel       string `env:"BITHUMAN_AVATAR_MODEL"`
	LiveKitURL        string `env:"LIVEKIT_URL"`
	LiveKitAPIKey     string `env:"LIVEKIT_API_KEY"`
	LiveKitAPISecret  string `env:"LIVEKIT_API_SECRET"`
	OpenAIAPIKey      string `env:"OPENAI_API_KEY"`
	StreamerURL       string `env:"STREAMER_URL" envDefault:"ws://localhost:8765/ws"`
	LogLevel          string `env:"LOG_LEVEL" envDefault:"warn"`
}

func loadEnv() (*cliEnv, error) {
	config.LoadEnvFiles()
	e := &cliEnv{}
	if err := env.Parse(e); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return e, nil
}

func (e *cliEnv) inputs() diagnose.Inputs {
	return diagnose.Inputs{
		BithumanAPISecret: e.BithumanAPISecret,
		BithumanAPIURL:    e.BithumanAPIURL,
		AvatarID:          e.AvatarID,
		AvatarModel:       e.AvatarModel,
		LiveKitURL:        e.LiveKitURL,
		LiveKitAPIKey:     e.LiveKitAPIKey,
		LiveKitAPISecret:  e.LiveKitAPISecret,
		OpenAIAPIKey:      e.OpenAIAPIKey,
	}
}

func newRootCmd() (*cobra.Command, error) {
	e, err := loadEnv()
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:           "avatarctl",
		Short:         "Operate bitHuman avatars on LiveKit",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&e.LogLevel, "log-level", e.LogLevel, "log level")

	root.AddCommand(
		newDiagnoseCmd(e),
		newTokenCmd(e),
		newStreamCmd(e),
		newInterruptCmd(e),
		newGestureCmd(e),
	)
	return root, nil
}
