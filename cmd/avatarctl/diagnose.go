package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"avatar-bridge/internal/domain/diagnose"
	"avatar-bridge/internal/infrastructure/bithuman"
)

func newDiagnoseCmd(e *cliEnv) *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "diagnose",
		Short: "Check credentials, avatar model and LiveKit settings",
		Long: `Run the setup checks and print a report.

Exits 1 when any check fails. Warnings do not change the exit code.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := bithuman.NewClient(e.BithumanAPIURL, e.BithumanAPISecret, timeout)
			health := func(ctx context.Context) error {
				_, err := client.Health(ctx)
				return err
			}

			report := diagnose.Run(cmd.Context(), e.inputs(), health)
			report.Write(cmd.OutOrStdout())
			if code := report.ExitCode(); code != 0 {
				return &exitError{code: code}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&e.BithumanAPISecret, "api-secret", e.BithumanAPISecret, "bitHuman API secret")
	f.StringVar(&e.BithumanAPIURL, "api-url", e.BithumanAPIURL, "bitHuman API base URL")
	f.StringVar(&e.AvatarID, "avatar-id", e.AvatarID, "bitHuman avatar id")
	f.StringVar(&e.AvatarModel, "avatar-model", e.AvatarModel, "path to a local .imx model")
	f.StringVar(&e.LiveKitURL, "livekit-url", e.LiveKitURL, "LiveKit server URL")
	f.StringVar(&e.LiveKitAPIKey, "livekit-api-key", e.LiveKitAPIKey, "LiveKit API key")
	f.StringVar(&e.LiveKitAPISecret, "livekit-api-secret", e.LiveKitAPISecret, "LiveKit API secret")
	f.DurationVar(&timeout, "timeout", 10*time.Second, "bitHuman API request timeout")
	return cmd
}
