package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"avatar-bridge/internal/domain/token"
	"avatar-bridge/internal/infrastructure/livekit"
	"avatar-bridge/internal/infrastructure/logger"
)

func newTokenCmd(e *cliEnv) *cobra.Command {
	var (
		room        string
		participant string
		identity    string
		ttl         time.Duration
		agent       bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a LiveKit room token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if e.LiveKitAPIKey == "" || e.LiveKitAPISecret == "" {
				return fmt.Errorf("LiveKit API key and secret are required")
			}
			log := logger.New("avatarctl", "cli", e.LogLevel)
			svc := token.NewService(
				livekit.NewTokenGeneratorWithKeys(e.LiveKitAPIKey, e.LiveKitAPISecret),
				token.Settings{
					ServerURL:          e.LiveKitURL,
					DefaultRoom:        "avatar-room",
					DefaultParticipant: "Avatar User",
					TTL:                ttl,
				},
				log,
			)

			req := token.Request{Agent: agent}
			if cmd.Flags().Changed("room") {
				req.Room = &room
			}
			if cmd.Flags().Changed("participant") {
				req.Participant = &participant
			}
			if cmd.Flags().Changed("identity") {
				req.Identity = &identity
			}

			tok, err := svc.Issue(cmd.Context(), req, "cli")
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(tok)
		},
	}

	f := cmd.Flags()
	f.StringVar(&room, "room", "", "room name (default avatar-room)")
	f.StringVar(&participant, "participant", "", "participant display name (default Avatar User)")
	f.StringVar(&identity, "identity", "", "participant identity (defaults to the participant name)")
	f.DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	f.BoolVar(&agent, "agent", false, "mark the participant as an agent")
	f.StringVar(&e.LiveKitURL, "livekit-url", e.LiveKitURL, "LiveKit server URL")
	f.StringVar(&e.LiveKitAPIKey, "livekit-api-key", e.LiveKitAPIKey, "LiveKit API key")
	f.StringVar(&e.LiveKitAPISecret, "livekit-api-secret", e.LiveKitAPISecret, "LiveKit API secret")
	return cmd
}
