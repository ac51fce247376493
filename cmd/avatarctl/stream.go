package main

import (
	"time"

	"github.com/spf13/cobra"

	"avatar-bridge/internal/domain/audio"
	"avatar-bridge/internal/infrastructure/logger"
	"avatar-bridge/internal/infrastructure/wsclient"
)

func newStreamCmd(e *cliEnv) *cobra.Command {
	var (
		chunkMS  int
		realtime bool
	)

	cmd := &cobra.Command{
		Use:   "stream <file.wav>",
		Short: "Stream a WAV file to a running streamer",
		Long: `Decode a WAV file to 16 kHz mono PCM and send it to the streamer's
WebSocket endpoint, followed by an end-of-utterance marker.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pcm, err := wsclient.LoadWAV(args[0], audio.L16Mono16K)
			if err != nil {
				return err
			}

			log := logger.New("avatarctl", "cli", e.LogLevel)
			client, err := wsclient.Dial(cmd.Context(), e.StreamerURL, log,
				wsclient.WithChunk(time.Duration(chunkMS)*time.Millisecond))
			if err != nil {
				return err
			}
			defer client.Close()

			return client.StreamPCM(cmd.Context(), pcm, realtime)
		},
	}

	f := cmd.Flags()
	f.StringVar(&e.StreamerURL, "url", e.StreamerURL, "streamer WebSocket URL")
	f.IntVar(&chunkMS, "chunk-ms", 100, "audio per message in milliseconds")
	f.BoolVar(&realtime, "realtime", true, "pace chunks at playback speed")
	return cmd
}

func newInterruptCmd(e *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "interrupt",
		Short: "Stop the avatar mid-utterance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New("avatarctl", "cli", e.LogLevel)
			client, err := wsclient.Dial(cmd.Context(), e.StreamerURL, log)
			if err != nil {
				return err
			}
			defer client.Close()
			return client.SendInterrupt()
		},
	}
	cmd.Flags().StringVar(&e.StreamerURL, "url", e.StreamerURL, "streamer WebSocket URL")
	return cmd
}

func newGestureCmd(e *cliEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gesture <action>",
		Short:   "Play a dynamics gesture such as mini_wave_hello",
		Args:    cobra.ExactArgs(1),
		Example: "  avatarctl gesture laugh_react",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logger.New("avatarctl", "cli", e.LogLevel)
			return wsclient.NewGestureRelay(e.StreamerURL, log).TriggerGesture(cmd.Context(), args[0])
		},
	}
	cmd.Flags().StringVar(&e.StreamerURL, "url", e.StreamerURL, "streamer WebSocket URL")
	return cmd
}
