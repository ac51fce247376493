// Command streamer runs an avatar streamer: audio clients connect over
// WebSocket, audio is pushed through the avatar runtime, and frames are
// published to the console or a LiveKit room.
//
// Usage:
//
//	streamer --mode console --avatar-model ./einstein.imx
//	streamer --mode dev --room demo --livekit-url wss://example.livekit.cloud
package main

import (
	"fmt"
	"os"
)

func main() {
	cmd, err := newRootCmd()
	if err == nil {
		err = cmd.Execute()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
