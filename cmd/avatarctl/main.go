// Command avatarctl is the operator CLI for avatar-bridge.
//
// Usage:
//
//	avatarctl diagnose            check credentials, model and LiveKit settings
//	avatarctl token               mint a LiveKit room token locally
//	avatarctl stream <file.wav>   stream a WAV file to a running streamer
//	avatarctl interrupt           stop the avatar mid-utterance
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	cmd, err := newRootCmd()
	if err == nil {
		err = cmd.Execute()
	}
	if err != nil {
		var exit *exitError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// exitError ends the process with code after output has been written.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
