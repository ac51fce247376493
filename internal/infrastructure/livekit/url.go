package livekit

import "strings"

// HTTPURL converts a ws(s):// LiveKit URL into the http(s):// form used by
// the server API.
func HTTPURL(u string) string {
	switch {
	case strings.HasPrefix(u, "wss://"):
		return "https://" + strings.TrimPrefix(u, "wss://")
	case strings.HasPrefix(u, "ws://"):
		return "http://" + strings.TrimPrefix(u, "ws://")
	}
	return u
}
