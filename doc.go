// Package avatarbridge connects bitHuman avatars to LiveKit rooms.
//
// The module ships three binaries:
//   - cmd/server: token issuing, avatar session lifecycle, inbound avatar
//     and LiveKit webhooks, metrics and swagger docs
//   - cmd/streamer: accepts audio over WebSocket, drives the avatar runtime
//     and publishes frames to the console or a LiveKit room
//   - cmd/avatarctl: setup diagnostics, local token minting and a
//     WebSocket audio client
package avatarbridge
