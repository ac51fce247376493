package livekit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"

	"avatar-bridge/internal/config"
)

// AvatarRoomMetadata is written to a room's metadata once its avatar session
// connects, so agents and dashboards can tell which session owns the room.
type AvatarRoomMetadata struct {
	SessionID string `json:"avatar_session_id"`
	AvatarID  string `json:"avatar_id,omitempty"`
}

// ParseAvatarRoomMetadata returns nil unless raw carries an avatar session id.
func ParseAvatarRoomMetadata(raw string) *AvatarRoomMetadata {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var meta AvatarRoomMetadata
	if err := json.Unmarshal([]byte(raw), &meta); err != nil || meta.SessionID == "" {
		return nil
	}
	return &meta
}

// RoomInfo is the syncer's view of an active room.
type RoomInfo struct {
	Name            string
	NumParticipants int
	Avatar          *AvatarRoomMetadata
}

// RoomClient lists avatar rooms and tags them through the LiveKit room service.
type RoomClient struct {
	client *lksdk.RoomServiceClient
}

// NewRoomClient creates a room client for the configured LiveKit server.
func NewRoomClient(cfg *config.Config) *RoomClient {
	client := lksdk.NewRoomServiceClient(HTTPURL(cfg.LiveKitURL), cfg.LiveKitAPIKey, cfg.LiveKitAPISecret)
	return &RoomClient{client: client}
}

// ListActiveRooms returns active rooms keyed by name.
func (c *RoomClient) ListActiveRooms(ctx context.Context) (map[string]RoomInfo, error) {
	resp, err := c.client.ListRooms(ctx, &livekit.ListRoomsRequest{})
	if err != nil {
		return nil, err
	}

	rooms := make(map[string]RoomInfo, len(resp.Rooms))
	for _, room := range resp.Rooms {
		rooms[room.Name] = RoomInfo{
			Name:            room.Name,
			NumParticipants: int(room.NumParticipants),
			Avatar:          ParseAvatarRoomMetadata(room.Metadata),
		}
	}
	return rooms, nil
}

// TagAvatarRoom replaces the room metadata with meta.
func (c *RoomClient) TagAvatarRoom(ctx context.Context, room string, meta AvatarRoomMetadata) error {
	raw, err := json.Marshal(meta)
	if err != nil {
		return err
	}
	if _, err := c.client.UpdateRoomMetadata(ctx, &livekit.UpdateRoomMetadataRequest{
		Room:     room,
		Metadata: string(raw),
	}); err != nil {
		return fmt.Errorf("tag room %s: %w", room, err)
	}
	return nil
}
