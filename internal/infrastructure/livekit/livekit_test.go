package livekit

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"path"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/livekit/protocol/livekit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"

	"avatar-bridge/internal/config"
	"avatar-bridge/internal/domain/avatar"
	"avatar-bridge/internal/domain/token"
)

const (
	testKey    = "APItestkey"
	testSecret = "test-secret-that-is-long-enough-for-hs256"
)

func parse(t *testing.T, raw string) jwt.MapClaims {
	t.Helper()
	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (interface{}, error) {
		return []byte(testSecret), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	return claims
}

func TestTokenGenerator_Sign(t *testing.T) {
	gen := NewTokenGeneratorWithKeys(testKey, testSecret)

	raw, err := gen.Sign(token.Grant{
		Room:     "avatar-room",
		Identity: "alice",
		Name:     "Alice",
		TTL:      time.Hour,
	})
	require.NoError(t, err)

	claims := parse(t, raw)
	assert.Equal(t, testKey, claims["iss"])
	assert.Equal(t, "alice", claims["sub"])
	assert.Equal(t, "Alice", claims["name"])

	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp.Time, 5*time.Second)

	video, ok := claims["video"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "avatar-room", video["room"])
	assert.Equal(t, true, video["roomJoin"])
	assert.Equal(t, true, video["canPublish"])
	assert.Equal(t, true, video["canSubscribe"])
	assert.Equal(t, true, video["canPublishData"])
}

func TestTokenGenerator_Generate(t *testing.T) {
	gen := NewTokenGeneratorWithKeys(testKey, testSecret)
	raw, err := gen.Generate("room_abc", "user_1", 10*time.Minute)
	require.NoError(t, err)

	claims := parse(t, raw)
	assert.Equal(t, "user_1", claims["sub"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(10*time.Minute), exp.Time, 5*time.Second)
}

func TestHTTPURL(t *testing.T) {
	assert.Equal(t, "https://demo.livekit.cloud", HTTPURL("wss://demo.livekit.cloud"))
	assert.Equal(t, "http://localhost:7880", HTTPURL("ws://localhost:7880"))
	assert.Equal(t, "https://x", HTTPURL("https://x"))
}

func TestEncodeAudioPacket(t *testing.T) {
	pkt := encodeAudioPacket(avatar.Frame{Seq: 258, Audio: []byte{9, 8}})
	assert.Equal(t, []byte{0, 0, 0, 0, 0, 0, 1, 2, 9, 8}, pkt)
}

func TestWebhookVerifier(t *testing.T) {
	event := &livekit.WebhookEvent{
		Event: webhookEventParticipantJoined,
		Room:  &livekit.Room{Name: "room_abc"},
	}
	body, err := protojson.Marshal(event)
	require.NoError(t, err)

	t.Run("unsigned rejected when required", func(t *testing.T) {
		v := NewWebhookVerifier(&config.Config{LiveKitAPIKey: "APIkey", LiveKitAPISecret: "secret", LiveKitWebhookRequireAuth: true})
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/livekit", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/webhook+json")
		_, err := v.Receive(req)
		assert.Error(t, err)
	})

	t.Run("decoded when auth disabled", func(t *testing.T) {
		v := NewWebhookVerifier(&config.Config{LiveKitAPIKey: "APIkey", LiveKitAPISecret: "secret"})
		req := httptest.NewRequest(http.MethodPost, "/v1/webhooks/livekit", bytes.NewReader(body))
		got, err := v.Receive(req)
		require.NoError(t, err)
		assert.Equal(t, webhookEventParticipantJoined, got.GetEvent())
		assert.Equal(t, "room_abc", got.GetRoom().GetName())
	})
}

const webhookEventParticipantJoined = "participant_joined"

func TestParseAvatarRoomMetadata(t *testing.T) {
	assert.Nil(t, ParseAvatarRoomMetadata(""))
	assert.Nil(t, ParseAvatarRoomMetadata("plain text"))
	assert.Nil(t, ParseAvatarRoomMetadata(`{"avatar_id":"A1"}`))
	assert.Equal(t, &AvatarRoomMetadata{SessionID: "sess_1", AvatarID: "A1"},
		ParseAvatarRoomMetadata(`{"avatar_session_id":"sess_1","avatar_id":"A1"}`))
}

func TestRoomClient(t *testing.T) {
	var updated *livekit.UpdateRoomMetadataRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var out proto.Message
		switch path.Base(r.URL.Path) {
		case "ListRooms":
			out = &livekit.ListRoomsResponse{Rooms: []*livekit.Room{
				{Name: "tagged", NumParticipants: 2, Metadata: `{"avatar_session_id":"sess_1"}`},
				{Name: "bare", NumParticipants: 1},
			}}
		case "UpdateRoomMetadata":
			req := &livekit.UpdateRoomMetadataRequest{}
			require.NoError(t, proto.Unmarshal(body, req))
			updated = req
			out = &livekit.Room{Name: req.Room, Metadata: req.Metadata}
		default:
			http.NotFound(w, r)
			return
		}
		raw, err := proto.Marshal(out)
		require.NoError(t, err)
		w.Header().Set("Content-Type", "application/protobuf")
		_, _ = w.Write(raw)
	}))
	defer srv.Close()

	client := NewRoomClient(&config.Config{LiveKitURL: srv.URL, LiveKitAPIKey: testKey, LiveKitAPISecret: testSecret})
	ctx := context.Background()

	rooms, err := client.ListActiveRooms(ctx)
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, 2, rooms["tagged"].NumParticipants)
	require.NotNil(t, rooms["tagged"].Avatar)
	assert.Equal(t, "sess_1", rooms["tagged"].Avatar.SessionID)
	assert.Nil(t, rooms["bare"].Avatar)

	require.NoError(t, client.TagAvatarRoom(ctx, "bare", AvatarRoomMetadata{SessionID: "sess_2", AvatarID: "A33NZN6384"}))
	require.NotNil(t, updated)
	assert.Equal(t, "bare", updated.Room)
	assert.JSONEq(t, `{"avatar_session_id":"sess_2","avatar_id":"A33NZN6384"}`, updated.Metadata)
}
