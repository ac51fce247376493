package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/livekit/protocol/livekit"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-bridge/internal/config"
	"avatar-bridge/internal/domain/session"
	"avatar-bridge/internal/domain/token"
	"avatar-bridge/internal/domain/webhook"
	"avatar-bridge/internal/infrastructure/auth"
	"avatar-bridge/internal/infrastructure/deadletter"
	lk "avatar-bridge/internal/infrastructure/livekit"
	"avatar-bridge/internal/infrastructure/store"
	"avatar-bridge/internal/interfaces/httpserver/handlers"
	"avatar-bridge/internal/interfaces/httpserver/routes"
)

const webhookSecret = "whsec_test"

type fakeLiveKit struct {
	event *livekit.WebhookEvent
	err   error
}

func (f *fakeLiveKit) Receive(*http.Request) (*livekit.WebhookEvent, error) {
	return f.event, f.err
}

type testServer struct {
	handler    http.Handler
	sessions   session.Service
	dispatcher *webhook.Dispatcher
	dlq        *deadletter.MemoryStore
	livekit    *fakeLiveKit
}

type options struct {
	apiKeys   []string
	queueSize int
}

func newTestServer(t *testing.T, opts options) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zerolog.Nop()

	cfg := &config.Config{
		ServiceName:     "avatar-bridge",
		LiveKitURL:      "wss://demo.livekit.cloud",
		ShutdownTimeout: time.Second,
	}

	gen := lk.NewTokenGeneratorWithKeys("APIkey", "test-secret-that-is-long-enough-for-hs256")
	tokens := token.NewService(gen, token.Settings{
		ServerURL:          cfg.LiveKitURL,
		DefaultRoom:        "avatar-room",
		DefaultParticipant: "Avatar User",
		TTL:                time.Hour,
	}, log)
	sessions := session.NewService(store.NewMemoryStore(log), gen, nil, cfg.LiveKitURL, time.Hour, log)

	if opts.queueSize == 0 {
		opts.queueSize = 8
	}
	activity := &webhook.AgentActivity{}
	registry := webhook.NewDefaultRegistry(activity, log)
	dlq := deadletter.NewMemoryStore(10)
	// never started: accepted events stay queued so depth is observable
	dispatcher := webhook.NewDispatcher(webhook.DispatcherConfig{QueueSize: opts.queueSize, Workers: 1}, registry, dlq, log)
	receiver := webhook.NewReceiver(webhook.ReceiverConfig{
		Secret:           webhookSecret,
		RequireSignature: true,
		Tolerance:        5 * time.Minute,
	}, dispatcher, log)

	fake := &fakeLiveKit{}
	provider := handlers.NewProvider(
		handlers.NewSessionHandler(sessions),
		handlers.NewTokenHandler(tokens),
		handlers.NewWebhookHandler(receiver, dispatcher, registry, activity),
		handlers.NewLiveKitHandler(fake, sessions, log),
	)

	validator := &auth.Validator{}
	if len(opts.apiKeys) > 0 {
		validator = auth.NewStaticValidator(opts.apiKeys, nil, log)
	}

	srv := New(cfg, log, routes.NewProvider(provider, validator))
	return &testServer{
		handler:    srv.Handler(),
		sessions:   sessions,
		dispatcher: dispatcher,
		dlq:        dlq,
		livekit:    fake,
	}
}

func (s *testServer) do(method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func signedWebhook(id, event string) ([]byte, map[string]string) {
	body := []byte(fmt.Sprintf(`{"id":%q,"event":%q,"agentId":"agent_1","timestamp":%d,"data":{}}`, id, event, time.Now().Unix()))
	return body, map[string]string{webhook.HeaderSignature: webhook.SignatureHeader(webhookSecret, body)}
}

func TestCoreRoutes(t *testing.T) {
	s := newTestServer(t, options{})

	w := s.do(http.MethodGet, "/health", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = s.do(http.MethodGet, "/nope", nil, nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Endpoint not found", body["error"])
	assert.Contains(t, body["available_endpoints"], "GET /v1/token")
	assert.Contains(t, body["available_endpoints"], "GET /health")
}

func TestTokenRoutes(t *testing.T) {
	s := newTestServer(t, options{})

	t.Run("GET uses defaults", func(t *testing.T) {
		w := s.do(http.MethodGet, "/v1/token", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, "avatar-room", body["room"])
		assert.Equal(t, "Avatar User", body["participant"])
		assert.Equal(t, "Avatar User", body["identity"])
		assert.Equal(t, float64(3600), body["expires_in"])
		assert.Equal(t, "wss://demo.livekit.cloud", body["server_url"])
		assert.NotEmpty(t, body["token"])
	})

	t.Run("GET with explicit empty room", func(t *testing.T) {
		w := s.do(http.MethodGet, "/v1/token?room=", nil, nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Missing required parameters: room and participant")
	})

	t.Run("POST body", func(t *testing.T) {
		w := s.do(http.MethodPost, "/v1/token", []byte(`{"room":"demo","participant":"Alice","identity":"alice-1"}`), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := decode(t, w)
		assert.Equal(t, "demo", body["room"])
		assert.Equal(t, "alice-1", body["identity"])
	})

	t.Run("POST empty body", func(t *testing.T) {
		w := s.do(http.MethodPost, "/v1/token", nil, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "avatar-room", decode(t, w)["room"])
	})

	t.Run("POST null room", func(t *testing.T) {
		w := s.do(http.MethodPost, "/v1/token", []byte(`{"room":null,"participant":"Alice"}`), nil)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "Missing required parameters: room and participant")
	})

	t.Run("POST invalid JSON", func(t *testing.T) {
		w := s.do(http.MethodPost, "/v1/token", []byte(`{"room":`), nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("config", func(t *testing.T) {
		w := s.do(http.MethodGet, "/v1/config", nil, nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "wss://demo.livekit.cloud", body["livekit_url"])
		assert.Equal(t, float64(3600), body["token_expiry_seconds"])
	})
}

func TestSessionRoutes_Ownership(t *testing.T) {
	s := newTestServer(t, options{apiKeys: []string{"key-alice", "key-bob"}})
	alice := map[string]string{auth.HeaderAPIKey: "key-alice"}
	bob := map[string]string{auth.HeaderAPIKey: "key-bob"}

	w := s.do(http.MethodPost, "/v1/sessions", nil, nil)
	require.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(http.MethodPost, "/v1/sessions", []byte(`{"avatar_id":"A33NZN6384"}`), alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	id := created["id"].(string)
	assert.Equal(t, "avatar.session", created["object"])
	assert.Equal(t, "A33NZN6384", created["avatar_id"])
	assert.NotNil(t, created["client_secret"])

	w = s.do(http.MethodGet, "/v1/sessions/"+id, nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	assert.Nil(t, got["client_secret"])
	assert.Equal(t, "created", got["status"])

	w = s.do(http.MethodGet, "/v1/sessions/"+id, nil, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = s.do(http.MethodDelete, "/v1/sessions/"+id, nil, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/v1/sessions", nil, bob)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["data"])

	w = s.do(http.MethodDelete, "/v1/sessions/"+id, nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["deleted"])

	w = s.do(http.MethodGet, "/v1/sessions/"+id, nil, alice)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWebhookRoutes(t *testing.T) {
	s := newTestServer(t, options{queueSize: 2, apiKeys: []string{"admin"}})

	body, headers := signedWebhook("evt_1", webhook.EventRoomJoin)
	w := s.do(http.MethodPost, "/v1/webhooks", body, headers)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "accepted", decode(t, w)["status"])
	assert.Equal(t, 1, s.dispatcher.QueueDepth())

	w = s.do(http.MethodPost, "/v1/webhooks", body, headers)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["duplicate"])
	assert.Equal(t, 1, s.dispatcher.QueueDepth())

	w = s.do(http.MethodPost, "/v1/webhooks", body, map[string]string{webhook.HeaderSignature: "sha256=00"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	huge := bytes.Repeat([]byte("a"), 1<<20+1)
	w = s.do(http.MethodPost, "/v1/webhooks", huge, nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Contains(t, w.Body.String(), "payload_too_large_error")

	bad := []byte(`not json`)
	w = s.do(http.MethodPost, "/v1/webhooks", bad, map[string]string{webhook.HeaderSignature: webhook.SignatureHeader(webhookSecret, bad)})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body2, headers2 := signedWebhook("evt_2", webhook.EventChatPush)
	require.Equal(t, http.StatusAccepted, s.do(http.MethodPost, "/v1/webhooks", body2, headers2).Code)

	body3, headers3 := signedWebhook("evt_3", webhook.EventRoomLeave)
	w = s.do(http.MethodPost, "/v1/webhooks", body3, headers3)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = s.do(http.MethodGet, "/v1/webhooks/stats", nil, map[string]string{"Authorization": "Bearer admin"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), decode(t, w)["queue_depth"])
}

func TestDeadLetterRoutes(t *testing.T) {
	s := newTestServer(t, options{})
	ctx := context.Background()

	payload, _ := signedWebhook("evt_dead", webhook.EventChatPush)
	require.NoError(t, s.dlq.Put(ctx, &webhook.DeadLetter{
		ID:        "dlq_1",
		EventID:   "evt_dead",
		EventType: webhook.EventChatPush,
		Payload:   payload,
		Error:     "handler failed",
		Attempts:  3,
		FailedAt:  time.Now(),
	}))

	w := s.do(http.MethodGet, "/v1/webhooks/dead-letters?limit=abc", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/v1/webhooks/dead-letters", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]any)
	require.Len(t, data, 1)
	item := data[0].(map[string]any)
	assert.Equal(t, "dlq_1", item["id"])
	assert.Equal(t, "handler failed", item["error"])
	assert.NotContains(t, item, "payload")

	w = s.do(http.MethodPost, "/v1/webhooks/dead-letters/dlq_1/replay", nil, nil)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	assert.Equal(t, "evt_dead", decode(t, w)["event_id"])
	assert.Equal(t, 1, s.dispatcher.QueueDepth())
	assert.Equal(t, 0, s.dlq.Len())

	w = s.do(http.MethodPost, "/v1/webhooks/dead-letters/dlq_1/replay", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLiveKitWebhookRoute(t *testing.T) {
	s := newTestServer(t, options{apiKeys: []string{"admin"}})
	ctx := context.Background()

	sess, err := s.sessions.CreateSession(ctx, &session.CreateSessionRequest{}, "user-1")
	require.NoError(t, err)

	s.livekit.event = &livekit.WebhookEvent{
		Event:       handlers.LiveKitParticipantJoined,
		Room:        &livekit.Room{Name: sess.Room},
		Participant: &livekit.ParticipantInfo{Identity: "avatar-agent", Kind: livekit.ParticipantInfo_AGENT},
	}
	w := s.do(http.MethodPost, "/v1/webhooks/livekit", []byte(`{}`), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, handlers.ActionIgnored, decode(t, w)["action"])

	s.livekit.event.Participant = &livekit.ParticipantInfo{Identity: "user-1"}
	w = s.do(http.MethodPost, "/v1/webhooks/livekit", []byte(`{}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handlers.ActionConnected, decode(t, w)["action"])

	got, err := s.sessions.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, session.StateConnected, got.State)

	s.livekit.event = &livekit.WebhookEvent{Event: handlers.LiveKitRoomFinished, Room: &livekit.Room{Name: sess.Room}}
	w = s.do(http.MethodPost, "/v1/webhooks/livekit", []byte(`{}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handlers.ActionEnded, decode(t, w)["action"])

	_, err = s.sessions.GetSession(ctx, sess.ID)
	assert.ErrorIs(t, err, session.ErrNotFound)

	s.livekit.event = &livekit.WebhookEvent{Event: handlers.LiveKitRoomFinished, Room: &livekit.Room{Name: "room_unknown"}}
	w = s.do(http.MethodPost, "/v1/webhooks/livekit", []byte(`{}`), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, handlers.ActionIgnored, decode(t, w)["action"])

	s.livekit.event, s.livekit.err = nil, fmt.Errorf("bad auth")
	w = s.do(http.MethodPost, "/v1/webhooks/livekit", []byte(`{}`), nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
