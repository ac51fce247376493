package wsserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-bridge/internal/domain/streamer"
)

type message struct {
	binary bool
	data   string
}

type recordingSink struct {
	mu       sync.Mutex
	messages []message
	clients  int
}

func (r *recordingSink) HandleMessage(binary bool, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message{binary: binary, data: string(data)})
}

func (r *recordingSink) ClientConnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients++
}

func (r *recordingSink) ClientDisconnected() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients--
}

func (r *recordingSink) Stats() streamer.Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return streamer.Stats{Clients: int64(r.clients)}
}

func (r *recordingSink) snapshot() ([]message, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]message(nil), r.messages...), r.clients
}

func TestServer_ForwardsMessages(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &recordingSink{}
	srv := httptest.NewServer(New(Config{}, sink, zerolog.Nop()).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte{1, 2, 3, 4}))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"end"}`)))

	require.Eventually(t, func() bool {
		msgs, clients := sink.snapshot()
		return len(msgs) == 2 && clients == 1
	}, 2*time.Second, 10*time.Millisecond)

	msgs, _ := sink.snapshot()
	assert.Equal(t, message{binary: true, data: "\x01\x02\x03\x04"}, msgs[0])
	assert.Equal(t, message{binary: false, data: `{"type":"end"}`}, msgs[1])

	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	require.Eventually(t, func() bool {
		_, clients := sink.snapshot()
		return clients == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServer_HealthAndStats(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(Config{}, &recordingSink{}, zerolog.Nop()).Handler()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/stats", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "clients")
}

func TestServer_RejectsPlainHTTP(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := New(Config{}, &recordingSink{}, zerolog.Nop()).Handler()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
