package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd, err := newRootCmd()
	require.NoError(t, err)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err = cmd.Execute()
	return out.String(), err
}

func TestDiagnose_FailsWithoutCredentials(t *testing.T) {
	t.Setenv("BITHUMAN_API_SECRET", "")
	t.Setenv("LIVEKIT_API_KEY", "")
	t.Setenv("LIVEKIT_API_SECRET", "")
	t.Setenv("LIVEKIT_URL", "")

	out, err := execute(t, "diagnose")
	var exit *exitError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, 1, exit.code)
	assert.Contains(t, out, "FAIL")
}

func TestDiagnose_Passes(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer api.Close()

	model := filepath.Join(t.TempDir(), "einstein.imx")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o600))

	_, err := execute(t, "diagnose",
		"--api-secret", "sk_bh_test",
		"--api-url", api.URL,
		"--avatar-model", model,
		"--livekit-url", "wss://demo.livekit.cloud",
		"--livekit-api-key", "APIdemo",
		"--livekit-api-secret", "secret",
	)
	assert.NoError(t, err)
}

func TestToken_PrintsJSON(t *testing.T) {
	out, err := execute(t, "token",
		"--room", "demo",
		"--identity", "alice",
		"--livekit-url", "wss://demo.livekit.cloud",
		"--livekit-api-key", "APIdemo",
		"--livekit-api-secret", "test-secret-that-is-long-enough-for-hs256",
	)
	require.NoError(t, err)

	var tok map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &tok))
	assert.Equal(t, "demo", tok["room"])
	assert.Equal(t, "alice", tok["identity"])
	assert.Equal(t, "Avatar User", tok["participant"])
	assert.NotEmpty(t, tok["token"])
}

func TestToken_RequiresKeys(t *testing.T) {
	t.Setenv("LIVEKIT_API_KEY", "")
	t.Setenv("LIVEKIT_API_SECRET", "")
	_, err := execute(t, "token")
	assert.Error(t, err)
}

// recordingStreamer collects the text frames of one WebSocket connection.
func recordingStreamer(t *testing.T) (url string, frames func() []string) {
	t.Helper()
	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			got = append(got, string(data))
			mu.Unlock()
		}
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http"), func() []string {
		<-done
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), got...)
	}
}

func TestInterrupt_SendsControlMessage(t *testing.T) {
	url, frames := recordingStreamer(t)
	_, err := execute(t, "interrupt", "--url", url)
	require.NoError(t, err)

	got := frames()
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"type":"interrupt"}`, got[0])
}

func TestGesture_SendsControlMessage(t *testing.T) {
	url, frames := recordingStreamer(t)
	_, err := execute(t, "gesture", "mini_wave_hello", "--url", url)
	require.NoError(t, err)

	got := frames()
	require.Len(t, got, 1)
	assert.JSONEq(t, `{"type":"gesture","action":"mini_wave_hello"}`, got[0])
}

func TestGesture_RequiresAction(t *testing.T) {
	_, err := execute(t, "gesture")
	assert.Error(t, err)
}

func TestStream_MissingFile(t *testing.T) {
	_, err := execute(t, "stream", filepath.Join(t.TempDir(), "missing.wav"))
	assert.Error(t, err)
}
