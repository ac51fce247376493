package wsclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"avatar-bridge/internal/domain/audio"
)

type received struct {
	messageType int
	data        []byte
}

func echoServer(t *testing.T, out chan<- received) string {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				close(out)
				return
			}
			out <- received{messageType: mt, data: data}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collect(t *testing.T, in <-chan received) []received {
	t.Helper()
	var msgs []received
	timeout := time.After(2 * time.Second)
	for {
		select {
		case m, ok := <-in:
			if !ok {
				return msgs
			}
			msgs = append(msgs, m)
		case <-timeout:
			t.Fatal("timed out waiting for messages")
		}
	}
}

func TestStreamPCM_ChunksThenEnd(t *testing.T) {
	out := make(chan received, 16)
	url := echoServer(t, out)

	client, err := Dial(context.Background(), url, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 3200, client.ChunkBytes())

	pcm := make([]byte, 3200*2+100)
	require.NoError(t, client.StreamPCM(context.Background(), pcm, false))
	require.NoError(t, client.SendInterrupt())
	require.NoError(t, client.Close())

	msgs := collect(t, out)
	require.Len(t, msgs, 5)
	assert.Equal(t, websocket.BinaryMessage, msgs[0].messageType)
	assert.Len(t, msgs[0].data, 3200)
	assert.Len(t, msgs[1].data, 3200)
	assert.Len(t, msgs[2].data, 100)
	assert.Equal(t, websocket.TextMessage, msgs[3].messageType)
	assert.JSONEq(t, `{"type":"end"}`, string(msgs[3].data))
	assert.JSONEq(t, `{"type":"interrupt"}`, string(msgs[4].data))
}

func TestGestureRelay(t *testing.T) {
	out := make(chan received, 4)
	url := echoServer(t, out)

	relay := NewGestureRelay(url, zerolog.Nop())
	require.NoError(t, relay.TriggerGesture(context.Background(), "laugh_react"))

	msgs := collect(t, out)
	require.Len(t, msgs, 1)
	assert.Equal(t, websocket.TextMessage, msgs[0].messageType)
	assert.JSONEq(t, `{"type":"gesture","action":"laugh_react"}`, string(msgs[0].data))

	bad := NewGestureRelay("ws://127.0.0.1:1/ws", zerolog.Nop())
	assert.Error(t, bad.TriggerGesture(context.Background(), "laugh_react"))
}

func TestStreamPCM_CustomChunk(t *testing.T) {
	out := make(chan received, 16)
	url := echoServer(t, out)

	client, err := Dial(context.Background(), url, zerolog.Nop(), WithChunk(20*time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, 640, client.ChunkBytes())

	require.NoError(t, client.StreamPCM(context.Background(), make([]byte, 1280), true))
	require.NoError(t, client.Close())

	msgs := collect(t, out)
	require.Len(t, msgs, 3)
}

func TestStreamPCM_Cancelled(t *testing.T) {
	out := make(chan received, 64)
	url := echoServer(t, out)

	client, err := Dial(context.Background(), url, zerolog.Nop())
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = client.StreamPCM(ctx, make([]byte, 3200*4), true)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDial_Unreachable(t *testing.T) {
	_, err := Dial(context.Background(), "ws://127.0.0.1:1/ws", zerolog.Nop())
	assert.Error(t, err)
}

func writeWAV(t *testing.T, rate, channels int, data []int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "clip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	enc := wav.NewEncoder(f, rate, 16, channels, 1)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: rate},
		Data:           data,
		SourceBitDepth: 16,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
	require.NoError(t, f.Close())
	return path
}

func TestLoadWAV(t *testing.T) {
	t.Run("mono 16k passes through", func(t *testing.T) {
		path := writeWAV(t, 16000, 1, []int{100, -100, 200, -200})
		pcm, err := LoadWAV(path, audio.L16Mono16K)
		require.NoError(t, err)
		assert.Equal(t, []int16{100, -100, 200, -200}, audio.Samples(pcm))
	})

	t.Run("stereo 32k is downmixed and resampled", func(t *testing.T) {
		data := make([]int, 0, 32000*2)
		for i := 0; i < 32000; i++ {
			data = append(data, 1000, 3000)
		}
		path := writeWAV(t, 32000, 2, data)
		pcm, err := LoadWAV(path, audio.L16Mono16K)
		require.NoError(t, err)

		samples := audio.Samples(pcm)
		assert.InDelta(t, 16000, len(samples), 1600)
		require.NotEmpty(t, samples)
		assert.InDelta(t, 2000, int(samples[len(samples)/2]), 100)
	})

	t.Run("not a wav", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.wav")
		require.NoError(t, os.WriteFile(path, []byte("not audio at all"), 0o600))
		_, err := LoadWAV(path, audio.L16Mono16K)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadWAV(filepath.Join(t.TempDir(), "nope.wav"), audio.L16Mono16K)
		assert.Error(t, err)
	})
}
