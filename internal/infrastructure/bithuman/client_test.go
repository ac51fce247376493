package bithuman

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_Health(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"healthy","version":"1.4.0"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "sk_bh_secret", time.Second)
	status, err := c.Health(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer sk_bh_secret", gotAuth)
	assert.Equal(t, "/health", gotPath)
	assert.Equal(t, "healthy", status.Status)
	assert.Equal(t, "1.4.0", status.Version)
}

func TestClient_HealthNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL, "bad", time.Second).Health(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestClient_HealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "", 200*time.Millisecond).Health(context.Background())
	assert.Error(t, err)
}

func TestNewClient_DefaultBaseURL(t *testing.T) {
	assert.Equal(t, DefaultBaseURL, NewClient("", "", 0).BaseURL())
}

func TestClient_Gestures(t *testing.T) {
	var gotSecret, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotSecret = r.Header.Get("api-secret")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/v1/dynamics/A91XMB7113":
			_, _ = w.Write([]byte(`{"success":true,"data":{"gestures":{"mini_wave_hello":"https://cdn/wave.mp4","laugh_react":"https://cdn/laugh.mp4"}}}`))
		case "/v1/dynamics/empty":
			_, _ = w.Write([]byte(`{"success":false}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_bh_secret", time.Second)
	gestures, err := c.Gestures(context.Background(), "A91XMB7113")
	require.NoError(t, err)
	assert.Equal(t, "sk_bh_secret", gotSecret)
	assert.Equal(t, "/v1/dynamics/A91XMB7113", gotPath)
	assert.Equal(t, map[string]string{
		"mini_wave_hello": "https://cdn/wave.mp4",
		"laugh_react":     "https://cdn/laugh.mp4",
	}, gestures)

	_, err = c.Gestures(context.Background(), "empty")
	assert.ErrorContains(t, err, "success=false")

	_, err = c.Gestures(context.Background(), "missing")
	assert.ErrorContains(t, err, "404")

	_, err = c.Gestures(context.Background(), " ")
	assert.Error(t, err)
}
