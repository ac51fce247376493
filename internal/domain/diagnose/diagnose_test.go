package diagnose

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func goodInputs(t *testing.T) Inputs {
	t.Helper()
	model := filepath.Join(t.TempDir(), "einstein.imx")
	require.NoError(t, os.WriteFile(model, []byte("imx"), 0o600))
	return Inputs{
		BithumanAPISecret: "sk_bh_secret",
		AvatarModel:       model,
		LiveKitURL:        "wss://demo.livekit.cloud",
		LiveKitAPIKey:     "APIabc",
		LiveKitAPISecret:  "secret",
		OpenAIAPIKey:      "sk-proj-123",
	}
}

func healthy(context.Context) error { return nil }

func TestRun_AllPass(t *testing.T) {
	report := Run(context.Background(), goodInputs(t), healthy)
	require.Len(t, report.Results, 4)
	for _, res := range report.Results {
		assert.Equal(t, StatusPass, res.Status, res.Name)
	}
	assert.True(t, report.Passed())
	assert.Equal(t, 0, report.ExitCode())
}

func TestCheckLiveKit(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(in *Inputs)
		want   Status
	}{
		{name: "valid", mutate: func(in *Inputs) {}, want: StatusPass},
		{name: "missing key", mutate: func(in *Inputs) { in.LiveKitAPIKey = "" }, want: StatusFail},
		{name: "key prefix", mutate: func(in *Inputs) { in.LiveKitAPIKey = "key123" }, want: StatusFail},
		{name: "missing secret", mutate: func(in *Inputs) { in.LiveKitAPISecret = "" }, want: StatusFail},
		{name: "missing url", mutate: func(in *Inputs) { in.LiveKitURL = "" }, want: StatusFail},
		{name: "ws localhost", mutate: func(in *Inputs) { in.LiveKitURL = "ws://localhost:7880" }, want: StatusWarn},
		{name: "ws remote", mutate: func(in *Inputs) { in.LiveKitURL = "ws://demo.livekit.cloud" }, want: StatusFail},
		{name: "https", mutate: func(in *Inputs) { in.LiveKitURL = "https://demo.livekit.cloud" }, want: StatusFail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := goodInputs(t)
			tt.mutate(&in)
			assert.Equal(t, tt.want, CheckLiveKit(in).Status)
		})
	}
}

func TestCheckAvatar(t *testing.T) {
	t.Run("missing model file fails", func(t *testing.T) {
		res := CheckAvatar(Inputs{AvatarModel: filepath.Join(t.TempDir(), "nope.imx")})
		assert.Equal(t, StatusFail, res.Status)
	})

	t.Run("default avatar id warns", func(t *testing.T) {
		res := CheckAvatar(Inputs{})
		assert.Equal(t, StatusWarn, res.Status)
		assert.Contains(t, res.Messages[0], DefaultAvatarID)
	})

	t.Run("custom avatar id passes", func(t *testing.T) {
		assert.Equal(t, StatusPass, CheckAvatar(Inputs{AvatarID: "B12XYZ"}).Status)
	})
}

func TestCheckBithumanAPI(t *testing.T) {
	ctx := context.Background()

	t.Run("missing secret", func(t *testing.T) {
		called := false
		res := CheckBithumanAPI(ctx, Inputs{}, func(context.Context) error {
			called = true
			return nil
		})
		assert.Equal(t, StatusFail, res.Status)
		assert.False(t, called, "health is not called without a secret")
	})

	t.Run("unusual prefix warns", func(t *testing.T) {
		res := CheckBithumanAPI(ctx, Inputs{BithumanAPISecret: "abc"}, healthy)
		assert.Equal(t, StatusWarn, res.Status)
	})

	t.Run("unreachable fails", func(t *testing.T) {
		res := CheckBithumanAPI(ctx, Inputs{BithumanAPISecret: "sk_bh_x"}, func(context.Context) error {
			return errors.New("status 401")
		})
		assert.Equal(t, StatusFail, res.Status)
		assert.Contains(t, res.Messages[len(res.Messages)-1], "401")
	})

	t.Run("no health check", func(t *testing.T) {
		assert.Equal(t, StatusPass, CheckBithumanAPI(ctx, Inputs{BithumanAPISecret: "sk_bh_x"}, nil).Status)
	})
}

func TestCheckOpenAI_WarnsOnly(t *testing.T) {
	assert.Equal(t, StatusWarn, CheckOpenAI(Inputs{}).Status)
	assert.Equal(t, StatusWarn, CheckOpenAI(Inputs{OpenAIAPIKey: "xyz"}).Status)
	assert.Equal(t, StatusPass, CheckOpenAI(Inputs{OpenAIAPIKey: "sk-abc"}).Status)
}

func TestReport_Write(t *testing.T) {
	in := goodInputs(t)
	in.LiveKitAPIKey = ""
	report := Run(context.Background(), in, healthy)

	var buf bytes.Buffer
	report.Write(&buf)

	assert.False(t, report.Passed())
	assert.Equal(t, 1, report.ExitCode())
	assert.Contains(t, buf.String(), "[FAIL] LiveKit config")
	assert.Contains(t, buf.String(), "LIVEKIT_API_KEY missing")
	assert.Contains(t, buf.String(), "some checks failed")
}
