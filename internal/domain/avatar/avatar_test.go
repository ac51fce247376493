package avatar

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateModelPath(t *testing.T) {
	dir := t.TempDir()
	model := filepath.Join(dir, "einstein.imx")
	require.NoError(t, os.WriteFile(model, []byte("model"), 0o600))
	other := filepath.Join(dir, "einstein.zip")
	require.NoError(t, os.WriteFile(other, []byte("zip"), 0o600))

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "valid", path: model},
		{name: "empty", path: "", wantErr: true},
		{name: "missing", path: filepath.Join(dir, "nope.imx"), wantErr: true},
		{name: "directory", path: dir, wantErr: true},
		{name: "wrong extension", path: other, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateModelPath(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCredentials(t *testing.T) {
	_, err := Credentials{}.Validate()
	assert.Error(t, err)

	warnings, err := Credentials{APISecret: "sk_bh_abcdef123"}.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	warnings, err = Credentials{APISecret: "abcdef"}.Validate()
	require.NoError(t, err)
	assert.Len(t, warnings, 1)

	warnings, err = Credentials{Token: "jwt"}.Validate()
	require.NoError(t, err)
	assert.Empty(t, warnings)

	assert.Equal(t, "sk_bh_***", Credentials{APISecret: "sk_bh_abcdef123"}.Mask())
	assert.Equal(t, "***", Credentials{Token: "short"}.Mask())
}

func TestFPSController_Wait(t *testing.T) {
	c := NewFPSController(25)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	assert.Equal(t, 40*time.Millisecond, c.Interval())
	assert.Equal(t, time.Duration(0), c.Wait())

	now = now.Add(10 * time.Millisecond)
	assert.Equal(t, 30*time.Millisecond, c.Wait())

	// fell far behind: schedule resets instead of bursting
	now = now.Add(time.Second)
	assert.Equal(t, time.Duration(0), c.Wait())
}

func TestFPSController_AverageFPS(t *testing.T) {
	c := NewFPSController(25)
	now := time.Unix(0, 0)
	c.now = func() time.Time { return now }

	assert.Zero(t, c.AverageFPS())
	for i := 0; i < 11; i++ {
		c.Wait()
		now = now.Add(40 * time.Millisecond)
	}
	assert.InDelta(t, 25, c.AverageFPS(), 0.01)

	c.Reset()
	assert.Zero(t, c.AverageFPS())
}

func collect(t *testing.T, frames <-chan Frame, n int) []Frame {
	t.Helper()
	out := make([]Frame, 0, n)
	timeout := time.After(2 * time.Second)
	for len(out) < n {
		select {
		case f, ok := <-frames:
			if !ok {
				return out
			}
			out = append(out, f)
		case <-timeout:
			t.Fatalf("timed out after %d of %d frames", len(out), n)
		}
	}
	return out
}

func TestLoopback_SlicesAudioPerFrame(t *testing.T) {
	rt := NewLoopback(LoopbackConfig{FPS: 25}, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, rt.Start(ctx))
	defer rt.Close(ctx)

	// 100 ms at 16 kHz -> two 40 ms frames, a padded tail and end of speech
	require.NoError(t, rt.PushAudio(ctx, make([]byte, 3200), SampleRate, true))

	frames := collect(t, rt.Frames(), 4)
	require.Len(t, frames, 4)
	for i, f := range frames[:3] {
		assert.Len(t, f.Audio, 1280)
		assert.Equal(t, uint64(i+1), f.Seq)
		assert.False(t, f.HasImage())
	}
	assert.True(t, frames[3].EndOfSpeech)
	assert.False(t, frames[3].HasAudio())
}

func TestLoopback_ResamplesInput(t *testing.T) {
	rt := NewLoopback(LoopbackConfig{FPS: 25}, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, rt.Start(ctx))
	defer rt.Close(ctx)

	// 400 ms at 48 kHz, in 40 ms pushes, comes out as about ten 16 kHz frames
	for i := 0; i < 10; i++ {
		require.NoError(t, rt.PushAudio(ctx, make([]byte, 3840), 48000, false))
	}
	require.NoError(t, rt.Flush(ctx))

	audioBytes := 0
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-rt.Frames():
			if f.EndOfSpeech {
				assert.InDelta(t, 12800, audioBytes, 1280)
				return
			}
			assert.LessOrEqual(t, len(f.Audio), 1280)
			audioBytes += len(f.Audio)
		case <-timeout:
			t.Fatal("no end of speech frame")
		}
	}
}

func TestLoopback_InterruptDropsPending(t *testing.T) {
	rt := NewLoopback(LoopbackConfig{FPS: 25}, zerolog.Nop())
	ctx := context.Background()
	require.NoError(t, rt.Start(ctx))
	defer rt.Close(ctx)

	require.NoError(t, rt.PushAudio(ctx, make([]byte, 1280*10), SampleRate, false))
	// the run loop may already hold one frame waiting on the channel
	require.Eventually(t, func() bool { return rt.Pending() >= 8 }, time.Second, 5*time.Millisecond)

	rt.Interrupt()
	assert.Equal(t, 0, rt.Pending())

	require.NoError(t, rt.Flush(ctx))
	received := 0
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f := <-rt.Frames():
			received++
			if f.EndOfSpeech {
				assert.LessOrEqual(t, received, 2, "at most one in-flight frame survives")
				return
			}
		case <-timeout:
			t.Fatal("no end of speech frame")
		}
	}
}

func TestLoopback_Lifecycle(t *testing.T) {
	rt := NewLoopback(LoopbackConfig{}, zerolog.Nop())
	ctx := context.Background()

	assert.ErrorIs(t, rt.PushAudio(ctx, make([]byte, 10), SampleRate, false), ErrNotStarted)
	w, h := rt.FrameSize()
	assert.Equal(t, 512, w)
	assert.Equal(t, 512, h)

	require.NoError(t, rt.Start(ctx))
	require.NoError(t, rt.Start(ctx))
	require.NoError(t, rt.Close(ctx))
	require.NoError(t, rt.Close(ctx))

	_, ok := <-rt.Frames()
	assert.False(t, ok, "frames channel closed")
	assert.ErrorIs(t, rt.PushAudio(ctx, make([]byte, 10), SampleRate, false), ErrRuntimeClosed)
	assert.ErrorIs(t, rt.Start(ctx), ErrRuntimeClosed)
}

func TestLoopback_TriggerGesture(t *testing.T) {
	rt := NewLoopback(LoopbackConfig{}, zerolog.Nop())
	ctx := context.Background()

	require.NoError(t, rt.TriggerGesture(ctx, "mini_wave_hello"))
	require.NoError(t, rt.TriggerGesture(ctx, " laugh_react "))
	assert.ErrorIs(t, rt.TriggerGesture(ctx, "  "), ErrEmptyAction)
	assert.Equal(t, []string{"mini_wave_hello", "laugh_react"}, rt.Gestures())

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.ErrorIs(t, rt.TriggerGesture(cancelled, "x"), context.Canceled)

	require.NoError(t, rt.Close(ctx))
	assert.ErrorIs(t, rt.TriggerGesture(ctx, "x"), ErrRuntimeClosed)
}
