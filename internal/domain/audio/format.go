package audio

import (
	"fmt"
	"time"
)

const (
	// L16Mono16K represents audio/L16; rate=16000; channels=1
	L16Mono16K Format = iota
	// L16Mono24K represents audio/L16; rate=24000; channels=1
	L16Mono24K
	// L16Mono48K represents audio/L16; rate=48000; channels=1
	L16Mono48K
)

// BytesPerSample is the width of one L16 mono sample.
const BytesPerSample = 2

// Format represents an audio format configuration.
type Format int

// FormatForRate returns the format with the given sample rate.
func FormatForRate(rate int) (Format, error) {
	switch rate {
	case 16000:
		return L16Mono16K, nil
	case 24000:
		return L16Mono24K, nil
	case 48000:
		return L16Mono48K, nil
	}
	return 0, fmt.Errorf("audio: unsupported sample rate %d", rate)
}

// SampleRate returns the sample rate in Hz for this format, or 0 for a
// value not produced by FormatForRate or the constants above.
func (f Format) SampleRate() int {
	switch f {
	case L16Mono16K:
		return 16000
	case L16Mono24K:
		return 24000
	case L16Mono48K:
		return 48000
	}
	return 0
}

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f.SampleRate() != 0
}

// SamplesInDuration returns the number of samples in the given duration.
func (f Format) SamplesInDuration(d time.Duration) int {
	return int(time.Duration(f.SampleRate()) * d / time.Second)
}

// BytesInDuration returns the number of bytes in the given duration.
func (f Format) BytesInDuration(d time.Duration) int {
	return f.SamplesInDuration(d) * BytesPerSample
}

// Duration returns the playback duration of n bytes.
func (f Format) Duration(n int) time.Duration {
	if !f.Valid() {
		return 0
	}
	return time.Duration(n/BytesPerSample) * time.Second / time.Duration(f.SampleRate())
}

func (f Format) String() string {
	return fmt.Sprintf("audio/L16; rate=%d; channels=1", f.SampleRate())
}
