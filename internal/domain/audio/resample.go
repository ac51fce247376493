package audio

import (
	"fmt"

	resampling "github.com/tphakala/go-audio-resampling"
)

// Resampler converts a stream of interleaved int16 samples between rates.
// Filter state carries across Process calls, so each stream needs its own
// Resampler.
type Resampler struct {
	fromRate int
	toRate   int
	channels int
	rs       resampling.Resampler
}

// NewResampler returns a high quality resampler. Equal rates pass samples
// through untouched.
func NewResampler(fromRate, toRate, channels int) (*Resampler, error) {
	if fromRate <= 0 || toRate <= 0 {
		return nil, fmt.Errorf("audio: invalid resample rates %d -> %d", fromRate, toRate)
	}
	if channels <= 0 {
		channels = 1
	}

	r := &Resampler{fromRate: fromRate, toRate: toRate, channels: channels}
	if fromRate == toRate {
		return r, nil
	}
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(fromRate),
		OutputRate: float64(toRate),
		Channels:   channels,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("audio: create resampler: %w", err)
	}
	r.rs = rs
	return r, nil
}

// Process resamples one block of the stream. The output may be shorter than
// the rate ratio suggests while the filter fills up.
func (r *Resampler) Process(samples []int16) ([]int16, error) {
	if r.rs == nil {
		return append([]int16(nil), samples...), nil
	}
	if len(samples) == 0 {
		return nil, nil
	}
	out, err := r.rs.Process(toFloat(samples))
	if err != nil {
		return nil, fmt.Errorf("audio: resample: %w", err)
	}
	return fromFloat(out), nil
}

// Flush drains samples held back by the filter at the end of a stream.
func (r *Resampler) Flush() ([]int16, error) {
	if r.rs == nil {
		return nil, nil
	}
	f, ok := any(r.rs).(interface{ Flush() ([]float64, error) })
	if !ok {
		return nil, nil
	}
	out, err := f.Flush()
	if err != nil {
		return nil, fmt.Errorf("audio: flush resampler: %w", err)
	}
	return fromFloat(out), nil
}

// Resample converts a complete clip of interleaved samples in one call.
func Resample(samples []int16, channels, fromRate, toRate int) ([]int16, error) {
	r, err := NewResampler(fromRate, toRate, channels)
	if err != nil {
		return nil, err
	}
	out, err := r.Process(samples)
	if err != nil {
		return nil, err
	}
	tail, err := r.Flush()
	if err != nil {
		return nil, err
	}
	return append(out, tail...), nil
}

// Downmix averages interleaved int16 frames to mono.
func Downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	out := make([]int16, len(samples)/channels)
	for i := range out {
		sum := 0
		for c := 0; c < channels; c++ {
			sum += int(samples[i*channels+c])
		}
		out[i] = int16(sum / channels)
	}
	return out
}

// ScaleToInt16 converts integer samples of the given bit depth to int16.
// 8-bit input is treated as unsigned, as stored in WAV files.
func ScaleToInt16(samples []int, bitDepth int) []int16 {
	out := make([]int16, len(samples))
	shift := bitDepth - 16
	for i, s := range samples {
		if bitDepth == 8 {
			s -= 128
		}
		switch {
		case shift > 0:
			s >>= shift
		case shift < 0:
			s <<= -shift
		}
		out[i] = clip16(float64(s))
	}
	return out
}

func toFloat(samples []int16) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = float64(s) / 32768.0
	}
	return out
}

func fromFloat(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		out[i] = clip16(s * 32768.0)
	}
	return out
}
