package wsclient

import (
	"fmt"
	"os"

	"github.com/go-audio/wav"

	"avatar-bridge/internal/domain/audio"
)

// LoadWAV reads a PCM WAV file and returns mono int16 PCM at the target
// format's sample rate.
func LoadWAV(path string, target audio.Format) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%s: not a valid WAV file", path)
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	if buf.Format == nil || buf.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%s: missing format chunk", path)
	}

	bitDepth := int(dec.BitDepth)
	if bitDepth == 0 {
		bitDepth = buf.SourceBitDepth
	}
	channels := buf.Format.NumChannels
	samples := audio.ScaleToInt16(buf.Data, bitDepth)
	samples, err = audio.Resample(samples, channels, buf.Format.SampleRate, target.SampleRate())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return audio.Encode(audio.Downmix(samples, channels)), nil
}
