package audio

import (
	"encoding/binary"
	"math"
)

// SilenceFloorDB is reported for frames with no signal.
const SilenceFloorDB = -100.0

// Samples decodes little-endian int16 PCM. A trailing odd byte is ignored.
func Samples(pcm []byte) []int16 {
	out := make([]int16, len(pcm)/BytesPerSample)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2:]))
	}
	return out
}

// Encode encodes samples as little-endian int16 PCM.
func Encode(samples []int16) []byte {
	out := make([]byte, len(samples)*BytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

// ApplyGain scales pcm by gain, clipping to the int16 range. A gain of 1
// returns a copy of the input unchanged.
func ApplyGain(pcm []byte, gain float64) []byte {
	if gain == 1 {
		return append([]byte(nil), pcm...)
	}
	samples := Samples(pcm)
	for i, s := range samples {
		samples[i] = clip16(float64(s) * gain)
	}
	return Encode(samples)
}

// LevelDB returns the RMS level of pcm in dBFS.
func LevelDB(pcm []byte) float64 {
	samples := Samples(pcm)
	if len(samples) == 0 {
		return SilenceFloorDB
	}
	var sum float64
	for _, s := range samples {
		v := float64(s) / 32768.0
		sum += v * v
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	if rms == 0 {
		return SilenceFloorDB
	}
	db := 20 * math.Log10(rms)
	if db < SilenceFloorDB {
		return SilenceFloorDB
	}
	return db
}

func clip16(v float64) int16 {
	switch {
	case v > math.MaxInt16:
		return math.MaxInt16
	case v < math.MinInt16:
		return math.MinInt16
	}
	return int16(math.Round(v))
}
