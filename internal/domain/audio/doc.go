// Package audio holds the PCM plumbing between audio sources and the
// avatar runtime: fixed-size framing, gain, level metering, voice gating
// and a bounded frame queue.
//
// All sample data is signed 16-bit little-endian mono (audio/L16).
package audio
