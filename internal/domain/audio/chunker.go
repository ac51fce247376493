package audio

import "time"

// Chunker re-frames arbitrarily sized PCM writes into fixed-size frames.
// It is not safe for concurrent use.
type Chunker struct {
	frameBytes int
	pending    []byte
}

// NewChunker returns a Chunker producing frames of frameDur in format f.
// Microphone input is normally framed at 10 ms.
func NewChunker(f Format, frameDur time.Duration) *Chunker {
	n := f.BytesInDuration(frameDur)
	if n < BytesPerSample {
		n = BytesPerSample
	}
	return &Chunker{frameBytes: n}
}

// FrameBytes returns the size of each produced frame.
func (c *Chunker) FrameBytes() int {
	return c.frameBytes
}

// Push appends data and returns every complete frame now available. The
// returned frames do not alias data.
func (c *Chunker) Push(data []byte) [][]byte {
	c.pending = append(c.pending, data...)
	if len(c.pending) < c.frameBytes {
		return nil
	}

	frames := make([][]byte, 0, len(c.pending)/c.frameBytes)
	for len(c.pending) >= c.frameBytes {
		frame := make([]byte, c.frameBytes)
		copy(frame, c.pending[:c.frameBytes])
		frames = append(frames, frame)
		c.pending = c.pending[c.frameBytes:]
	}
	// compact so the backing array does not grow without bound
	c.pending = append([]byte(nil), c.pending...)
	return frames
}

// Pending returns the number of buffered bytes not yet emitted.
func (c *Chunker) Pending() int {
	return len(c.pending)
}

// Flush returns the buffered tail zero-padded to a full frame, or nil when
// nothing is buffered.
func (c *Chunker) Flush() []byte {
	if len(c.pending) == 0 {
		return nil
	}
	frame := make([]byte, c.frameBytes)
	copy(frame, c.pending)
	c.pending = nil
	return frame
}
