package audio

import (
	"sync"
	"time"
)

// GateConfig configures a voice activity gate.
type GateConfig struct {
	ThresholdDB    *float64      // frames louder than this count as speech; nil means -40
	SilenceTimeout time.Duration // quiet time before the gate closes
	BacklogLimit   int           // frames kept queued while closed
}

// DefaultGateConfig matches the microphone defaults: -40 dBFS, 3 s, 10 frames.
func DefaultGateConfig() GateConfig {
	return GateConfig{
		ThresholdDB:    Threshold(-40),
		SilenceTimeout: 3 * time.Second,
		BacklogLimit:   10,
	}
}

// Threshold returns a pointer to db for GateConfig.ThresholdDB.
func Threshold(db float64) *float64 {
	return &db
}

// Gate is an energy-based voice activity gate. It starts open so the first
// words are never clipped.
type Gate struct {
	cfg       GateConfig
	threshold float64

	mu           sync.Mutex
	speaking     bool
	lastSpeechAt time.Time
	started      bool
	lastLevel    float64
}

// NewGate returns a Gate with cfg; zero fields take the defaults.
func NewGate(cfg GateConfig) *Gate {
	def := DefaultGateConfig()
	if cfg.SilenceTimeout <= 0 {
		cfg.SilenceTimeout = def.SilenceTimeout
	}
	if cfg.BacklogLimit <= 0 {
		cfg.BacklogLimit = def.BacklogLimit
	}
	if cfg.ThresholdDB == nil {
		cfg.ThresholdDB = def.ThresholdDB
	}
	return &Gate{cfg: cfg, threshold: *cfg.ThresholdDB, speaking: true, lastLevel: SilenceFloorDB}
}

// Config returns the effective configuration.
func (g *Gate) Config() GateConfig {
	return g.cfg
}

// Observe meters frame at time now and returns whether the gate is open.
func (g *Gate) Observe(frame []byte, now time.Time) bool {
	level := LevelDB(frame)

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.started {
		g.started = true
		g.lastSpeechAt = now
	}
	g.lastLevel = level

	if level > g.threshold {
		g.lastSpeechAt = now
		g.speaking = true
	} else if now.Sub(g.lastSpeechAt) > g.cfg.SilenceTimeout {
		g.speaking = false
	}
	return g.speaking
}

// Speaking reports the current gate state.
func (g *Gate) Speaking() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.speaking
}

// LastLevel returns the level of the most recent observed frame.
func (g *Gate) LastLevel() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastLevel
}
