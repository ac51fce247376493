package avatar

import (
	"sync"
	"time"
)

// FPSController paces a frame loop at a fixed rate and tracks the rate
// actually achieved.
type FPSController struct {
	interval time.Duration
	now      func() time.Time
	sleep    func(time.Duration)

	mu     sync.Mutex
	next   time.Time
	stamps []time.Time
	window int
}

// NewFPSController returns a controller for fps frames per second.
func NewFPSController(fps int) *FPSController {
	if fps <= 0 {
		fps = 25
	}
	return &FPSController{
		interval: time.Second / time.Duration(fps),
		now:      time.Now,
		sleep:    time.Sleep,
		window:   fps * 2,
	}
}

// Interval returns the target frame interval.
func (c *FPSController) Interval() time.Duration {
	return c.interval
}

// Wait returns how long the caller should sleep before emitting the next
// frame and records the frame. When the loop has fallen behind by more than
// one interval the schedule is reset instead of bursting to catch up.
func (c *FPSController) Wait() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	if c.next.IsZero() || now.Sub(c.next) > c.interval {
		c.next = now
	}
	wait := c.next.Sub(now)
	if wait < 0 {
		wait = 0
	}
	c.next = c.next.Add(c.interval)

	c.stamps = append(c.stamps, now.Add(wait))
	if len(c.stamps) > c.window {
		c.stamps = c.stamps[len(c.stamps)-c.window:]
	}
	return wait
}

// Tick blocks until the next frame slot.
func (c *FPSController) Tick() {
	if d := c.Wait(); d > 0 {
		c.sleep(d)
	}
}

// AverageFPS returns the rate over the recent window, or 0 with fewer
// than two frames.
func (c *FPSController) AverageFPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.stamps) < 2 {
		return 0
	}
	span := c.stamps[len(c.stamps)-1].Sub(c.stamps[0])
	if span <= 0 {
		return 0
	}
	return float64(len(c.stamps)-1) / span.Seconds()
}

// Reset clears the schedule, e.g. after an interrupt.
func (c *FPSController) Reset() {
	c.mu.Lock()
	c.next = time.Time{}
	c.stamps = c.stamps[:0]
	c.mu.Unlock()
}
