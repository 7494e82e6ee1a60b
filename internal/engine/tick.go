package engine

import (
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTurnInterval is how long the clock waits between turns at speed 1.
const DefaultTurnInterval = 30 * time.Second

// Clock ends turns on a timer for unattended play. It is optional: a game
// driven only through the action API never needs one.
type Clock struct {
	Interval time.Duration // Base wait between turns
	OnTurn   func(Result)  // Called after every clock-driven turn, may be nil

	sim      *Simulation
	speed    atomic.Uint64 // math.Float64bits of the multiplier; 0 = paused
	running  atomic.Bool
	turnMu   sync.Mutex // one clock turn in flight at a time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewClock creates a clock for sim at speed 1.
func NewClock(sim *Simulation, interval time.Duration) *Clock {
	if interval <= 0 {
		interval = DefaultTurnInterval
	}
	c := &Clock{Interval: interval, sim: sim, stop: make(chan struct{})}
	c.SetSpeed(1)
	return c
}

// Speed returns the current multiplier.
func (c *Clock) Speed() float64 {
	return math.Float64frombits(c.speed.Load())
}

// SetSpeed changes the multiplier. Zero or negative pauses the clock.
func (c *Clock) SetSpeed(speed float64) {
	if speed < 0 {
		speed = 0
	}
	c.speed.Store(math.Float64bits(speed))
}

// Running reports whether Run is active.
func (c *Clock) Running() bool {
	return c.running.Load()
}

// Run blocks, ending a turn every Interval/Speed, until Stop is called.
func (c *Clock) Run() {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	turn, _ := c.sim.Turn()
	slog.Info("turn clock started", "turn", turn, "interval", c.Interval, "speed", c.Speed())

	for {
		speed := c.Speed()
		wait := 100 * time.Millisecond
		if speed > 0 {
			wait = time.Duration(float64(c.Interval) / speed)
		}

		select {
		case <-c.stop:
			c.running.Store(false)
			turn, _ := c.sim.Turn()
			slog.Info("turn clock stopped", "turn", turn)
			return
		case <-time.After(wait):
		}

		if speed > 0 {
			c.Step()
		}
	}
}

// Step ends one turn now. Concurrent calls do not overlap.
func (c *Clock) Step() Result {
	c.turnMu.Lock()
	defer c.turnMu.Unlock()

	r := c.sim.EndTurn()
	if c.OnTurn != nil {
		c.OnTurn(r)
	}
	return r
}

// Stop ends Run. Safe to call more than once.
func (c *Clock) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}
