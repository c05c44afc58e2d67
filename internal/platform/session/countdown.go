package session

import (
	"context"
	"sync"
	"time"
)

// DefaultCountdown is the warning length in seconds.
const DefaultCountdown = 60

// Countdown is the logout warning timer. It counts down from its start value
// one step per Tick and calls onLogout exactly once when it reaches zero.
// Activity while it is running puts it back to the start value.
type Countdown struct {
	mu        sync.Mutex
	start     int
	remaining int
	done      bool
	onTick    func(remaining int)
	onLogout  func()
}

// NewCountdown returns a countdown starting at start seconds, or
// DefaultCountdown when start is not positive.
func NewCountdown(start int, onLogout func()) *Countdown {
	if start <= 0 {
		start = DefaultCountdown
	}
	return &Countdown{start: start, remaining: start, onLogout: onLogout}
}

// OnTick registers fn to be called with the remaining seconds after every
// tick and reset.
func (c *Countdown) OnTick(fn func(remaining int)) {
	c.mu.Lock()
	c.onTick = fn
	c.mu.Unlock()
}

func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remaining
}

// Done reports whether the countdown has reached zero.
func (c *Countdown) Done() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// Tick takes one second off. Ticks after zero do nothing.
func (c *Countdown) Tick() int {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return 0
	}
	c.remaining--
	remaining := c.remaining
	fire := remaining <= 0
	if fire {
		c.remaining = 0
		remaining = 0
		c.done = true
	}
	onTick, onLogout := c.onTick, c.onLogout
	c.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	if fire && onLogout != nil {
		onLogout()
	}
	return remaining
}

// Reset puts the countdown back to its start value. It returns false once
// the countdown has already fired.
func (c *Countdown) Reset() bool {
	c.mu.Lock()
	if c.done {
		c.mu.Unlock()
		return false
	}
	c.remaining = c.start
	remaining, onTick := c.remaining, c.onTick
	c.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	return true
}

// Run ticks once per value received from ticks until the countdown fires,
// ticks closes, or ctx is cancelled. Pass time.NewTicker(time.Second).C for
// a 1 Hz countdown.
func (c *Countdown) Run(ctx context.Context, ticks <-chan time.Time) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-ticks:
			if !ok {
				return
			}
			c.Tick()
			if c.Done() {
				return
			}
		}
	}
}
