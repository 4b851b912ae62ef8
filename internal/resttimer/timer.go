// Package resttimer runs a client-side countdown over a rest window that the
// server has already opened. The countdown owns no state beyond the deadline;
// the server's rest window is closed exactly once, either when the countdown
// reaches zero or when the user skips ahead.
package resttimer

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// EndFunc closes the rest window on the server. It is invoked at most once
// per countdown.
type EndFunc func(ctx context.Context) error

// TickFunc is called on every tick with the time left. Used by the CLI to
// redraw the countdown line.
type TickFunc func(remaining time.Duration)

// Countdown counts a rest window down to zero.
type Countdown struct {
	duration time.Duration
	interval time.Duration
	end      EndFunc
	onTick   TickFunc
	log      *slog.Logger

	mu       sync.Mutex
	deadline time.Time
	done     chan struct{}
	once     sync.Once
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithInterval overrides the one-second tick. Tests use a short interval.
func WithInterval(d time.Duration) Option {
	return func(c *Countdown) { c.interval = d }
}

// WithTick registers a per-tick callback.
func WithTick(fn TickFunc) Option {
	return func(c *Countdown) { c.onTick = fn }
}

// WithLogger overrides the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *Countdown) { c.log = log }
}

// New creates a countdown of the given duration that calls end when it
// expires or is skipped.
func New(duration time.Duration, end EndFunc, opts ...Option) *Countdown {
	c := &Countdown{
		duration: duration,
		interval: time.Second,
		end:      end,
		log:      slog.Default(),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start begins ticking. It returns immediately; the countdown runs until it
// expires, is skipped, or ctx is canceled. Canceling ctx abandons the
// countdown without closing the rest window, so a restarted client can
// resume it.
func (c *Countdown) Start(ctx context.Context) {
	c.mu.Lock()
	c.deadline = time.Now().Add(c.duration)
	c.mu.Unlock()

	go c.run(ctx)
}

func (c *Countdown) run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-ticker.C:
			remaining := c.Remaining()
			if c.onTick != nil {
				c.onTick(remaining)
			}
			if remaining <= 0 {
				c.finish(ctx)
				return
			}
		}
	}
}

// Remaining returns the time left, never negative.
func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := time.Until(c.deadline)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Skip ends the rest window immediately. Safe to call concurrently with
// expiry; whichever runs first closes the window and the other is a no-op.
func (c *Countdown) Skip(ctx context.Context) {
	c.finish(ctx)
}

// Done is closed once the countdown has finished, by expiry or by Skip.
func (c *Countdown) Done() <-chan struct{} {
	return c.done
}

func (c *Countdown) finish(ctx context.Context) {
	c.once.Do(func() {
		if err := c.end(ctx); err != nil {
			// The server clamps rest on the next set anyway, so a
			// failed close is logged rather than retried.
			c.log.Error("ending rest window failed", "error", err)
		}
		close(c.done)
	})
}
