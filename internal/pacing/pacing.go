// Package pacing holds the timing policy for every remote interaction:
// politeness delays between calls, pauses between sources, periodic
// strategic pauses and cooldowns chosen by failure kind.
package pacing

import (
	"context"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/STRATINT/followbot/internal/social"
)

// Clock abstracts time so pacing can be tested without waiting.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock is the wall clock.
type RealClock struct{}

// Now returns the current local time.
func (RealClock) Now() time.Time { return time.Now() }

// Sleep blocks for d or until ctx is done.
func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Window is an inclusive jitter range.
type Window struct {
	Min time.Duration
	Max time.Duration
}

// Fixed returns a window that always yields d.
func Fixed(d time.Duration) Window { return Window{Min: d, Max: d} }

// Pacer performs the actual waits. It is shared by discovery and the
// executor within one run.
type Pacer struct {
	clock  Clock
	logger *slog.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// NewPacer returns a Pacer using clock. A nil rng seeds one from the clock.
func NewPacer(clock Clock, rng *rand.Rand, logger *slog.Logger) *Pacer {
	if rng == nil {
		seed := uint64(clock.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	return &Pacer{clock: clock, rng: rng, logger: logger}
}

// Clock returns the pacer's clock.
func (p *Pacer) Clock() Clock { return p.clock }

// Pick returns a uniformly jittered duration within w.
func (p *Pacer) Pick(w Window) time.Duration {
	if w.Max <= w.Min {
		return w.Min
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return w.Min + time.Duration(p.rng.Int64N(int64(w.Max-w.Min)+1))
}

// Jitter sleeps for a duration picked from w and returns it.
func (p *Pacer) Jitter(ctx context.Context, w Window, reason string) (time.Duration, error) {
	d := p.Pick(w)
	return d, p.Sleep(ctx, d, reason)
}

// Sleep waits d on the pacer's clock. Callers log long waits themselves.
func (p *Pacer) Sleep(ctx context.Context, d time.Duration, reason string) error {
	if d <= 0 {
		return ctx.Err()
	}
	p.logger.Debug("sleeping", "reason", reason, "duration", d.Round(100*time.Millisecond).String())
	return p.clock.Sleep(ctx, d)
}

// Cooldowns maps failure kinds to the wait applied before continuing.
type Cooldowns struct {
	// Transient is the wait after an explicit "wait a few minutes" signal.
	Transient time.Duration
	// RateLimited is the wait after an explicit "too many requests" signal.
	RateLimited time.Duration
	// Error is the generic wait after a soft block or an unknown failure.
	Error time.Duration
}

// For returns the cooldown for kind. NotFound and Fatal need no wait.
func (c Cooldowns) For(kind social.Kind) time.Duration {
	switch kind {
	case social.KindTransient:
		return c.Transient
	case social.KindRateLimited:
		return c.RateLimited
	case social.KindSoftBlock, social.KindUnknown:
		return c.Error
	default:
		return 0
	}
}

// FollowPolicy is the executor's timing policy.
type FollowPolicy struct {
	Politeness     Window
	Strategic      Window
	StrategicEvery int
	Cooldowns      Cooldowns
}

// StrategicPauseDue reports whether a strategic pause follows the given
// number of successful follows.
func (f FollowPolicy) StrategicPauseDue(successes int) bool {
	return f.StrategicEvery > 0 && successes > 0 && successes%f.StrategicEvery == 0
}

// DiscoveryPolicy is the discovery pipeline's timing policy.
type DiscoveryPolicy struct {
	RequestDelay  Window
	SourcePause   Window
	ErrorCooldown time.Duration
}
