// Package ratelimit paces outbound calls to the remote so the harvester stays
// below the platform's abuse detection.
package ratelimit

import (
	"context"
	"math/rand/v2"
	"time"

	"golang.org/x/time/rate"
)

type Config struct {
	DelayMin time.Duration
	DelayMax time.Duration
	// MaxRPS caps requests per second across all workers. Zero disables the cap.
	MaxRPS float64
}

// Governor suspends the calling goroutine after a remote call. The jitter is
// local to the caller; only the optional limiter is shared.
type Governor struct {
	min     time.Duration
	max     time.Duration
	limiter *rate.Limiter
}

func NewGovernor(cfg Config) *Governor {
	g := &Governor{min: cfg.DelayMin, max: cfg.DelayMax}
	if g.max < g.min {
		g.max = g.min
	}
	if cfg.MaxRPS > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.MaxRPS), 1)
	}
	return g
}

// Pause waits for the shared limiter, then sleeps a uniform duration in [min, max].
func (g *Governor) Pause(ctx context.Context) error {
	if g.limiter != nil {
		if err := g.limiter.Wait(ctx); err != nil {
			return err
		}
	}

	d := g.Delay()
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Delay draws the next jitter duration.
func (g *Governor) Delay() time.Duration {
	span := g.max - g.min
	if span <= 0 {
		return g.min
	}
	return g.min + rand.N(span+1)
}

// Nop is a pacer that never waits.
type Nop struct{}

func (Nop) Pause(ctx context.Context) error { return ctx.Err() }
