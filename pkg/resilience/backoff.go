package resilience

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes per-attempt retry delays. Exponential with jitter so
// concurrent retries spread out instead of synchronizing.
type Backoff struct {
	BaseDelay  time.Duration
	MaxDelay   time.Duration
	Multiplier float64

	// Jitter in [0,1]: each delay varies by ±(delay*Jitter).
	Jitter float64
}

// EventDeliveryBackoff returns the schedule used for form platform event
// deliveries: ~1s, ~2s, ~4s, capped at 30s.
func EventDeliveryBackoff() *Backoff {
	return &Backoff{
		BaseDelay:  time.Second,
		MaxDelay:   30 * time.Second,
		Multiplier: 2.0,
		Jitter:     0.1,
	}
}

// NextDelay returns the delay before retry number attempt (0-indexed).
func (b *Backoff) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		return b.BaseDelay
	}

	delay := float64(b.BaseDelay) * math.Pow(b.Multiplier, float64(attempt))
	if delay > float64(b.MaxDelay) {
		delay = float64(b.MaxDelay)
	}

	jitter := (rand.Float64()*2 - 1) * delay * b.Jitter
	final := time.Duration(delay + jitter)
	if final < 0 {
		final = b.BaseDelay
	}
	return final
}
