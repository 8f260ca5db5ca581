package topic

import (
	"math"
	"time"
)

// DefaultHalfLife is the exponential decay half-life applied when no decay
// function is configured. Tuned for chat-session pacing rather than
// long-term memory.
const DefaultHalfLife = 30 * time.Minute

// DecayFunc maps a topic's confidence and the elapsed time since it was
// last discussed to a new confidence. Implementations must be deterministic,
// monotonically non-increasing in elapsed time, and never return a value
// below zero or above the input confidence.
type DecayFunc func(confidence float64, elapsed time.Duration) float64

// ExponentialDecay halves confidence every halfLife of silence,
// asymptoting toward zero without ever reaching it.
func ExponentialDecay(halfLife time.Duration) DecayFunc {
	if halfLife <= 0 {
		halfLife = DefaultHalfLife
	}

	return func(confidence float64, elapsed time.Duration) float64 {
		if elapsed <= 0 {
			return confidence
		}
		factor := math.Pow(0.5, elapsed.Seconds()/halfLife.Seconds())
		return confidence * factor
	}
}

// LinearDecay scales confidence down linearly, hitting zero once elapsed
// reaches window.
func LinearDecay(window time.Duration) DecayFunc {
	if window <= 0 {
		window = 2 * DefaultHalfLife
	}

	return func(confidence float64, elapsed time.Duration) float64 {
		if elapsed <= 0 {
			return confidence
		}
		factor := 1 - elapsed.Seconds()/window.Seconds()
		if factor < 0 {
			factor = 0
		}
		return confidence * factor
	}
}

// clamp01 bounds a confidence to [0, 1].
func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
