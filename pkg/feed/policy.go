package feed

import (
	"fmt"
	"math"
	"time"
)

// Policy computes reconnect delays and decides when to stop cycling through
// transports. It holds no state; every method is a pure function of its inputs.
type Policy struct {
	Base   time.Duration
	Growth float64
	Max    time.Duration
	// Cycles is the number of full passes over the transport list before
	// the manager commits to its fallback transport.
	Cycles int
}

// DefaultPolicy: 1s base, x1.5 growth, 10s cap, two cycles.
func DefaultPolicy() Policy {
	return Policy{
		Base:   time.Second,
		Growth: 1.5,
		Max:    10 * time.Second,
		Cycles: 2,
	}
}

// NextDelay returns min(Base * Growth^attempt, Max). Negative attempts count as zero.
func (p Policy) NextDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := float64(p.Base) * math.Pow(p.Growth, float64(attempt))
	if math.IsInf(d, 0) || math.IsNaN(d) || d >= float64(p.Max) {
		return p.Max
	}
	return time.Duration(d)
}

// ShouldGiveUp reports whether attempt consecutive failures exceed the
// configured number of cycles over transports.
func (p Policy) ShouldGiveUp(attempt, transports int) bool {
	return attempt > p.Cycles*transports
}

// Validate reports the first invalid field as ErrInvalidPolicy.
func (p Policy) Validate() error {
	switch {
	case p.Base <= 0:
		return fmt.Errorf("%w: base delay must be positive", ErrInvalidPolicy)
	case p.Growth < 1:
		return fmt.Errorf("%w: growth factor must be at least 1", ErrInvalidPolicy)
	case p.Max < p.Base:
		return fmt.Errorf("%w: max delay below base delay", ErrInvalidPolicy)
	case p.Cycles < 1:
		return fmt.Errorf("%w: cycles must be at least 1", ErrInvalidPolicy)
	}
	return nil
}
