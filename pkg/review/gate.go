package review

import (
	"fmt"
	"math"
	"sync"
	"time"
)

// DefaultInterval is the minimum time between two successful review calls.
const DefaultInterval = 60 * time.Second

// CooldownError is returned when a review is requested too soon after the
// previous one or while another review is still running.
type CooldownError struct {
	RetryAfter time.Duration
	Calls      int
}

func (e *CooldownError) Error() string {
	secs := int(math.Ceil(e.RetryAfter.Seconds()))
	return fmt.Sprintf("please wait %d seconds before requesting another review (reviews so far: %d)", secs, e.Calls)
}

// GateStats is a point-in-time view of the gate.
type GateStats struct {
	Calls    int           `json:"calls" yaml:"calls"`
	Last     *time.Time    `json:"last,omitempty" yaml:"last,omitempty"`
	Interval time.Duration `json:"interval" yaml:"interval"`
	InFlight bool          `json:"in_flight" yaml:"inFlight"`
}

// Gate spaces out calls to the generative service. One call may be in
// flight at a time, and a new call is admitted only once the interval since
// the last successful call has passed.
type Gate struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
	count    int
	inFlight bool
}

// NewGate creates a gate. A non-positive interval uses DefaultInterval.
func NewGate(interval time.Duration) *Gate {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Gate{interval: interval}
}

// Acquire admits a call at now or returns a *CooldownError. Every successful
// Acquire must be followed by Done.
func (g *Gate) Acquire(now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.inFlight {
		return &CooldownError{RetryAfter: g.interval, Calls: g.count}
	}

	if !g.last.IsZero() {
		if elapsed := now.Sub(g.last); elapsed < g.interval {
			return &CooldownError{RetryAfter: g.interval - elapsed, Calls: g.count}
		}
	}

	g.inFlight = true
	return nil
}

// Done releases the gate. A successful call starts a new interval and is counted.
func (g *Gate) Done(now time.Time, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.inFlight = false
	if ok {
		g.last = now
		g.count++
	}
}

// Stats returns the current counters.
func (g *Gate) Stats() GateStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	s := GateStats{
		Calls:    g.count,
		Interval: g.interval,
		InFlight: g.inFlight,
	}
	if !g.last.IsZero() {
		last := g.last
		s.Last = &last
	}
	return s
}
