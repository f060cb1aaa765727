package motion

import (
	"fmt"
	"time"
)

const (
	DefaultStuckThreshold   float64       = 0.05
	DefaultStuckTimeout     time.Duration = 2 * time.Second
	DefaultStuckTurnDegrees float64       = 90
	DefaultStuckAttempts    int           = 4
)

// StuckConfig configures a StuckDetector
type StuckConfig struct {
	// Threshold is the per-tick displacement below which the agent is
	// considered not to be moving
	Threshold float64

	// Timeout is how long the agent must not move before a recovery
	// maneuver is forced
	Timeout time.Duration

	// TurnDegrees is the fixed turn of the recovery maneuver
	TurnDegrees float64

	// MaxAttempts is the number of recovery attempts after which the
	// attempt counter wraps to 0
	MaxAttempts int
}

// DefaultStuckConfig returns the default stuck detector configuration
func DefaultStuckConfig() StuckConfig {
	return StuckConfig{
		Threshold:   DefaultStuckThreshold,
		Timeout:     DefaultStuckTimeout,
		TurnDegrees: DefaultStuckTurnDegrees,
		MaxAttempts: DefaultStuckAttempts,
	}
}

// Recovery is a forced recovery maneuver: turn by Turn degrees, then
// step forward. Attempt is the 1-based attempt number.
type Recovery struct {
	Turn    float64
	Attempt int
}

// StuckDetector detects agents that have not moved for a while and
// forces them into a fixed recovery maneuver.
//
// The detector is a heuristic. It does not guarantee that an agent
// eventually gets unstuck: the attempt counter resets whenever any
// motion above the threshold is seen, so an agent that oscillates
// around the threshold may never accumulate enough stuck time.
type StuckDetector struct {
	config   StuckConfig
	still    time.Duration
	attempts int
}

// NewStuckDetector returns a new StuckDetector
func NewStuckDetector(c StuckConfig) (*StuckDetector, error) {
	if c.Threshold <= 0 {
		return nil, fmt.Errorf("newStuckDetector: threshold must be "+
			"positive, have %v", c.Threshold)
	}
	if c.Timeout <= 0 {
		return nil, fmt.Errorf("newStuckDetector: timeout must be "+
			"positive, have %v", c.Timeout)
	}
	if c.MaxAttempts <= 0 {
		return nil, fmt.Errorf("newStuckDetector: max attempts must be "+
			"positive, have %v", c.MaxAttempts)
	}
	return &StuckDetector{config: c}, nil
}

// Observe records the displacement of the agent over the last tick of
// length dt. If the agent has been still for longer than the timeout,
// Observe returns the recovery maneuver to force on this tick and true.
func (s *StuckDetector) Observe(displacement float64,
	dt time.Duration) (Recovery, bool) {
	if displacement >= s.config.Threshold {
		s.still = 0
		s.attempts = 0
		return Recovery{}, false
	}

	s.still += dt
	if s.still <= s.config.Timeout {
		return Recovery{}, false
	}

	s.still = 0
	s.attempts++
	r := Recovery{Turn: s.config.TurnDegrees, Attempt: s.attempts}
	if s.attempts >= s.config.MaxAttempts {
		s.attempts = 0
	}
	return r, true
}

// Attempts returns the number of recovery attempts since the agent
// last moved, modulo the maximum number of attempts
func (s *StuckDetector) Attempts() int {
	return s.attempts
}

// Reset clears all stuck state
func (s *StuckDetector) Reset() {
	s.still = 0
	s.attempts = 0
}
