package episode

import (
	"errors"
	"fmt"
)

var errMissingSuccessor = errors.New("no successor registered")

// SwitchPolicy decides what happens when a switch is activated
type SwitchPolicy int

const (
	// EndEpisode ends the episode on switch activation
	EndEpisode SwitchPolicy = iota

	// SoftReset respawns the agent and switch and keeps the episode
	// running
	SoftReset

	// UnlockGoal keeps the switch on and the episode running so that
	// the goal zone can be reached
	UnlockGoal
)

func (p SwitchPolicy) String() string {
	switch p {
	case EndEpisode:
		return "end-episode"
	case SoftReset:
		return "soft-reset"
	case UnlockGoal:
		return "unlock-goal"
	default:
		return fmt.Sprintf("SwitchPolicy(%d)", int(p))
	}
}

// ParseSwitchPolicy parses a SwitchPolicy from its String form
func ParseSwitchPolicy(s string) (SwitchPolicy, error) {
	for _, p := range []SwitchPolicy{EndEpisode, SoftReset, UnlockGoal} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("parseSwitchPolicy: unknown policy %q", s)
}

// MarshalText implements encoding.TextMarshaler
func (p SwitchPolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *SwitchPolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseSwitchPolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Rewards is the reward table of a scenario
type Rewards struct {
	Goal   float64 `yaml:"goal"`
	Hazard float64 `yaml:"hazard"`
	Switch float64 `yaml:"switch"`

	// StepPenalty enables a reward of -1/MaxSteps on every step
	StepPenalty bool `yaml:"step_penalty"`
}

// CrossRoadRewards returns the default cross-the-road reward table
func CrossRoadRewards() Rewards {
	return Rewards{Goal: 1.0, Hazard: -0.025}
}

// PyramidRewards returns the default Pyramids reward table
func PyramidRewards() Rewards {
	return Rewards{Goal: 2.0, Hazard: -0.025, Switch: 1.0, StepPenalty: true}
}

// Config configures a Controller
type Config struct {
	// MaxSteps is the episode step limit, 0 means no limit
	MaxSteps int
	Rewards  Rewards
	Policy   SwitchPolicy

	// GoalLock makes reaching the goal permanent for an agent instance:
	// every later episode of that instance ends as soon as it begins
	GoalLock bool

	// HandOff requests a successor agent instance on reaching the goal
	HandOff bool
}

// Validate checks that the configuration is usable
func (c Config) Validate() error {
	if c.MaxSteps < 0 {
		return fmt.Errorf("validate: negative step limit %d", c.MaxSteps)
	}
	if c.Rewards.StepPenalty && c.MaxSteps == 0 {
		return fmt.Errorf("validate: step penalty requires a step limit")
	}
	switch c.Policy {
	case EndEpisode, SoftReset, UnlockGoal:
	default:
		return fmt.Errorf("validate: unknown switch policy %v", c.Policy)
	}
	return nil
}
