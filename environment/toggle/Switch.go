// Package toggle implements the two-state switch of the Pyramids
// scenario.
package toggle

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Switch is a binary switch placed at one of a fixed set of spawn
// positions. A Switch goes from Off to On when activated, and only goes
// back to Off through Reset.
//
// Activate is called by the event handler that detects the agent
// touching the switch. Reset is called by the environment controller,
// never by the agent.
type Switch struct {
	id       string
	spawns   []*mat.VecDense
	position *mat.VecDense
	spawn    int
	on       bool
}

// New returns a new Switch that is Off and placed at the first spawn
// position
func New(id string, spawns []*mat.VecDense) (*Switch, error) {
	if len(spawns) == 0 {
		return nil, fmt.Errorf("new: switch %q has no spawn positions", id)
	}

	s := &Switch{id: id, spawns: spawns}
	if err := s.Reset(0); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the identity of the zone that owns the switch
func (s *Switch) ID() string {
	return s.id
}

// On returns whether the switch is on
func (s *Switch) On() bool {
	return s.on
}

// State returns the switch state as an observation feature, 1 if on
// and 0 otherwise
func (s *Switch) State() float64 {
	if s.on {
		return 1.0
	}
	return 0.0
}

// Position returns the current position of the switch
func (s *Switch) Position() *mat.VecDense {
	return s.position
}

// Spawns returns the number of spawn positions of the switch
func (s *Switch) Spawns() int {
	return len(s.spawns)
}

// SpawnIndex returns the index of the spawn position the switch was
// last reset to
func (s *Switch) SpawnIndex() int {
	return s.spawn
}

// Activate turns the switch on. It returns true if the switch was off,
// and false if it was already on, in which case nothing changes.
func (s *Switch) Activate() bool {
	if s.on {
		return false
	}
	s.on = true
	return true
}

// Reset turns the switch off and moves it to the spawn position at
// index spawnIndex
func (s *Switch) Reset(spawnIndex int) error {
	if spawnIndex < 0 || spawnIndex >= len(s.spawns) {
		return fmt.Errorf("reset: spawn index %d out of range [0, %d)",
			spawnIndex, len(s.spawns))
	}

	s.position = mat.VecDenseCopyOf(s.spawns[spawnIndex])
	s.spawn = spawnIndex
	s.on = false
	return nil
}

func (s *Switch) String() string {
	state := "Off"
	if s.on {
		state = "On"
	}
	return fmt.Sprintf("Switch %v  |  %v  |  Position: %v", s.id, state,
		s.position.RawVector().Data)
}
