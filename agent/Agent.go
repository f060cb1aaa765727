// Package agent defines an agent interface
package agent

import (
	"fmt"

	env "github.com/samuelfneumann/mlscenes/environment"
	"github.com/samuelfneumann/mlscenes/timestep"
	"gonum.org/v1/gonum/mat"
)

// Agent determines the implementation details of an agent or algorithm
// that drives the action channel of an environment.
//
// An Agent is composed of a Learner, which learns from experience, and
// a Policy which chooses actions in each state. Agents that do not
// learn, such as scripted or random agents, implement the Learner
// methods as no-ops.
type Agent interface {
	Learner
	Policy
}

// Learner implements a learning algorithm that defines how an agent's
// estimates are updated.
type Learner interface {
	// Step performs a single update to the learner
	Step() error

	// Observe records that an action lead to some timestep
	Observe(action mat.Vector, nextObs timestep.TimeStep) error

	// ObserveFirst records the first timestep in an episode
	ObserveFirst(timestep.TimeStep) error

	// EndEpisode performs cleanup at the end of an episode
	EndEpisode()
}

// Policy represents a policy that an agent can have. Policies determine
// how agents select actions.
type Policy interface {
	SelectAction(t timestep.TimeStep) *mat.VecDense
	Eval()        // Set policy to evaluation mode
	Train()       // Set policy to training mode
	IsEval() bool // Indicates if in evaluation mode
}

// Type names a kind of agent
type Type string

const (
	Random    Type = "random"
	QLearning Type = "qlearning"
	Heuristic Type = "heuristic"
)

// DiscreteActions returns the number of actions described by a
// 1-dimensional discrete action specification
func DiscreteActions(s env.Spec) (int, error) {
	if s.Type != env.Action {
		return 0, fmt.Errorf("discreteActions: spec does not describe " +
			"actions")
	}
	if s.Cardinality != env.Discrete {
		return 0, fmt.Errorf("discreteActions: actions are not discrete")
	}
	if s.Shape.Len() != 1 {
		return 0, fmt.Errorf("discreteActions: actions must be "+
			"1-dimensional, have %d dimensions", s.Shape.Len())
	}
	return int(s.UpperBound.AtVec(0)) + 1, nil
}
