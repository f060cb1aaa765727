// Package random implements an agent that selects actions uniformly
// at random
package random

import (
	"fmt"

	"github.com/samuelfneumann/mlscenes/agent"
	env "github.com/samuelfneumann/mlscenes/environment"
	ts "github.com/samuelfneumann/mlscenes/timestep"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Uniform selects each discrete action with equal probability. It
// never learns.
type Uniform struct {
	actions int
	dist    distuv.Categorical
	eval    bool
}

// New returns a new Uniform agent for an environment's action spec
func New(actionSpec env.Spec, seed uint64) (*Uniform, error) {
	actions, err := agent.DiscreteActions(actionSpec)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if actions < 1 {
		return nil, fmt.Errorf("new: no actions to select from")
	}

	weights := make([]float64, actions)
	for i := range weights {
		weights[i] = 1
	}
	dist := distuv.NewCategorical(weights, rand.NewSource(seed))

	return &Uniform{actions: actions, dist: dist}, nil
}

// SelectAction selects an action uniformly at random
func (u *Uniform) SelectAction(ts.TimeStep) *mat.VecDense {
	return mat.NewVecDense(1, []float64{u.dist.Rand()})
}

// Eval sets the agent to evaluation mode
func (u *Uniform) Eval() { u.eval = true }

// Train sets the agent to training mode
func (u *Uniform) Train() { u.eval = false }

// IsEval returns whether the agent is in evaluation mode
func (u *Uniform) IsEval() bool { return u.eval }

// Step is a no-op
func (u *Uniform) Step() error { return nil }

// Observe is a no-op
func (u *Uniform) Observe(mat.Vector, ts.TimeStep) error { return nil }

// ObserveFirst is a no-op
func (u *Uniform) ObserveFirst(ts.TimeStep) error { return nil }

// EndEpisode is a no-op
func (u *Uniform) EndEpisode() {}
