// Package qlearning implements tabular Q-Learning over quantised
// observations.
//
// Observations are snapped to a regular grid, and each grid cell holds
// one action value per action. Actions are selected ε-greedily and the
// values of visited cells are updated with the Q-Learning target.
package qlearning

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/samuelfneumann/mlscenes/agent"
	env "github.com/samuelfneumann/mlscenes/environment"
	"github.com/samuelfneumann/mlscenes/timestep"
	"github.com/samuelfneumann/mlscenes/utils/floatutils"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// Tabular implements the Q-Learning algorithm with a lookup table
type Tabular struct {
	config  Config
	actions int
	values  map[string][]float64
	source  rand.Source
	eval    bool

	// Transition waiting for an update
	state     string
	action    int
	reward    float64
	discount  float64
	nextState string
	terminal  bool
	pending   bool
}

// New creates a new Tabular agent for an environment's action spec
func New(actionSpec env.Spec, c Config, seed uint64) (*Tabular, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	actions, err := agent.DiscreteActions(actionSpec)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return &Tabular{
		config:  c,
		actions: actions,
		values:  make(map[string][]float64),
		source:  rand.NewSource(seed),
	}, nil
}

// key quantises an observation into the key of its grid cell
func (q *Tabular) key(obs mat.Vector) string {
	var b strings.Builder
	for i := 0; i < obs.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		cell := floatutils.Round(obs.AtVec(i), q.config.CellSize)
		if cell == 0 {
			cell = 0 // -0 and 0 share a cell
		}
		b.WriteString(strconv.FormatFloat(cell, 'f', -1, 64))
	}
	return b.String()
}

// row returns the action values of a cell, adding the cell if needed
func (q *Tabular) row(key string) []float64 {
	r, ok := q.values[key]
	if !ok {
		r = make([]float64, q.actions)
		q.values[key] = r
	}
	return r
}

// SelectAction selects an action from an ε-greedy policy. In
// evaluation mode the greedy action is always selected.
func (q *Tabular) SelectAction(t timestep.TimeStep) *mat.VecDense {
	values := q.row(q.key(t.Observation))
	greedy := floats.MaxIdx(values)
	if q.eval || q.config.Epsilon == 0 {
		return mat.NewVecDense(1, []float64{float64(greedy)})
	}

	// Calculate the ε probability of choosing any action at random
	probs := make([]float64, q.actions)
	for i := range probs {
		probs[i] = q.config.Epsilon / float64(q.actions)
	}
	probs[greedy] += 1 - q.config.Epsilon

	dist := distuv.NewCategorical(probs, q.source)
	return mat.NewVecDense(1, []float64{dist.Rand()})
}

// ObserveFirst records the first timestep in an episode
func (q *Tabular) ObserveFirst(t timestep.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observeFirst: timestep is not first in the " +
			"episode")
	}
	q.state = q.key(t.Observation)
	q.pending = false
	return nil
}

// Observe records that an action lead to some timestep
func (q *Tabular) Observe(action mat.Vector, next timestep.TimeStep) error {
	if action.Len() != 1 {
		return fmt.Errorf("observe: action must be 1-dimensional, have %d "+
			"dimensions", action.Len())
	}
	index := int(action.AtVec(0))
	if index < 0 || index >= q.actions {
		return fmt.Errorf("observe: action %d out of range [0, %d)", index,
			q.actions)
	}

	q.action = index
	q.reward = next.Reward
	q.discount = next.Discount
	q.nextState = q.key(next.Observation)

	// Timeouts are not terminal, so their value is still bootstrapped
	q.terminal = next.Last() && next.EndType() != timestep.Timeout
	q.pending = true
	return nil
}

// Step updates the value of the last observed transition
func (q *Tabular) Step() error {
	if !q.pending {
		return nil
	}
	if q.eval {
		q.state = q.nextState
		q.pending = false
		return nil
	}

	target := q.reward
	if !q.terminal {
		target += q.discount * floats.Max(q.row(q.nextState))
	}

	values := q.row(q.state)
	values[q.action] += q.config.LearningRate * (target - values[q.action])

	q.state = q.nextState
	q.pending = false
	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (q *Tabular) EndEpisode() {
	q.pending = false
}

// Value returns the action value of an action in the cell holding obs
func (q *Tabular) Value(obs mat.Vector, action int) float64 {
	r, ok := q.values[q.key(obs)]
	if !ok {
		return 0
	}
	return r[action]
}

// Cells returns the number of grid cells visited
func (q *Tabular) Cells() int {
	return len(q.values)
}

// Eval sets the agent to evaluation mode
func (q *Tabular) Eval() { q.eval = true }

// Train sets the agent to training mode
func (q *Tabular) Train() { q.eval = false }

// IsEval returns whether the agent is in evaluation mode
func (q *Tabular) IsEval() bool { return q.eval }
