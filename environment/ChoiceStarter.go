package environment

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// ChoiceStarter returns starting states drawn uniformly at random from
// a fixed list of candidate states. Each call to Start returns a copy
// of the chosen candidate, so callers may modify it freely.
type ChoiceStarter struct {
	candidates []*mat.VecDense
	seed       uint64
	rand       distuv.Categorical
	last       int
}

// NewChoiceStarter returns a new ChoiceStarter over the argument
// candidates. All candidates must have the same length.
func NewChoiceStarter(candidates []*mat.VecDense,
	seed uint64) (*ChoiceStarter, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("newChoiceStarter: %w",
			&MissingDependencyError{Component: "starter",
				Dependency: "candidate states"})
	}

	features := candidates[0].Len()
	for i, c := range candidates {
		if c.Len() != features {
			return nil, fmt.Errorf("newChoiceStarter: candidate %d has "+
				"length %d, want %d", i, c.Len(), features)
		}
	}

	// Create the weights for the uniform categorical distribution
	weights := make([]float64, len(candidates))
	for i := range weights {
		weights[i] = 1.0 / float64(len(weights))
	}
	source := rand.NewSource(seed)

	return &ChoiceStarter{
		candidates: candidates,
		seed:       seed,
		rand:       distuv.NewCategorical(weights, source),
		last:       -1,
	}, nil
}

// Start returns a starting state vector
func (c *ChoiceStarter) Start() *mat.VecDense {
	c.last = int(c.rand.Rand())

	start := mat.NewVecDense(c.candidates[c.last].Len(), nil)
	start.CopyVec(c.candidates[c.last])
	return start
}

// LastIndex returns the index of the candidate returned by the most
// recent call to Start, or -1 if Start has not been called.
func (c *ChoiceStarter) LastIndex() int {
	return c.last
}

// Len returns the number of candidate starting states
func (c *ChoiceStarter) Len() int {
	return len(c.candidates)
}

// SingleStarter always returns the same starting state
type SingleStarter struct {
	state *mat.VecDense
}

// NewSingleStarter returns a Starter which always starts in state
func NewSingleStarter(state *mat.VecDense) *SingleStarter {
	return &SingleStarter{state}
}

// Start returns a copy of the starting state
func (s *SingleStarter) Start() *mat.VecDense {
	start := mat.NewVecDense(s.state.Len(), nil)
	start.CopyVec(s.state)
	return start
}
