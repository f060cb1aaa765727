package checkpointer

import (
	"fmt"

	ts "github.com/samuelfneumann/mlscenes/timestep"
)

// NStep implements checkpointing every N environment steps, counted
// across episodes
type NStep struct {
	interval int
	steps    int
	object   Serializable // Object to save

	// filename returns the file to save the next checkpoint in, see
	// RunFilenames
	filename func() string
}

// NewNStep returns a checkpointer that checkpoints every n steps
func NewNStep(n int, object Serializable,
	filename func() string) (*NStep, error) {
	if n < 1 {
		return nil, fmt.Errorf("newNStep: interval must be positive, have %d",
			n)
	}
	return &NStep{
		interval: n,
		object:   object,
		filename: filename,
	}, nil
}

// Checkpoint saves the tracked object if a checkpoint is due. The
// first TimeStep of each episode is not an environment step and is
// not counted.
func (n *NStep) Checkpoint(t ts.TimeStep) error {
	if t.Number == 0 {
		return nil
	}

	n.steps++
	if n.steps%n.interval == 0 {
		return Save(n.filename(), n.object)
	}
	return nil
}
