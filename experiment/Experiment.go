// Package experiment implements functionality for running an experiment
package experiment

import (
	"github.com/samuelfneumann/mlscenes/experiment/checkpointer"
	"github.com/samuelfneumann/mlscenes/experiment/trackers"
)

// Experiment outlines structs that can run experiments. Experiments
// send each environment TimeStep to their Trackers, which cache the
// data in RAM to be saved later by Save. Run runs episodes until the
// experiment's limits are reached, and RunEpisode runs a single
// episode.
type Experiment interface {
	Run() error

	// RunEpisode returns whether the experiment is done
	RunEpisode() (bool, error)

	// Save all tracked data
	Save() error

	// Adds a new Tracker to the (possibly already running) experiment.
	// Useful if you want to track data only after a specified event.
	Register(t trackers.Tracker)

	// Adds a Checkpointer which saves the state of the agent
	AddCheckpointer(c checkpointer.Checkpointer)
}

var _ Experiment = &Online{}

// Progress is notified after every episode
type Progress interface {
	Increment()
	Display()
}
