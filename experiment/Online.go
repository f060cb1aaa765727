package experiment

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/mlscenes/agent"
	env "github.com/samuelfneumann/mlscenes/environment"
	"github.com/samuelfneumann/mlscenes/experiment/checkpointer"
	"github.com/samuelfneumann/mlscenes/experiment/trackers"
	ts "github.com/samuelfneumann/mlscenes/timestep"
	"gonum.org/v1/gonum/mat"
)

// Online is an Experiment that runs an agent online only. No offline
// evaluation is performed.
//
// An Online experiment stops when its step budget or episode limit is
// reached, whichever comes first. A limit of 0 disables that limit,
// but at least one limit must be set. The experiment also stops when
// the environment's Reset returns an episode that is already over,
// which happens once a goal-locked agent has reached the goal: no
// further episodes could ever produce experience.
type Online struct {
	env   env.Environment
	agent agent.Agent

	maxSteps     uint
	maxEpisodes  uint
	currentSteps uint
	episodes     uint
	locked       bool

	trackers      []trackers.Tracker
	checkpointers []checkpointer.Checkpointer
	progress      Progress
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The steps parameter determines how
// many timesteps the experiment is run for, and the t parameter is a
// slice of trackers.Tracker which determine what data is saved.
func NewOnline(e env.Environment, a agent.Agent, steps uint,
	t ...trackers.Tracker) *Online {
	return &Online{env: e, agent: a, maxSteps: steps, trackers: t}
}

// SetEpisodeLimit sets the maximum number of episodes to run
func (o *Online) SetEpisodeLimit(episodes uint) {
	o.maxEpisodes = episodes
}

// SetProgress sets a Progress notified after every episode
func (o *Online) SetProgress(p Progress) {
	o.progress = p
}

// Register registers a trackers.Tracker with an Experiment so that
// data generated during the experiment can be tracked and saved
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// AddCheckpointer adds a Checkpointer which is given every TimeStep
// after the agent has learned from it
func (o *Online) AddCheckpointer(c checkpointer.Checkpointer) {
	o.checkpointers = append(o.checkpointers, c)
}

// RunEpisode runs a single episode of the experiment and returns
// whether the experiment is done
func (o *Online) RunEpisode() (bool, error) {
	if o.maxSteps == 0 && o.maxEpisodes == 0 {
		return true, errors.New("runEpisode: no step or episode limit set")
	}

	step, err := o.env.Reset()
	if err != nil {
		return true, fmt.Errorf("runEpisode: %w", err)
	}
	o.episodes++
	o.track(nil, step)

	// The episode ended as soon as it began
	if step.Last() {
		o.agent.EndEpisode()
		o.notify()
		o.locked = step.EndType() == ts.GoalLocked
		return true, nil
	}

	if err := o.agent.ObserveFirst(step); err != nil {
		return true, fmt.Errorf("runEpisode: %w", err)
	}

	for !step.Last() && o.stepsLeft() {
		o.currentSteps++

		// Select action, step in environment
		action := o.agent.SelectAction(step)
		step, _, err = o.env.Step(action)
		if err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}

		// Cache the environment step in each Tracker
		o.track(action, step)

		// Observe the timestep and step the agent
		if err := o.agent.Observe(action, step); err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}
		if err := o.agent.Step(); err != nil {
			return true, fmt.Errorf("runEpisode: %w", err)
		}

		for _, c := range o.checkpointers {
			if err := c.Checkpoint(step); err != nil {
				return true, fmt.Errorf("runEpisode: %w", err)
			}
		}
	}
	o.agent.EndEpisode()
	o.notify()

	return !o.stepsLeft() || o.episodesDone(), nil
}

// Run runs the entire experiment until a limit is reached
func (o *Online) Run() error {
	for {
		done, err := o.RunEpisode()
		if err != nil {
			return fmt.Errorf("run: %w", err)
		}
		if done {
			return nil
		}
	}
}

// Save saves all the data cached by the Trackers. All Trackers are
// saved even if some fail, and the first error is returned.
func (o *Online) Save() error {
	var first error
	for _, t := range o.trackers {
		if err := t.Save(); err != nil && first == nil {
			first = fmt.Errorf("save: %w", err)
		}
	}
	return first
}

// Steps returns the number of environment steps taken
func (o *Online) Steps() uint {
	return o.currentSteps
}

// Episodes returns the number of episodes started
func (o *Online) Episodes() uint {
	return o.episodes
}

// Locked returns whether the experiment stopped because the agent is
// locked out of further episodes
func (o *Online) Locked() bool {
	return o.locked
}

func (o *Online) stepsLeft() bool {
	return o.maxSteps == 0 || o.currentSteps < o.maxSteps
}

func (o *Online) episodesDone() bool {
	return o.maxEpisodes > 0 && o.episodes >= o.maxEpisodes
}

func (o *Online) notify() {
	if o.progress != nil {
		o.progress.Increment()
		o.progress.Display()
	}
}

// track tracks the current timestep by caching its data in each
// Tracker. The action is nil for the first step of an episode.
func (o *Online) track(action mat.Vector, t ts.TimeStep) {
	for _, tracker := range o.trackers {
		if at, ok := tracker.(trackers.ActionTracker); ok && action != nil {
			at.TrackAction(action, t)
			continue
		}
		tracker.Track(t)
	}
}
