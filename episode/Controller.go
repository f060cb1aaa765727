// Package episode implements the reward and episode controller shared
// by all scenarios. The Controller is a per-agent state machine:
//
//	Running --(terminal event)--> Terminal --(EndStep)--> Ended
//	Running --(step limit)--------------------(EndStep)--> Ended
//	Running --(switch, soft-reset policy)--> Running
//
// Once an episode leaves Running, no further reward or event processing
// happens until the next call to Begin.
package episode

import (
	"errors"
	"fmt"

	"github.com/samuelfneumann/mlscenes/environment/zone"
	ts "github.com/samuelfneumann/mlscenes/timestep"
)

// State is the state of the Controller's state machine
type State int

const (
	Running State = iota
	Terminal
	Ended
)

func (s State) String() string {
	switch s {
	case Running:
		return "Running"
	case Terminal:
		return "Terminal"
	default:
		return "Ended"
	}
}

// Outcome tells the environment what to do after the Controller
// handled an event
type Outcome int

const (
	// Ignored means the event caused no change
	Ignored Outcome = iota

	// Continue means reward was given and the episode keeps running
	Continue

	// Respawn means reward was given and the environment must move the
	// agent and switch back to their spawn poses without ending the
	// episode
	Respawn

	// End means the episode will end at the end of the current step
	End
)

func (o Outcome) String() string {
	switch o {
	case Continue:
		return "Continue"
	case Respawn:
		return "Respawn"
	case End:
		return "End"
	default:
		return "Ignored"
	}
}

// ErrNoSuccessor is wrapped by Successors that cannot activate any
// more agent instances. Under goal-lock, the current instance then
// stays active and locked, so the next episode ends immediately.
var ErrNoSuccessor = errors.New("no successor available")

// Successor activates a different agent instance when an agent reaches
// the goal. It returns the ID of the newly activated agent.
type Successor interface {
	RequestSuccessorAgent() (string, error)
}

// Listener is notified whenever an episode ends
type Listener interface {
	EpisodeEnded(Summary)
}

// Summary describes a finished episode
type Summary struct {
	Episode int
	Steps   int
	Return  float64
	Event   zone.Event
	EndType ts.EndType
	AgentID string
}

func (s Summary) String() string {
	return fmt.Sprintf("episode %d (%s): %d steps, return %.2f, %v",
		s.Episode, s.AgentID, s.Steps, s.Return, s.EndType)
}

// Controller accumulates reward and decides when episodes end
type Controller struct {
	config Config

	state   State
	agentID string
	event   zone.Event

	steps int

	// stepReward is the reward not yet reported to the trainer. It
	// includes rewards scored by host events between steps.
	stepReward   float64
	episodeTotal float64

	// locked records agent instances that reached the goal while
	// goal-lock is enabled
	locked map[string]bool

	successor Successor
	listeners []Listener
	stats     Stats
	episodes  int
}

// NewController returns a new Controller for the agent with the given
// ID. The Controller starts Ended, Begin must be called to start the
// first episode.
func NewController(c Config, agentID string) (*Controller, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newController: %w", err)
	}

	return &Controller{
		config:  c,
		state:   Ended,
		agentID: agentID,
		locked:  make(map[string]bool),
	}, nil
}

// SetSuccessor sets the Successor used for hand-off on reaching the
// goal
func (c *Controller) SetSuccessor(s Successor) {
	c.successor = s
}

// Register adds a Listener notified at the end of every episode
func (c *Controller) Register(l Listener) {
	c.listeners = append(c.listeners, l)
}

// Begin starts a new episode. If goal-lock is enabled and the current
// agent instance already reached the goal, the episode ends
// immediately and Begin returns true.
func (c *Controller) Begin() bool {
	c.episodes++
	c.steps = 0
	c.stepReward = 0
	c.episodeTotal = 0
	c.event = zone.None
	c.state = Running

	if c.config.GoalLock && c.locked[c.agentID] {
		c.finish(ts.GoalLocked)
		return true
	}
	return false
}

// Tick begins a new step, applying the step penalty. Tick returns
// false, and does nothing, if the episode is no longer running.
func (c *Controller) Tick() bool {
	if c.state != Running {
		return false
	}

	c.steps++
	if c.config.Rewards.StepPenalty && c.config.MaxSteps > 0 {
		c.add(-1.0 / float64(c.config.MaxSteps))
	}
	return true
}

// Handle processes an event from the terminal condition evaluator and
// returns what the environment should do in response. Events are
// ignored once the episode has left the Running state, so a terminal
// event is scored at most once per episode.
func (c *Controller) Handle(event zone.Event) (Outcome, error) {
	if c.state != Running {
		return Ignored, nil
	}

	switch event {
	case zone.GoalReached:
		c.add(c.config.Rewards.Goal)
		c.terminate(event)
		if c.config.GoalLock {
			c.locked[c.agentID] = true
		}

		if c.config.HandOff {
			if c.successor == nil {
				return End, fmt.Errorf("handle: hand-off: %w",
					errMissingSuccessor)
			}
			id, err := c.successor.RequestSuccessorAgent()
			switch {
			case errors.Is(err, ErrNoSuccessor) && c.config.GoalLock:
				// The locked instance keeps control
			case err != nil:
				return End, fmt.Errorf("handle: hand-off: %w", err)
			default:
				c.agentID = id
			}
		}
		return End, nil

	case zone.HazardReached:
		c.add(c.config.Rewards.Hazard)
		c.terminate(event)
		return End, nil

	case zone.SwitchActivated:
		c.add(c.config.Rewards.Switch)
		switch c.config.Policy {
		case EndEpisode:
			c.terminate(event)
			return End, nil
		case SoftReset:
			return Respawn, nil
		default:
			return Continue, nil
		}
	}

	return Ignored, nil
}

// EndStep finishes the current step. If a terminal event occurred or
// the step limit was reached, the episode ends and the reason is
// returned. Otherwise, NotEnded is returned.
func (c *Controller) EndStep() ts.EndType {
	switch {
	case c.state == Terminal:
		c.finish(ts.TerminalStateReached)
		return ts.TerminalStateReached

	case c.state == Running && c.config.MaxSteps > 0 &&
		c.steps >= c.config.MaxSteps:
		c.finish(ts.Timeout)
		return ts.Timeout
	}
	return ts.NotEnded
}

// Interrupt ends a running episode early, for example when the
// environment is reset before the episode finished. An episode whose
// terminal event was already scored ends as if its step had finished.
// Any other partial episode is counted as a timeout, unless nothing
// happened in it yet, in which case it is discarded.
func (c *Controller) Interrupt() {
	switch {
	case c.state == Ended:
		return
	case c.state == Terminal:
		c.finish(ts.TerminalStateReached)
	case c.state == Running && c.steps == 0 && c.episodeTotal == 0:
		c.episodes--
		c.state = Ended
	default:
		c.finish(ts.Timeout)
	}
}

// Accepting returns whether the Controller accepts actions and events
func (c *Controller) Accepting() bool {
	return c.state == Running
}

// State returns the current state of the Controller
func (c *Controller) State() State {
	return c.state
}

// AgentID returns the ID of the agent instance currently controlled
func (c *Controller) AgentID() string {
	return c.agentID
}

// Locked returns whether the agent instance with the argument ID has
// reached the goal under goal-lock
func (c *Controller) Locked(agentID string) bool {
	return c.locked[agentID]
}

// StepReward returns the reward accumulated since it was last taken
func (c *Controller) StepReward() float64 {
	return c.stepReward
}

// TakeStepReward returns the reward accumulated since the last call
// and clears it
func (c *Controller) TakeStepReward() float64 {
	r := c.stepReward
	c.stepReward = 0
	return r
}

// EpisodeReturn returns the reward accumulated in the current episode
func (c *Controller) EpisodeReturn() float64 {
	return c.episodeTotal
}

// Steps returns the number of steps taken in the current episode
func (c *Controller) Steps() int {
	return c.steps
}

// Event returns the terminal event of the current episode, or
// zone.None
func (c *Controller) Event() zone.Event {
	return c.event
}

// Stats returns the statistics accumulated over completed episodes
func (c *Controller) Stats() Stats {
	return c.stats
}

// Config returns the configuration of the Controller
func (c *Controller) Config() Config {
	return c.config
}

func (c *Controller) add(r float64) {
	c.stepReward += r
	c.episodeTotal += r
}

func (c *Controller) terminate(event zone.Event) {
	c.event = event
	c.state = Terminal
}

func (c *Controller) finish(end ts.EndType) {
	c.state = Ended

	summary := Summary{
		Episode: c.episodes,
		Steps:   c.steps,
		Return:  c.episodeTotal,
		Event:   c.event,
		EndType: end,
		AgentID: c.agentID,
	}
	c.stats.Add(summary)
	for _, l := range c.listeners {
		l.EpisodeEnded(summary)
	}
}
