// Package crossroad implements the cross-the-road environment.
//
// An agent starts on the pavement at one of several spawn positions and
// must cross a road to reach a goal zone on the far side. Each action
// moves the agent a fixed step along a grid at constant speed, and a
// new action is only accepted once the previous move has finished.
// Once the agent is on the road it can no longer move sideways. Lanes
// of traffic sweep across the road; touching a car ends the episode
// with a small penalty, and reaching the goal ends the episode with a
// reward of +1.
//
// Actions are discrete:
//
//	Action	Meaning
//	0	Idle
//	1	Left  (-x)
//	2	Right (+x)
//	3	Forward (+z)
//
// Out-of-range actions are treated as Idle.
//
// Observations are 6-dimensional: the (x, y, z) position of the agent
// followed by the (x, y, z) position of the goal.
package crossroad

import (
	"fmt"
	"log"
	"math"
	"time"

	env "github.com/samuelfneumann/mlscenes/environment"
	"github.com/samuelfneumann/mlscenes/environment/action"
	"github.com/samuelfneumann/mlscenes/environment/motion"
	"github.com/samuelfneumann/mlscenes/environment/zone"
	"github.com/samuelfneumann/mlscenes/episode"
	ts "github.com/samuelfneumann/mlscenes/timestep"
	"github.com/samuelfneumann/mlscenes/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	DefaultSpeed        float64       = 5.0
	DefaultStepAmount   float64       = 5.0
	DefaultRoadBoundary float64       = 5.0
	DefaultRadius       float64       = 0.4
	DefaultSpawnY       float64       = 0.5
	DefaultDT           time.Duration = 100 * time.Millisecond
	DefaultMaxSteps     int           = 500
	DefaultDiscount     float64       = 0.99

	Observations int = 6
)

// DefaultSpawnX holds the default spawn positions along the x axis
var DefaultSpawnX = []float64{0.01, 5.01, 10.01, -5.01, -10.01}

// Config configures a cross-the-road environment
type Config struct {
	Speed        float64
	StepAmount   float64
	RoadBoundary float64
	Radius       float64

	SpawnX []float64
	SpawnY float64
	SpawnZ float64

	// XBounds bounds the agent's x position, modelling the walls at
	// either side of the scene
	XBounds r1.Interval

	Goal  *zone.Zone
	Lanes []Lane

	DT       time.Duration
	Discount float64
	Episode  episode.Config
	Seed     uint64
}

// DefaultConfig returns the default cross-the-road configuration: two
// lanes of traffic between the road boundary and a goal row at z = 20
func DefaultConfig() Config {
	goal, err := zone.NewBox("goal", zone.Goal, []float64{0, DefaultSpawnY,
		20}, []float64{30, 1, 2})
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}

	bounds := r1.Interval{Min: -15, Max: 15}
	return Config{
		Speed:        DefaultSpeed,
		StepAmount:   DefaultStepAmount,
		RoadBoundary: DefaultRoadBoundary,
		Radius:       DefaultRadius,
		SpawnX:       append([]float64(nil), DefaultSpawnX...),
		SpawnY:       DefaultSpawnY,
		XBounds:      bounds,
		Goal:         goal,
		Lanes: []Lane{
			{Z: 10, Speed: 4, Cars: []float64{-10, 5},
				Size: [3]float64{3, 1, 1.5}, Bounds: bounds},
			{Z: 15, Speed: -6, Cars: []float64{0},
				Size: [3]float64{3, 1, 1.5}, Bounds: bounds},
		},
		DT:       DefaultDT,
		Discount: DefaultDiscount,
		Episode: episode.Config{
			MaxSteps: DefaultMaxSteps,
			Rewards:  episode.CrossRoadRewards(),
		},
	}
}

// Env implements the cross-the-road environment
type Env struct {
	config Config
	logger *log.Logger

	decoder   *action.Decoder
	mover     *motion.Linear
	starter   *env.ChoiceStarter
	evaluator *zone.Evaluator
	ctrl      *episode.Controller

	traffic []*traffic
	hazards []*zone.Zone

	position *mat.VecDense
	blend    action.Blend

	currentStep ts.TimeStep
}

// New returns a new cross-the-road environment and the first TimeStep
// of its first episode. Log messages are written to logger, which may
// be nil.
func New(c Config, agentID string, logger *log.Logger) (*Env, ts.TimeStep,
	error) {
	e := &Env{config: c, logger: logger}
	if err := e.Initialize(agentID); err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}

	step, err := e.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %w", err)
	}
	return e, step, nil
}

// Initialize resolves all references between the components of the
// scene. Missing references are reported as
// environment.MissingDependencyError.
func (e *Env) Initialize(agentID string) error {
	c := e.config

	if c.Goal == nil {
		return &env.MissingDependencyError{
			Component:  "cross-the-road agent",
			Dependency: "a goal zone",
		}
	}
	if c.DT <= 0 {
		return fmt.Errorf("initialize: tick length must be positive, "+
			"have %v", c.DT)
	}
	if c.Radius < 0 {
		return fmt.Errorf("initialize: negative agent radius %v", c.Radius)
	}
	if c.XBounds.Min >= c.XBounds.Max {
		e.config.XBounds = r1.Interval{Min: math.Inf(-1), Max: math.Inf(1)}
	}

	decoder, err := action.NewDecoder(action.CrossRoad, c.StepAmount)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	e.decoder = decoder.WithRoadBoundary(c.RoadBoundary)

	e.mover, err = motion.NewLinear(c.Speed)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	spawns := make([]*mat.VecDense, len(c.SpawnX))
	for i, x := range c.SpawnX {
		spawns[i] = mat.NewVecDense(3, []float64{x, c.SpawnY, c.SpawnZ})
	}
	e.starter, err = env.NewChoiceStarter(spawns, c.Seed)
	if err != nil {
		return fmt.Errorf("initialize: spawn positions: %w", err)
	}

	e.traffic = e.traffic[:0]
	e.hazards = e.hazards[:0]
	for i, lane := range c.Lanes {
		t, err := newTraffic(i, lane, c.SpawnY)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
		e.traffic = append(e.traffic, t)
		e.hazards = append(e.hazards, t.cars...)
	}

	zones := append([]*zone.Zone{c.Goal}, e.hazards...)
	e.evaluator, err = zone.NewEvaluator(zone.CrossRoadRules, zones, nil)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	e.ctrl, err = episode.NewController(c.Episode, agentID)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	e.position = spawns[0]
	return nil
}

// SetSuccessor sets the Successor activated when the agent reaches the
// goal with hand-off enabled
func (e *Env) SetSuccessor(s episode.Successor) {
	e.ctrl.SetSuccessor(s)
}

// Register registers a Listener notified at the end of each episode
func (e *Env) Register(l episode.Listener) {
	e.ctrl.Register(l)
}

// Reset resets the environment to a new starting state. If the agent
// reached the goal in a previous episode and goal-lock is enabled,
// the returned TimeStep is already the last in its episode.
func (e *Env) Reset() (ts.TimeStep, error) {
	e.ctrl.Interrupt()

	if locked := e.ctrl.Begin(); locked {
		step := ts.New(ts.First, 0, e.config.Discount, e.observation(), 0)
		step.SetEnd(ts.GoalLocked)
		e.currentStep = step
		return step, nil
	}

	e.position = e.starter.Start()
	e.mover.Stop(e.position)
	e.blend = action.Blend{}
	for _, t := range e.traffic {
		t.reset()
	}

	step := ts.New(ts.First, 0, e.config.Discount, e.observation(), 0)
	e.currentStep = step
	return step, nil
}

// Step takes one step in the environment: the action is latched if the
// agent is not already moving, and the scene is advanced by one tick.
func (e *Env) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if e.currentStep.Last() {
		return ts.TimeStep{}, true, &env.Error{Op: "step",
			Err: env.ErrEpisodeOver}
	}
	if a.Len() != 1 {
		return ts.TimeStep{}, false, &env.Error{Op: "step",
			Err: fmt.Errorf("%w: want 1 dimension, have %d",
				env.ErrIllegalAction, a.Len())}
	}

	e.ctrl.Tick()
	e.Act(action.IndexOf(a.AtVec(0)))
	tickErr := e.Tick(e.config.DT)

	end := e.ctrl.EndStep()
	step := ts.New(ts.Mid, e.ctrl.TakeStepReward(), e.config.Discount,
		e.observation(), e.currentStep.Number+1)
	if end != ts.NotEnded {
		step.SetEnd(end)
	}
	e.currentStep = step

	if tickErr != nil {
		return step, step.Last(), &env.Error{Op: "step", Err: tickErr}
	}
	return step, step.Last(), nil
}

// Act decodes the action index and latches the resulting move. Act
// returns the decoded command and whether it was accepted. Commands
// are refused while a move is in progress or once the episode is over.
func (e *Env) Act(index int) (action.Command, bool) {
	cmd := e.decoder.Decode(index, e.position)
	if !e.ctrl.Accepting() || e.mover.InProgress() {
		return cmd, false
	}

	if cmd.HasBlend {
		e.blend = cmd.Blend
	}
	target := cmd.Target(e.position)
	target.SetVec(0, floatutils.ClipInterval(target.AtVec(0),
		e.config.XBounds))
	e.mover.Command(e.position, target)
	return cmd, true
}

// Tick advances the scene by dt: traffic drives, the agent moves
// towards its target, and zone overlaps are evaluated.
func (e *Env) Tick(dt time.Duration) error {
	for _, t := range e.traffic {
		t.advance(dt)
	}

	if !e.ctrl.Accepting() {
		return nil
	}

	next, arrived := e.mover.Advance(e.position, dt)
	e.position = next
	if arrived {
		e.blend = action.Blend{}
	}

	event, z := e.evaluator.Evaluate(e.position, e.config.Radius)
	if event == zone.None {
		return nil
	}
	_, err := e.handle(event, z)
	return err
}

// OnOverlap notifies the environment that the agent touched zone z,
// for hosts that run their own collision detection
func (e *Env) OnOverlap(z *zone.Zone) (episode.Outcome, error) {
	return e.handle(e.evaluator.Classify(z), z)
}

func (e *Env) handle(event zone.Event, z *zone.Zone) (episode.Outcome,
	error) {
	agent := e.ctrl.AgentID()
	outcome, err := e.ctrl.Handle(event)
	if err != nil {
		return outcome, fmt.Errorf("handle %v: %w", event, err)
	}

	if outcome == episode.End {
		e.mover.Stop(e.position)
		e.blend = action.Blend{}
		if e.logger != nil && agent != e.ctrl.AgentID() {
			e.logger.Printf("agent %s reached %s, handing off to %s",
				agent, z.ID, e.ctrl.AgentID())
		}
	}
	return outcome, nil
}

func (e *Env) observation() *mat.VecDense {
	goal := e.config.Goal.Center()
	return mat.NewVecDense(Observations, []float64{
		e.position.AtVec(0), e.position.AtVec(1), e.position.AtVec(2),
		goal.AtVec(0), goal.AtVec(1), goal.AtVec(2),
	})
}

// CurrentTimeStep returns the current TimeStep of the environment
func (e *Env) CurrentTimeStep() ts.TimeStep {
	return e.currentStep
}

// Position returns a copy of the agent's position
func (e *Env) Position() *mat.VecDense {
	return mat.VecDenseCopyOf(e.position)
}

// Moving returns whether a move is in progress
func (e *Env) Moving() bool {
	return e.mover.InProgress()
}

// Blend returns the current animation intent of the agent
func (e *Env) Blend() action.Blend {
	return e.blend
}

// Goal returns the goal zone
func (e *Env) Goal() *zone.Zone {
	return e.config.Goal
}

// Hazards returns the traffic hazard zones
func (e *Env) Hazards() []*zone.Zone {
	return e.hazards
}

// Controller returns the episode controller of the environment
func (e *Env) Controller() *episode.Controller {
	return e.ctrl
}

// Config returns the configuration of the environment
func (e *Env) Config() Config {
	return e.config
}

// ActionSpec returns the action specification of the environment
func (e *Env) ActionSpec() env.Spec {
	return env.ScalarSpec(env.Action, 0, float64(e.decoder.Actions()-1),
		env.Discrete)
}

// ObservationSpec returns the observation specification of the
// environment
func (e *Env) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(Observations, nil)

	goal := e.config.Goal.Center()
	minZ := math.Min(e.config.SpawnZ, goal.AtVec(2))
	maxZ := math.Max(e.config.SpawnZ, goal.AtVec(2)) + e.config.StepAmount
	lowerBound := mat.NewVecDense(Observations, []float64{
		e.config.XBounds.Min, e.config.SpawnY, minZ,
		goal.AtVec(0), goal.AtVec(1), goal.AtVec(2),
	})
	upperBound := mat.NewVecDense(Observations, []float64{
		e.config.XBounds.Max, e.config.SpawnY, maxZ,
		goal.AtVec(0), goal.AtVec(1), goal.AtVec(2),
	})

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Continuous)
}

// DiscountSpec returns the discount specification of the environment
func (e *Env) DiscountSpec() env.Spec {
	return env.ScalarSpec(env.Discount, e.config.Discount, e.config.Discount,
		env.Continuous)
}

// RewardSpec returns the reward specification of the environment
func (e *Env) RewardSpec() env.Spec {
	r := e.config.Episode.Rewards
	min := math.Min(r.Hazard, 0)
	if r.StepPenalty {
		min -= 1.0 / float64(e.config.Episode.MaxSteps)
	}
	max := math.Max(r.Goal, 0)
	return env.ScalarSpec(env.Reward, min, max, env.Continuous)
}
