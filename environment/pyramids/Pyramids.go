// Package pyramids implements the Pyramids switch-and-goal environment.
//
// An agent drives around a walled arena using force-driven movement.
// Touching the switch while it is off turns it on and gives a reward.
// What happens next depends on the switch policy: the episode can end,
// the agent and switch can be respawned, or the pyramid goal zone can
// be unlocked. Reaching the unlocked pyramid ends the episode with a
// reward of +2. Every step costs -1/MaxSteps.
//
// Actions are discrete:
//
//	Action	Meaning
//	0	Idle
//	1	Drive forward
//	2	Drive backward
//	3	Rotate right (clockwise seen from above)
//	4	Rotate left
//
// Out-of-range actions are treated as Idle.
//
// Observations are 10-dimensional:
//
//	Index	Observation
//	0	Switch state (1 on, 0 off)
//	1-3	Agent velocity in the agent's frame (right, up, forward)
//	4-6	Agent position (x, y, z)
//	7-9	Switch position (x, y, z)
//
// The arena floor is simulated as a top-down Box2D world: world x maps
// to Box2D X and world z maps to Box2D Y.
package pyramids

import (
	"fmt"
	"log"
	"math"
	"time"

	"github.com/ByteArena/box2d"
	env "github.com/samuelfneumann/mlscenes/environment"
	"github.com/samuelfneumann/mlscenes/environment/action"
	"github.com/samuelfneumann/mlscenes/environment/motion"
	"github.com/samuelfneumann/mlscenes/environment/toggle"
	"github.com/samuelfneumann/mlscenes/environment/zone"
	"github.com/samuelfneumann/mlscenes/episode"
	ts "github.com/samuelfneumann/mlscenes/timestep"
	"github.com/samuelfneumann/mlscenes/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

const (
	velocityIterations int = 8
	positionIterations int = 3
)

// contactDetector counts collisions of the agent with static bodies
type contactDetector struct {
	env *Env
}

func (c *contactDetector) BeginContact(contact box2d.B2ContactInterface) {
	if c.env.agent == contact.GetFixtureA().GetBody() ||
		c.env.agent == contact.GetFixtureB().GetBody() {
		c.env.bumps++
	}
}

func (c *contactDetector) EndContact(contact box2d.B2ContactInterface) {}

func (c *contactDetector) PreSolve(contact box2d.B2ContactInterface,
	oldManifold box2d.B2Manifold) {
}

func (c *contactDetector) PostSolve(contact box2d.B2ContactInterface,
	impulse *box2d.B2ContactImpulse) {
}

// Env implements the Pyramids environment
type Env struct {
	config Config
	logger *log.Logger

	world  box2d.B2World
	agent  *box2d.B2Body
	static []*box2d.B2Body
	bumps  int

	heading float64
	command action.Command

	decoder      *action.Decoder
	spawns       *env.ChoiceStarter
	headings     *env.UniformStarter
	switchSpawns *env.ChoiceStarter
	sw           *toggle.Switch
	switchZone   *zone.Zone
	evaluator    *zone.Evaluator
	ctrl         *episode.Controller
	stuck        *motion.StuckDetector
	recoveries   int
	maxSpeed     float64
	currentStep  ts.TimeStep
}

// New returns a new Pyramids environment and the first TimeStep of its
// first episode. Log messages are written to logger, which may be nil.
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

// Initialize builds the physics world and resolves all references
// between the components of the scene. Missing references are
// reported as environment.MissingDependencyError.
func (e *Env) Initialize(agentID string) error {
	c := e.config

	if len(c.SwitchSpawns) == 0 {
		return &env.MissingDependencyError{
			Component:  "pyramids agent",
			Dependency: "a switch",
		}
	}
	if c.Episode.Policy == episode.UnlockGoal && c.Goal == nil {
		return &env.MissingDependencyError{
			Component:  "unlock-goal switch policy",
			Dependency: "a goal zone",
		}
	}
	if c.DT <= 0 {
		return fmt.Errorf("initialize: tick length must be positive, "+
			"have %v", c.DT)
	}
	if c.ArenaSize <= c.AgentRadius || c.AgentRadius <= 0 {
		return fmt.Errorf("initialize: agent radius %v does not fit arena "+
			"of size %v", c.AgentRadius, c.ArenaSize)
	}
	if c.Damping <= 0 {
		return fmt.Errorf("initialize: damping must be positive, have %v",
			c.Damping)
	}

	var err error
	e.decoder, err = action.NewDecoder(action.Pyramids, 0)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	agentSpawns := make([]*mat.VecDense, len(c.AgentSpawns))
	for i, p := range c.AgentSpawns {
		agentSpawns[i] = mat.NewVecDense(3, []float64{p[0], AgentY, p[1]})
	}
	e.spawns, err = env.NewChoiceStarter(agentSpawns, c.Seed)
	if err != nil {
		return fmt.Errorf("initialize: agent spawns: %w", err)
	}
	e.headings = env.NewUniformStarter([]r1.Interval{{Min: -180, Max: 180}},
		c.Seed+1)

	switchSpawns := make([]*mat.VecDense, len(c.SwitchSpawns))
	for i, p := range c.SwitchSpawns {
		switchSpawns[i] = mat.NewVecDense(3, []float64{p[0], AgentY, p[1]})
	}
	e.switchSpawns, err = env.NewChoiceStarter(switchSpawns, c.Seed+2)
	if err != nil {
		return fmt.Errorf("initialize: switch spawns: %w", err)
	}
	e.sw, err = toggle.New("switch", switchSpawns)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	e.switchZone, err = zone.NewBox("switch", zone.Switch,
		e.sw.Position().RawVector().Data,
		[]float64{c.SwitchSize, 1, c.SwitchSize})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	zones := []*zone.Zone{e.switchZone}
	if c.Goal != nil {
		zones = append(zones, c.Goal)
	}
	e.evaluator, err = zone.NewEvaluator(zone.PyramidRules, zones, e.sw)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	if c.Stuck != nil {
		e.stuck, err = motion.NewStuckDetector(*c.Stuck)
		if err != nil {
			return fmt.Errorf("initialize: %w", err)
		}
	}

	e.ctrl, err = episode.NewController(c.Episode, agentID)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// Terminal speed under damping d with a velocity change of s per
	// tick of length dt is s/(d*dt)
	e.maxSpeed = c.Speed/(c.Damping*c.DT.Seconds()) + c.Speed

	e.buildWorld()
	return nil
}

// buildWorld creates the Box2D world holding the agent, the arena walls,
// and the obstacle blocks
func (e *Env) buildWorld() {
	c := e.config
	e.world = box2d.MakeB2World(box2d.MakeB2Vec2(0, 0))
	e.world.SetContactListener(&contactDetector{e})
	e.static = e.static[:0]

	// Walls
	wall := func(x, y, hx, hy float64) {
		def := box2d.MakeB2BodyDef()
		def.Type = 0 // Static body
		def.Position = box2d.MakeB2Vec2(x, y)
		body := e.world.CreateBody(&def)

		shape := box2d.NewB2PolygonShape()
		shape.SetAsBox(hx, hy)
		fix := box2d.MakeB2FixtureDef()
		fix.Shape = shape
		fix.Friction = 0.0
		body.CreateFixtureFromDef(&fix)

		e.static = append(e.static, body)
	}
	const thickness = 0.5
	size := c.ArenaSize + thickness
	wall(0, size, size+thickness, thickness)
	wall(0, -size, size+thickness, thickness)
	wall(size, 0, thickness, size+thickness)
	wall(-size, 0, thickness, size+thickness)

	for _, b := range c.Blocks {
		wall(b.X, b.Z, b.Width/2, b.Depth/2)
	}

	// Agent
	def := box2d.MakeB2BodyDef()
	def.Type = 2 // Dynamic body
	def.FixedRotation = true
	def.LinearDamping = c.Damping
	def.AllowSleep = false
	e.agent = e.world.CreateBody(&def)

	shape := box2d.NewB2CircleShape()
	shape.M_radius = c.AgentRadius
	fix := box2d.MakeB2FixtureDef()
	fix.Shape = shape
	fix.Density = 1.0
	fix.Friction = 0.0
	fix.Restitution = 0.0
	e.agent.CreateFixtureFromDef(&fix)
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

// Reset resets the environment to a new starting state, respawning the
// agent and the switch. If the agent reached the goal in a previous
// episode and goal-lock is enabled, the returned TimeStep is already
// the last in its episode.
func (e *Env) Reset() (ts.TimeStep, error) {
	e.ctrl.Interrupt()

	step := ts.New(ts.First, 0, e.config.Discount, nil, 0)
	if locked := e.ctrl.Begin(); locked {
		step.Observation = e.observation()
		step.SetEnd(ts.GoalLocked)
		e.currentStep = step
		return step, nil
	}

	if err := e.respawn(); err != nil {
		return ts.TimeStep{}, &env.Error{Op: "reset", Err: err}
	}
	e.bumps = 0
	e.recoveries = 0

	step.Observation = e.observation()
	e.currentStep = step
	return step, nil
}

// respawn moves the agent and switch back to spawn poses, zeroing the
// agent's velocity and turning the switch off
func (e *Env) respawn() error {
	start := e.spawns.Start()
	e.heading = 0
	if e.config.RandomHeading {
		e.heading = e.headings.Start().AtVec(0)
	}

	e.agent.SetTransform(box2d.MakeB2Vec2(start.AtVec(0), start.AtVec(2)), 0)
	e.agent.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
	e.agent.SetAngularVelocity(0)
	e.command = action.Command{}

	e.switchSpawns.Start()
	if err := e.sw.Reset(e.switchSpawns.LastIndex()); err != nil {
		return fmt.Errorf("respawn: %w", err)
	}
	e.switchZone.MoveTo(e.sw.Position())

	if e.stuck != nil {
		e.stuck.Reset()
	}
	return nil
}

// Step takes one step in the environment: the action is applied for a
// single tick of the physics simulation.
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

// Act decodes the action index into the command applied on the next
// tick. Act returns the decoded command and whether it was accepted,
// which it is unless the episode is over.
func (e *Env) Act(index int) (action.Command, bool) {
	cmd := e.decoder.Decode(index, e.Position())
	if !e.ctrl.Accepting() {
		return cmd, false
	}
	e.command = cmd
	return cmd, true
}

// Tick advances the scene by dt: the latched command rotates and drives
// the agent, the physics world is stepped, and zone overlaps are
// evaluated. A latched command is applied for a single tick.
func (e *Env) Tick(dt time.Duration) error {
	if !e.ctrl.Accepting() {
		return nil
	}

	if e.command.Turn != 0 {
		e.heading = motion.Turn(e.heading, e.command.Turn,
			e.config.TurnRate, dt)
	}
	if e.command.Drive != 0 {
		e.drive(e.command.Drive)
	}
	e.command = action.Command{}

	before := e.agent.GetPosition()
	e.world.Step(dt.Seconds(), velocityIterations, positionIterations)
	after := e.agent.GetPosition()

	if e.stuck != nil {
		displacement := math.Hypot(after.X-before.X, after.Y-before.Y)
		if r, ok := e.stuck.Observe(displacement, dt); ok {
			e.recoveries++
			e.heading = floatutils.Wrap(e.heading+r.Turn, -180, 180)
			e.drive(1)
			if e.logger != nil {
				e.logger.Printf("agent %s stuck at (%.2f, %.2f), recovery "+
					"attempt %d", e.ctrl.AgentID(), after.X, after.Y,
					r.Attempt)
			}
		}
	}

	event, z := e.evaluator.Evaluate(e.Position(), e.config.AgentRadius)
	if event == zone.None {
		return nil
	}
	_, err := e.handle(event, z)
	return err
}

// drive applies a velocity change of Speed along the agent's facing,
// in the direction of sign
func (e *Env) drive(sign float64) {
	dv := motion.DesiredVelocity(e.heading, sign, e.config.Speed)
	mass := e.agent.GetMass()
	impulse := box2d.MakeB2Vec2(dv.AtVec(0)*mass, dv.AtVec(2)*mass)
	e.agent.ApplyLinearImpulse(impulse, e.agent.GetWorldCenter(), true)
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
	if outcome == episode.Ignored {
		return outcome, nil
	}

	if event == zone.SwitchActivated {
		e.sw.Activate()
	}

	switch outcome {
	case episode.Respawn:
		if err := e.respawn(); err != nil {
			return outcome, fmt.Errorf("handle %v: %w", event, err)
		}

	case episode.End:
		e.agent.SetLinearVelocity(box2d.MakeB2Vec2(0, 0))
		if e.logger != nil && agent != e.ctrl.AgentID() {
			e.logger.Printf("agent %s reached %s, handing off to %s",
				agent, z.ID, e.ctrl.AgentID())
		}
	}
	return outcome, nil
}

func (e *Env) observation() *mat.VecDense {
	pos := e.agent.GetPosition()
	vel := e.agent.GetLinearVelocity()
	local := motion.ToLocal(e.heading, mat.NewVecDense(3, []float64{vel.X,
		0, vel.Y}))
	sw := e.sw.Position()

	return mat.NewVecDense(Observations, []float64{
		e.sw.State(),
		local.AtVec(0), local.AtVec(1), local.AtVec(2),
		pos.X, AgentY, pos.Y,
		sw.AtVec(0), sw.AtVec(1), sw.AtVec(2),
	})
}

// CurrentTimeStep returns the current TimeStep of the environment
func (e *Env) CurrentTimeStep() ts.TimeStep {
	return e.currentStep
}

// Position returns the agent's position
func (e *Env) Position() *mat.VecDense {
	pos := e.agent.GetPosition()
	return mat.NewVecDense(3, []float64{pos.X, AgentY, pos.Y})
}

// Velocity returns the agent's velocity in the world frame
func (e *Env) Velocity() *mat.VecDense {
	vel := e.agent.GetLinearVelocity()
	return mat.NewVecDense(3, []float64{vel.X, 0, vel.Y})
}

// Heading returns the agent's heading in degrees, clockwise from +z
func (e *Env) Heading() float64 {
	return e.heading
}

// Switch returns the switch of the scene
func (e *Env) Switch() *toggle.Switch {
	return e.sw
}

// SwitchZone returns the zone that activates the switch
func (e *Env) SwitchZone() *zone.Zone {
	return e.switchZone
}

// Goal returns the pyramid goal zone, which may be nil
func (e *Env) Goal() *zone.Zone {
	return e.config.Goal
}

// Bumps returns the number of collisions of the agent with walls and
// blocks in the current episode
func (e *Env) Bumps() int {
	return e.bumps
}

// Recoveries returns the number of stuck recoveries forced in the
// current episode
func (e *Env) Recoveries() int {
	return e.recoveries
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
	size := e.config.ArenaSize
	v := e.maxSpeed

	lowerBound := mat.NewVecDense(Observations, []float64{
		0, -v, 0, -v, -size, AgentY, -size, -size, AgentY, -size,
	})
	upperBound := mat.NewVecDense(Observations, []float64{
		1, v, 0, v, size, AgentY, size, size, AgentY, size,
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
	max := math.Max(math.Max(r.Goal, r.Switch), 0)
	return env.ScalarSpec(env.Reward, min, max, env.Continuous)
}
