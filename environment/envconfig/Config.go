// Package envconfig provides YAML configuration of scenarios. A Config
// describes a whole scene: the scenario, the reward table, the episode
// policies, and the layout of spawns, zones, traffic and obstacles.
// Configs are validated before any environment is built so that
// missing references between scene components fail fast.
package envconfig

import (
	"fmt"
	"log"
	"os"
	"time"

	env "github.com/samuelfneumann/mlscenes/environment"
	"github.com/samuelfneumann/mlscenes/environment/crossroad"
	"github.com/samuelfneumann/mlscenes/environment/motion"
	"github.com/samuelfneumann/mlscenes/environment/pyramids"
	"github.com/samuelfneumann/mlscenes/environment/zone"
	"github.com/samuelfneumann/mlscenes/episode"
	"github.com/samuelfneumann/mlscenes/episode/registry"
	ts "github.com/samuelfneumann/mlscenes/timestep"
	"gonum.org/v1/gonum/spatial/r1"
	"gopkg.in/yaml.v3"
)

// Scenario names a scenario that can be configured with this package
type Scenario string

// Scenarios available for configuration
const (
	CrossRoad Scenario = "crossroad"
	Pyramids  Scenario = "pyramids"
)

// Config implements a configuration of a scene
type Config struct {
	Scenario Scenario `yaml:"scenario"`
	Seed     uint64   `yaml:"seed"`
	TickMs   int      `yaml:"tick_ms"`
	MaxSteps int      `yaml:"max_steps"`
	Discount float64  `yaml:"discount"`

	Rewards      episode.Rewards      `yaml:"rewards"`
	SwitchPolicy episode.SwitchPolicy `yaml:"switch_policy"`
	GoalLock     bool                 `yaml:"goal_lock"`
	HandOff      bool                 `yaml:"hand_off"`

	// SuccessorLimit bounds the number of agent instances created by
	// hand-off, 0 means no bound
	SuccessorLimit int `yaml:"successor_limit"`

	Agent  Agent       `yaml:"agent"`
	Spawns [][]float64 `yaml:"spawns"`
	Goal   *Box        `yaml:"goal"`

	// Cross-the-road layout
	RoadBoundary float64   `yaml:"road_boundary"`
	XBounds      []float64 `yaml:"x_bounds"`
	Lanes        []Lane    `yaml:"lanes"`

	// Pyramids layout
	ArenaSize float64 `yaml:"arena_size"`
	Switch    *Switch `yaml:"switch"`
	Blocks    []Block `yaml:"blocks"`
	Stuck     *Stuck  `yaml:"stuck"`
}

// Agent configures the agent's body and movement
type Agent struct {
	Speed         float64 `yaml:"speed"`
	Step          float64 `yaml:"step"`
	Radius        float64 `yaml:"radius"`
	Height        float64 `yaml:"height"`
	TurnRate      float64 `yaml:"turn_rate"`
	Damping       float64 `yaml:"damping"`
	RandomHeading bool    `yaml:"random_heading"`
}

// Box configures an axis-aligned zone
type Box struct {
	ID     string    `yaml:"id"`
	Center []float64 `yaml:"center"`
	Size   []float64 `yaml:"size"`
}

// Lane configures a lane of traffic
type Lane struct {
	Z      float64   `yaml:"z"`
	Speed  float64   `yaml:"speed"`
	Cars   []float64 `yaml:"cars"`
	Size   []float64 `yaml:"size"`
	Bounds []float64 `yaml:"bounds"`
}

// Switch configures the Pyramids switch
type Switch struct {
	Size   float64     `yaml:"size"`
	Spawns [][]float64 `yaml:"spawns"`
}

// Block configures a static obstacle
type Block struct {
	X     float64 `yaml:"x"`
	Z     float64 `yaml:"z"`
	Width float64 `yaml:"width"`
	Depth float64 `yaml:"depth"`
}

// Stuck configures stuck recovery
type Stuck struct {
	Threshold   float64 `yaml:"threshold"`
	TimeoutMs   int     `yaml:"timeout_ms"`
	TurnDegrees float64 `yaml:"turn_degrees"`
	MaxAttempts int     `yaml:"max_attempts"`
}

// Load reads and parses the Config stored at path
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	c, err := Parse(raw)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse parses a YAML Config. Fields missing from the document keep
// the defaults of the document's scenario.
func Parse(raw []byte) (Config, error) {
	var probe struct {
		Scenario Scenario `yaml:"scenario"`
	}
	if err := yaml.Unmarshal(raw, &probe); err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}

	c, err := Default(probe.Scenario)
	if err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Config{}, fmt.Errorf("parse: %w", err)
	}
	return c, nil
}

// Marshal returns the YAML encoding of the Config
func (c Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Default returns the default Config of a scenario
func Default(s Scenario) (Config, error) {
	switch s {
	case CrossRoad:
		return fromCrossRoad(crossroad.DefaultConfig()), nil
	case Pyramids:
		return fromPyramids(pyramids.DefaultConfig()), nil
	}
	return Config{}, fmt.Errorf("default: no such scenario %q", s)
}

// Validate checks that all references between scene components are
// set. Missing references are reported as a
// *environment.MissingDependencyError.
func (c Config) Validate() error {
	if c.TickMs <= 0 {
		return fmt.Errorf("validate: tick_ms must be positive, have %d",
			c.TickMs)
	}
	if len(c.Spawns) == 0 {
		return &env.MissingDependencyError{
			Component:  string(c.Scenario) + " agent",
			Dependency: "a spawn position",
		}
	}
	for i, s := range c.Spawns {
		if len(s) != 2 {
			return fmt.Errorf("validate: spawn %d must be [x, z], have %v",
				i, s)
		}
	}
	if err := c.episode().Validate(); err != nil {
		return err
	}

	switch c.Scenario {
	case CrossRoad:
		if c.Goal == nil {
			return &env.MissingDependencyError{
				Component:  "crossroad agent",
				Dependency: "a goal zone",
			}
		}
		if len(c.XBounds) != 0 && len(c.XBounds) != 2 {
			return fmt.Errorf("validate: x_bounds must be [min, max], "+
				"have %v", c.XBounds)
		}
		for i, l := range c.Lanes {
			if len(l.Size) != 3 || len(l.Bounds) != 2 {
				return fmt.Errorf("validate: lane %d needs a 3-dimensional "+
					"size and [min, max] bounds", i)
			}
		}

	case Pyramids:
		if c.Switch == nil || len(c.Switch.Spawns) == 0 {
			return &env.MissingDependencyError{
				Component:  "pyramids agent",
				Dependency: "a switch",
			}
		}
		for i, s := range c.Switch.Spawns {
			if len(s) != 2 {
				return fmt.Errorf("validate: switch spawn %d must be "+
					"[x, z], have %v", i, s)
			}
		}
		if c.SwitchPolicy == episode.UnlockGoal && c.Goal == nil {
			return &env.MissingDependencyError{
				Component:  "unlock-goal switch policy",
				Dependency: "a goal zone",
			}
		}

	default:
		return fmt.Errorf("validate: no such scenario %q", c.Scenario)
	}
	return nil
}

// Scene is an environment created from a Config
type Scene interface {
	env.Environment
	Controller() *episode.Controller
	Register(episode.Listener)
}

// Create validates the Config and returns the scene it describes, as
// well as the first timestep of the scene. If hand-off is enabled, a
// registry of agent instances is wired in as the scene's successor.
func (c Config) Create(logger *log.Logger) (Scene, *registry.Registry,
	ts.TimeStep, error) {
	if err := c.Validate(); err != nil {
		return nil, nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}

	reg, err := registry.New(c.SuccessorLimit)
	if err != nil {
		return nil, nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
	}

	switch c.Scenario {
	case CrossRoad:
		cfg, err := c.crossRoad()
		if err != nil {
			return nil, nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
		}
		e, step, err := crossroad.New(cfg, reg.Active(), logger)
		if err != nil {
			return nil, nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
		}
		if c.HandOff {
			e.SetSuccessor(reg)
		}
		return e, reg, step, nil

	case Pyramids:
		cfg, err := c.pyramids()
		if err != nil {
			return nil, nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
		}
		e, step, err := pyramids.New(cfg, reg.Active(), logger)
		if err != nil {
			return nil, nil, ts.TimeStep{}, fmt.Errorf("create: %w", err)
		}
		if c.HandOff {
			e.SetSuccessor(reg)
		}
		return e, reg, step, nil
	}

	panic(fmt.Sprintf("create: no such scenario %v", c.Scenario))
}

func (c Config) episode() episode.Config {
	return episode.Config{
		MaxSteps: c.MaxSteps,
		Rewards:  c.Rewards,
		Policy:   c.SwitchPolicy,
		GoalLock: c.GoalLock,
		HandOff:  c.HandOff,
	}
}

func (c Config) tick() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

func (b *Box) zone(kind zone.Kind) (*zone.Zone, error) {
	if b == nil {
		return nil, nil
	}
	id := b.ID
	if id == "" {
		id = kind.String()
	}
	return zone.NewBox(id, kind, b.Center, b.Size)
}

func fromZone(z *zone.Zone) *Box {
	if z == nil {
		return nil
	}
	size := z.Size()
	return &Box{
		ID:     z.ID,
		Center: z.Center().RawVector().Data,
		Size:   size[:],
	}
}

// crossRoad converts the Config to a crossroad.Config
func (c Config) crossRoad() (crossroad.Config, error) {
	goal, err := c.Goal.zone(zone.Goal)
	if err != nil {
		return crossroad.Config{}, fmt.Errorf("crossRoad: goal: %w", err)
	}

	cfg := crossroad.Config{
		Speed:        c.Agent.Speed,
		StepAmount:   c.Agent.Step,
		RoadBoundary: c.RoadBoundary,
		Radius:       c.Agent.Radius,
		SpawnY:       c.Agent.Height,
		Goal:         goal,
		DT:           c.tick(),
		Discount:     c.Discount,
		Episode:      c.episode(),
		Seed:         c.Seed,
	}

	// All spawns share the z coordinate of the first
	for _, s := range c.Spawns {
		cfg.SpawnX = append(cfg.SpawnX, s[0])
	}
	cfg.SpawnZ = c.Spawns[0][1]

	if len(c.XBounds) == 2 {
		cfg.XBounds = r1.Interval{Min: c.XBounds[0], Max: c.XBounds[1]}
	}

	for _, l := range c.Lanes {
		lane := crossroad.Lane{
			Z:      l.Z,
			Speed:  l.Speed,
			Cars:   l.Cars,
			Bounds: r1.Interval{Min: l.Bounds[0], Max: l.Bounds[1]},
		}
		copy(lane.Size[:], l.Size)
		cfg.Lanes = append(cfg.Lanes, lane)
	}
	return cfg, nil
}

func fromCrossRoad(cfg crossroad.Config) Config {
	c := Config{
		Scenario:     CrossRoad,
		Seed:         cfg.Seed,
		TickMs:       int(cfg.DT / time.Millisecond),
		MaxSteps:     cfg.Episode.MaxSteps,
		Discount:     cfg.Discount,
		Rewards:      cfg.Episode.Rewards,
		SwitchPolicy: cfg.Episode.Policy,
		GoalLock:     cfg.Episode.GoalLock,
		HandOff:      cfg.Episode.HandOff,
		Agent: Agent{
			Speed:  cfg.Speed,
			Step:   cfg.StepAmount,
			Radius: cfg.Radius,
			Height: cfg.SpawnY,
		},
		Goal:         fromZone(cfg.Goal),
		RoadBoundary: cfg.RoadBoundary,
		XBounds:      []float64{cfg.XBounds.Min, cfg.XBounds.Max},
	}

	for _, x := range cfg.SpawnX {
		c.Spawns = append(c.Spawns, []float64{x, cfg.SpawnZ})
	}
	for _, l := range cfg.Lanes {
		c.Lanes = append(c.Lanes, Lane{
			Z:      l.Z,
			Speed:  l.Speed,
			Cars:   append([]float64(nil), l.Cars...),
			Size:   append([]float64(nil), l.Size[:]...),
			Bounds: []float64{l.Bounds.Min, l.Bounds.Max},
		})
	}
	return c
}

// pyramids converts the Config to a pyramids.Config
func (c Config) pyramids() (pyramids.Config, error) {
	goal, err := c.Goal.zone(zone.Goal)
	if err != nil {
		return pyramids.Config{}, fmt.Errorf("pyramids: goal: %w", err)
	}

	cfg := pyramids.Config{
		ArenaSize:     c.ArenaSize,
		AgentRadius:   c.Agent.Radius,
		Speed:         c.Agent.Speed,
		TurnRate:      c.Agent.TurnRate,
		Damping:       c.Agent.Damping,
		RandomHeading: c.Agent.RandomHeading,
		SwitchSize:    c.Switch.Size,
		Goal:          goal,
		DT:            c.tick(),
		Discount:      c.Discount,
		Episode:       c.episode(),
		Seed:          c.Seed,
	}

	for _, s := range c.Spawns {
		cfg.AgentSpawns = append(cfg.AgentSpawns, [2]float64{s[0], s[1]})
	}
	for _, s := range c.Switch.Spawns {
		cfg.SwitchSpawns = append(cfg.SwitchSpawns, [2]float64{s[0], s[1]})
	}
	for _, b := range c.Blocks {
		cfg.Blocks = append(cfg.Blocks, pyramids.Block{
			X: b.X, Z: b.Z, Width: b.Width, Depth: b.Depth,
		})
	}

	if c.Stuck != nil {
		cfg.Stuck = &motion.StuckConfig{
			Threshold:   c.Stuck.Threshold,
			Timeout:     time.Duration(c.Stuck.TimeoutMs) * time.Millisecond,
			TurnDegrees: c.Stuck.TurnDegrees,
			MaxAttempts: c.Stuck.MaxAttempts,
		}
	}
	return cfg, nil
}

func fromPyramids(cfg pyramids.Config) Config {
	c := Config{
		Scenario:     Pyramids,
		Seed:         cfg.Seed,
		TickMs:       int(cfg.DT / time.Millisecond),
		MaxSteps:     cfg.Episode.MaxSteps,
		Discount:     cfg.Discount,
		Rewards:      cfg.Episode.Rewards,
		SwitchPolicy: cfg.Episode.Policy,
		GoalLock:     cfg.Episode.GoalLock,
		HandOff:      cfg.Episode.HandOff,
		Agent: Agent{
			Speed:         cfg.Speed,
			Radius:        cfg.AgentRadius,
			Height:        pyramids.AgentY,
			TurnRate:      cfg.TurnRate,
			Damping:       cfg.Damping,
			RandomHeading: cfg.RandomHeading,
		},
		Goal:      fromZone(cfg.Goal),
		ArenaSize: cfg.ArenaSize,
		Switch:    &Switch{Size: cfg.SwitchSize},
	}

	for _, s := range cfg.AgentSpawns {
		c.Spawns = append(c.Spawns, []float64{s[0], s[1]})
	}
	for _, s := range cfg.SwitchSpawns {
		c.Switch.Spawns = append(c.Switch.Spawns, []float64{s[0], s[1]})
	}
	for _, b := range cfg.Blocks {
		c.Blocks = append(c.Blocks, Block{X: b.X, Z: b.Z, Width: b.Width,
			Depth: b.Depth})
	}
	if cfg.Stuck != nil {
		c.Stuck = &Stuck{
			Threshold:   cfg.Stuck.Threshold,
			TimeoutMs:   int(cfg.Stuck.Timeout / time.Millisecond),
			TurnDegrees: cfg.Stuck.TurnDegrees,
			MaxAttempts: cfg.Stuck.MaxAttempts,
		}
	}
	return c
}
