package pyramids

import (
	"fmt"
	"time"

	"github.com/samuelfneumann/mlscenes/environment/motion"
	"github.com/samuelfneumann/mlscenes/environment/zone"
	"github.com/samuelfneumann/mlscenes/episode"
)

const (
	DefaultArenaSize   float64       = 10.0
	DefaultAgentRadius float64       = 0.5
	DefaultSpeed       float64       = 2.0
	DefaultTurnRate    float64       = 200.0
	DefaultDamping     float64       = 20.0
	DefaultSwitchSize  float64       = 1.0
	DefaultDT          time.Duration = 20 * time.Millisecond
	DefaultMaxSteps    int           = 1000
	DefaultDiscount    float64       = 0.99

	// AgentY is the height of the agent's centre above the floor
	AgentY float64 = 0.5

	Observations int = 10
)

// Block is a static rectangular obstacle on the floor, centred at
// (X, Z) with the given Width along x and Depth along z
type Block struct {
	X, Z, Width, Depth float64
}

// Config configures a Pyramids environment
type Config struct {
	// ArenaSize is the half-width of the square arena
	ArenaSize   float64
	AgentRadius float64

	// Speed is the velocity change applied along the agent's facing on
	// every tick that it drives
	Speed float64

	// TurnRate is the rotation rate in degrees per second
	TurnRate float64

	// Damping is the linear damping of the agent's body. Together with
	// Speed it determines the agent's top speed.
	Damping float64

	// AgentSpawns are (x, z) spawn positions for the agent, one is
	// chosen uniformly at random when the agent is respawned
	AgentSpawns [][2]float64

	// RandomHeading spawns the agent with a uniformly random heading.
	// Otherwise the agent spawns facing +z.
	RandomHeading bool

	// SwitchSpawns are (x, z) spawn positions for the switch
	SwitchSpawns [][2]float64
	SwitchSize   float64

	// Goal is the pyramid zone, reachable once the switch is on. It is
	// required by the unlock-goal switch policy.
	Goal *zone.Zone

	Blocks []Block

	// Stuck enables stuck recovery when non-nil
	Stuck *motion.StuckConfig

	DT       time.Duration
	Discount float64
	Episode  episode.Config
	Seed     uint64
}

// DefaultConfig returns the default Pyramids configuration: the agent
// must press a switch, which unlocks a pyramid in the opposite corner
// of the arena
func DefaultConfig() Config {
	goal, err := zone.NewBox("pyramid", zone.Goal, []float64{-7, AgentY, -7},
		[]float64{2, 1, 2})
	if err != nil {
		panic(fmt.Sprintf("defaultConfig: %v", err))
	}

	return Config{
		ArenaSize:    DefaultArenaSize,
		AgentRadius:  DefaultAgentRadius,
		Speed:        DefaultSpeed,
		TurnRate:     DefaultTurnRate,
		Damping:      DefaultDamping,
		AgentSpawns:  [][2]float64{{0, 0}, {-5, 5}, {5, -5}},
		SwitchSpawns: [][2]float64{{7, 7}, {7, -2}, {-2, 7}},
		SwitchSize:   DefaultSwitchSize,
		Goal:         goal,
		Blocks: []Block{
			{X: 3, Z: 0, Width: 1, Depth: 4},
			{X: -3, Z: 3, Width: 4, Depth: 1},
		},
		DT:       DefaultDT,
		Discount: DefaultDiscount,
		Episode: episode.Config{
			MaxSteps: DefaultMaxSteps,
			Rewards:  episode.PyramidRewards(),
			Policy:   episode.UnlockGoal,
		},
	}
}
