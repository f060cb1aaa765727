package crossroad

import (
	"errors"
	"math"
	"testing"
	"time"

	env "github.com/samuelfneumann/mlscenes/environment"
	"github.com/samuelfneumann/mlscenes/environment/zone"
	"github.com/samuelfneumann/mlscenes/episode"
	"github.com/samuelfneumann/mlscenes/episode/registry"
	ts "github.com/samuelfneumann/mlscenes/timestep"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

var (
	idle    = mat.NewVecDense(1, []float64{0})
	left    = mat.NewVecDense(1, []float64{1})
	forward = mat.NewVecDense(1, []float64{3})
)

// emptyRoad returns a configuration without traffic and a single spawn
func emptyRoad() Config {
	c := DefaultConfig()
	c.Lanes = nil
	c.SpawnX = []float64{0.01}
	return c
}

func newEnv(t *testing.T, c Config) (*Env, ts.TimeStep) {
	t.Helper()
	e, step, err := New(c, "agent", nil)
	if err != nil {
		t.Fatal(err)
	}
	return e, step
}

// walk steps forward until the episode ends or limit steps are taken
func walk(t *testing.T, e *Env, limit int) ts.TimeStep {
	t.Helper()
	var step ts.TimeStep
	for i := 0; i < limit; i++ {
		var err error
		step, _, err = e.Step(forward)
		if err != nil {
			t.Fatal(err)
		}
		if step.Last() {
			break
		}
	}
	return step
}

func TestResetSpawns(t *testing.T) {
	e, step := newEnv(t, DefaultConfig())

	seen := make(map[float64]bool)
	for i := 0; i < 100; i++ {
		obs := step.Observation
		if obs.Len() != Observations {
			t.Fatalf("observation length: want %d, have %d", Observations,
				obs.Len())
		}
		if obs.AtVec(1) != DefaultSpawnY || obs.AtVec(2) != 0 {
			t.Errorf("spawn y, z: want %v, 0, have %v, %v", DefaultSpawnY,
				obs.AtVec(1), obs.AtVec(2))
		}
		if obs.AtVec(3) != 0 || obs.AtVec(5) != 20 {
			t.Errorf("goal position: have %v", obs.RawVector().Data[3:])
		}
		seen[obs.AtVec(0)] = true

		var err error
		if step, err = e.Reset(); err != nil {
			t.Fatal(err)
		}
		if !step.First() {
			t.Errorf("reset step type: want First, have %v", step.StepType)
		}
	}

	for _, x := range DefaultSpawnX {
		if !seen[x] {
			t.Errorf("spawn x %v never used", x)
		}
	}
}

func TestMoveIsLatched(t *testing.T) {
	e, _ := newEnv(t, emptyRoad())

	// 5 units at 5 units/s with 100ms ticks takes 10 steps
	if _, _, err := e.Step(forward); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 9; i++ {
		if !e.Moving() {
			t.Fatalf("move finished early on step %d", i+2)
		}
		if _, _, err := e.Step(left); err != nil {
			t.Fatal(err)
		}
	}

	if e.Moving() {
		t.Error("move should have arrived")
	}
	want := mat.NewVecDense(3, []float64{0.01, DefaultSpawnY, 5})
	if !mat.EqualApprox(e.Position(), want, 1e-9) {
		t.Errorf("position: want %v, have %v", want.RawVector().Data,
			e.Position().RawVector().Data)
	}
	if b := e.Blend(); b.Forward != 0 || b.Lateral != 0 {
		t.Errorf("blend after arrival: want zero, have %+v", b)
	}
}

func TestRoadRestriction(t *testing.T) {
	e, _ := newEnv(t, emptyRoad())
	walk(t, e, 20)

	if z := e.Position().AtVec(2); z != 10 {
		t.Fatalf("want to be on the road at z = 10, have %v", z)
	}

	x := e.Position().AtVec(0)
	if cmd, ok := e.Act(1); !ok || !cmd.Suppressed || cmd.Moves() {
		t.Errorf("left on the road: want suppressed no-op, have %+v", cmd)
	}
	for i := 0; i < 10; i++ {
		e.Step(left)
	}
	if have := e.Position().AtVec(0); have != x {
		t.Errorf("agent moved sideways on the road: %v -> %v", x, have)
	}
}

func TestReachGoal(t *testing.T) {
	e, _ := newEnv(t, emptyRoad())
	step := walk(t, e, 100)

	if !step.Last() || step.EndType() != ts.TerminalStateReached {
		t.Fatalf("want terminal last step, have %v (%v)", step,
			step.EndType())
	}
	if step.Reward != 1 {
		t.Errorf("goal reward: want 1, have %v", step.Reward)
	}
	if r := e.Controller().EpisodeReturn(); r != 1 {
		t.Errorf("return: want 1, have %v", r)
	}

	_, _, err := e.Step(idle)
	if !errors.Is(err, env.ErrEpisodeOver) {
		t.Errorf("step after goal: want ErrEpisodeOver, have %v", err)
	}

	if s := e.Controller().Stats(); s.CompletedEpisodes != 1 ||
		s.OverallSteps != step.Number {
		t.Errorf("unexpected stats %v", s)
	}
}

func TestHitTraffic(t *testing.T) {
	c := emptyRoad()
	c.Lanes = []Lane{{
		Z:      10,
		Cars:   []float64{0},
		Size:   [3]float64{3, 1, 1.5},
		Bounds: r1.Interval{Min: -15, Max: 15},
	}}
	e, _ := newEnv(t, c)
	step := walk(t, e, 100)

	if !step.Last() || e.Controller().Event().String() != "HazardReached" {
		t.Fatalf("want hazard, have %v", e.Controller().Event())
	}
	if math.Abs(step.Reward-(-0.025)) > 1e-12 {
		t.Errorf("hazard reward: want -0.025, have %v", step.Reward)
	}
	if z := e.Position().AtVec(2); z >= 10 {
		t.Errorf("agent passed through the car to z = %v", z)
	}
}

func TestTrafficWraps(t *testing.T) {
	lane := Lane{
		Z:      10,
		Speed:  10,
		Cars:   []float64{14},
		Size:   [3]float64{2, 1, 1},
		Bounds: r1.Interval{Min: -15, Max: 15},
	}
	tr, err := newTraffic(0, lane, 0.5)
	if err != nil {
		t.Fatal(err)
	}

	tr.advance(time.Second)
	if x := tr.cars[0].Center().AtVec(0); math.Abs(x-(-6)) > 1e-9 {
		t.Errorf("wrapped x: want -6, have %v", x)
	}

	tr.reset()
	if x := tr.cars[0].Center().AtVec(0); x != 14 {
		t.Errorf("reset x: want 14, have %v", x)
	}
}

func TestGoalLock(t *testing.T) {
	c := emptyRoad()
	c.Episode.GoalLock = true
	e, _ := newEnv(t, c)
	walk(t, e, 100)
	goalPosition := e.Position()

	step, err := e.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if !step.Last() || step.EndType() != ts.GoalLocked {
		t.Errorf("reset after goal: want GoalLocked, have %v (%v)", step,
			step.EndType())
	}
	if !mat.Equal(e.Position(), goalPosition) {
		t.Error("goal-locked reset moved the agent")
	}
	if _, _, err := e.Step(forward); !errors.Is(err, env.ErrEpisodeOver) {
		t.Errorf("want ErrEpisodeOver, have %v", err)
	}
}

func TestHandOff(t *testing.T) {
	reg, err := registry.New(0)
	if err != nil {
		t.Fatal(err)
	}

	c := emptyRoad()
	c.Episode.GoalLock = true
	c.Episode.HandOff = true
	e, _, err := New(c, reg.Active(), nil)
	if err != nil {
		t.Fatal(err)
	}
	e.SetSuccessor(reg)
	first := reg.Active()

	walk(t, e, 100)
	if reg.Active() == first || e.Controller().AgentID() != reg.Active() {
		t.Fatal("goal did not hand off to a successor")
	}

	step, err := e.Reset()
	if err != nil {
		t.Fatal(err)
	}
	if step.Last() {
		t.Error("successor should start a normal episode")
	}
}

func TestMissingGoal(t *testing.T) {
	c := DefaultConfig()
	c.Goal = nil
	_, _, err := New(c, "agent", nil)
	if !errors.Is(err, env.ErrMissingDependency) {
		t.Errorf("want missing dependency, have %v", err)
	}
}

func TestIllegalAction(t *testing.T) {
	e, _ := newEnv(t, emptyRoad())
	_, _, err := e.Step(mat.NewVecDense(2, nil))
	if !errors.Is(err, env.ErrIllegalAction) {
		t.Errorf("want ErrIllegalAction, have %v", err)
	}

	// Out-of-range indices are Idle, not errors
	step, _, err := e.Step(mat.NewVecDense(1, []float64{42}))
	if err != nil {
		t.Fatal(err)
	}
	if step.Observation.AtVec(2) != 0 || e.Moving() {
		t.Error("out-of-range action moved the agent")
	}
}

type summaries []episode.Summary

func (s *summaries) EpisodeEnded(summary episode.Summary) {
	*s = append(*s, summary)
}

func TestTimeout(t *testing.T) {
	c := emptyRoad()
	c.Episode.MaxSteps = 5
	e, _ := newEnv(t, c)
	var ended summaries
	e.Register(&ended)

	var step ts.TimeStep
	for !step.Last() {
		var err error
		if step, _, err = e.Step(idle); err != nil {
			t.Fatal(err)
		}
	}
	if step.Number != 5 || step.EndType() != ts.Timeout {
		t.Errorf("want timeout on step 5, have %v on %d", step.EndType(),
			step.Number)
	}
	if len(ended) != 1 || ended[0].Steps != 5 {
		t.Errorf("unexpected summaries %+v", ended)
	}
}

func TestHostGoalReward(t *testing.T) {
	c := emptyRoad()
	c.Episode.Rewards.StepPenalty = true
	e, _ := newEnv(t, c)
	var ended summaries
	e.Register(&ended)

	var sum float64
	for i := 0; i < 2; i++ {
		step, _, err := e.Step(idle)
		if err != nil {
			t.Fatal(err)
		}
		sum += step.Reward
	}

	if out, err := e.OnOverlap(e.Goal()); err != nil || out != episode.End {
		t.Fatalf("goal overlap: want End, have %v (%v)", out, err)
	}
	step, _, err := e.Step(idle)
	if err != nil {
		t.Fatal(err)
	}
	sum += step.Reward

	if !step.Last() || step.EndType() != ts.TerminalStateReached {
		t.Errorf("want terminal last step, have %v", step)
	}
	if step.Reward != c.Episode.Rewards.Goal {
		t.Errorf("last reward: want %v, have %v", c.Episode.Rewards.Goal,
			step.Reward)
	}
	if len(ended) != 1 {
		t.Fatalf("want 1 summary, have %d", len(ended))
	}
	if math.Abs(sum-ended[0].Return) > 1e-12 {
		t.Errorf("rewards sum to %v, episode return %v", sum,
			ended[0].Return)
	}
}

func TestResetAfterHostGoal(t *testing.T) {
	e, _ := newEnv(t, emptyRoad())
	var ended summaries
	e.Register(&ended)

	if _, _, err := e.Step(idle); err != nil {
		t.Fatal(err)
	}
	if out, _ := e.OnOverlap(e.Goal()); out != episode.End {
		t.Fatalf("goal overlap: want End, have %v", out)
	}
	if _, err := e.Reset(); err != nil {
		t.Fatal(err)
	}

	if len(ended) != 1 {
		t.Fatalf("want 1 summary, have %d", len(ended))
	}
	s := ended[0]
	if s.EndType != ts.TerminalStateReached || s.Event != zone.GoalReached {
		t.Errorf("want goal reached terminal summary, have %v event %v", s,
			s.Event)
	}
	if s.Steps != 1 || s.Return != 1 {
		t.Errorf("want 1 step with return 1, have %v", s)
	}
}

func TestHandOffExhausted(t *testing.T) {
	reg, err := registry.New(1)
	if err != nil {
		t.Fatal(err)
	}

	c := emptyRoad()
	c.Episode.GoalLock = true
	c.Episode.HandOff = true
	e, _, err := New(c, reg.Active(), nil)
	if err != nil {
		t.Fatal(err)
	}
	e.SetSuccessor(reg)
	first := reg.Active()

	step := walk(t, e, 100)
	if step.EndType() != ts.TerminalStateReached {
		t.Fatalf("want the goal to end the episode, have %v", step)
	}
	if e.Controller().AgentID() != first {
		t.Errorf("agent changed to %v without a successor",
			e.Controller().AgentID())
	}

	if step, err = e.Reset(); err != nil {
		t.Fatal(err)
	}
	if !step.Last() || step.EndType() != ts.GoalLocked {
		t.Errorf("want a goal-locked reset, have %v", step)
	}
}
