package episode

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/samuelfneumann/mlscenes/environment/zone"
	ts "github.com/samuelfneumann/mlscenes/timestep"
)

type recorder struct {
	summaries []Summary
}

func (r *recorder) EpisodeEnded(s Summary) {
	r.summaries = append(r.summaries, s)
}

type counter struct {
	n   int
	err error
}

func (c *counter) RequestSuccessorAgent() (string, error) {
	if c.err != nil {
		return "", c.err
	}
	c.n++
	return "successor", nil
}

func newController(t *testing.T, c Config) *Controller {
	t.Helper()
	ctrl, err := NewController(c, "agent")
	if err != nil {
		t.Fatal(err)
	}
	return ctrl
}

func TestStepPenaltyAccounting(t *testing.T) {
	const maxSteps = 50
	rewards := PyramidRewards()
	ctrl := newController(t, Config{MaxSteps: maxSteps, Rewards: rewards})

	for _, n := range []int{1, 7, 49} {
		ctrl.Begin()
		for i := 0; i < n; i++ {
			if !ctrl.Tick() {
				t.Fatalf("tick %d refused", i)
			}
			if end := ctrl.EndStep(); end != ts.NotEnded {
				t.Fatalf("ended early with %v", end)
			}
		}

		want := -float64(n) / maxSteps
		if math.Abs(ctrl.EpisodeReturn()-want) > 1e-12 {
			t.Errorf("%d steps: want return %v, have %v", n, want,
				ctrl.EpisodeReturn())
		}

		ctrl.Tick()
		ctrl.Handle(zone.GoalReached)
		ctrl.EndStep()
		want = -float64(n+1)/maxSteps + rewards.Goal
		if math.Abs(ctrl.EpisodeReturn()-want) > 1e-12 {
			t.Errorf("goal on step %d: want return %v, have %v", n+1, want,
				ctrl.EpisodeReturn())
		}
	}
}

func TestSingleTerminalEvent(t *testing.T) {
	events := []zone.Event{
		zone.None, zone.HazardReached, zone.GoalReached, zone.SwitchActivated,
		zone.HazardReached, zone.GoalReached,
	}

	for _, policy := range []SwitchPolicy{EndEpisode, SoftReset, UnlockGoal} {
		rec := &recorder{}
		ctrl := newController(t, Config{
			MaxSteps: 100,
			Rewards:  PyramidRewards(),
			Policy:   policy,
		})
		ctrl.Register(rec)
		ctrl.Begin()

		var terminal int
		for _, event := range events {
			if !ctrl.Tick() {
				break
			}
			for i := 0; i < 2; i++ {
				if out, _ := ctrl.Handle(event); out == End {
					terminal++
				}
			}
			if ctrl.EndStep() != ts.NotEnded {
				break
			}
		}

		if terminal != 1 {
			t.Errorf("%v: want 1 terminal event, have %d", policy, terminal)
		}
		if len(rec.summaries) != 1 {
			t.Fatalf("%v: want 1 summary, have %d", policy,
				len(rec.summaries))
		}
		if s := rec.summaries[0]; s.Event != zone.HazardReached ||
			s.EndType != ts.TerminalStateReached {
			t.Errorf("%v: unexpected summary %+v", policy, s)
		}
	}
}

func TestTerminalGuard(t *testing.T) {
	ctrl := newController(t, Config{MaxSteps: 10, Rewards: CrossRoadRewards()})
	ctrl.Begin()
	ctrl.Tick()
	ctrl.Handle(zone.GoalReached)
	if out, _ := ctrl.Handle(zone.HazardReached); out != Ignored {
		t.Errorf("event after terminal: want Ignored, have %v", out)
	}
	ctrl.EndStep()

	if ctrl.Tick() {
		t.Error("tick accepted after the episode ended")
	}
	if ctrl.EpisodeReturn() != 1 {
		t.Errorf("return: want 1, have %v", ctrl.EpisodeReturn())
	}
}

func TestSwitchPolicies(t *testing.T) {
	tests := []struct {
		policy SwitchPolicy
		want   Outcome
		state  State
	}{
		{EndEpisode, End, Terminal},
		{SoftReset, Respawn, Running},
		{UnlockGoal, Continue, Running},
	}

	for _, test := range tests {
		ctrl := newController(t, Config{
			MaxSteps: 10,
			Rewards:  PyramidRewards(),
			Policy:   test.policy,
		})
		ctrl.Begin()
		ctrl.Tick()

		out, err := ctrl.Handle(zone.SwitchActivated)
		if err != nil {
			t.Fatal(err)
		}
		if out != test.want || ctrl.State() != test.state {
			t.Errorf("%v: want %v/%v, have %v/%v", test.policy, test.want,
				test.state, out, ctrl.State())
		}

		want := 1.0 - 0.1
		if math.Abs(ctrl.StepReward()-want) > 1e-12 {
			t.Errorf("%v: step reward want %v, have %v", test.policy, want,
				ctrl.StepReward())
		}
	}
}

func TestTimeout(t *testing.T) {
	rec := &recorder{}
	ctrl := newController(t, Config{MaxSteps: 3, Rewards: CrossRoadRewards()})
	ctrl.Register(rec)
	ctrl.Begin()

	var end ts.EndType
	for ctrl.Tick() {
		end = ctrl.EndStep()
	}
	if end != ts.Timeout || ctrl.Steps() != 3 {
		t.Errorf("want timeout after 3 steps, have %v after %d", end,
			ctrl.Steps())
	}
	if len(rec.summaries) != 1 || rec.summaries[0].Event != zone.None {
		t.Errorf("unexpected summaries %+v", rec.summaries)
	}
}

func TestGoalLock(t *testing.T) {
	ctrl := newController(t, Config{
		MaxSteps: 10,
		Rewards:  CrossRoadRewards(),
		GoalLock: true,
	})

	if ctrl.Begin() {
		t.Fatal("first episode should not be locked")
	}
	ctrl.Tick()
	ctrl.Handle(zone.GoalReached)
	ctrl.EndStep()

	if !ctrl.Begin() {
		t.Error("episode after goal should re-end immediately")
	}
	if ctrl.Accepting() {
		t.Error("locked episode accepts actions")
	}
	if s := ctrl.Stats(); s.CompletedEpisodes != 2 || s.OverallReward != 1 {
		t.Errorf("unexpected stats %v", s)
	}
}

func TestHandOff(t *testing.T) {
	succ := &counter{}
	ctrl := newController(t, Config{
		MaxSteps: 10,
		Rewards:  CrossRoadRewards(),
		GoalLock: true,
		HandOff:  true,
	})
	ctrl.SetSuccessor(succ)

	ctrl.Begin()
	ctrl.Tick()
	if _, err := ctrl.Handle(zone.GoalReached); err != nil {
		t.Fatal(err)
	}
	ctrl.EndStep()

	if succ.n != 1 || ctrl.AgentID() != "successor" {
		t.Errorf("hand-off did not activate the successor: %d, %v", succ.n,
			ctrl.AgentID())
	}
	if !ctrl.Locked("agent") || ctrl.Locked("successor") {
		t.Error("goal lock should only apply to the retired instance")
	}
	if ctrl.Begin() {
		t.Error("successor should start unlocked")
	}

	ctrl.Tick()
	succ.err = errors.New("no more agents")
	if _, err := ctrl.Handle(zone.GoalReached); err == nil {
		t.Error("expected successor error")
	}
}

func TestStatsString(t *testing.T) {
	s := Stats{OverallReward: 1.23456, OverallSteps: 12, CompletedEpisodes: 3}
	want := "Reward: 1.23  Episodes: 3  Steps: 12"
	if s.String() != want {
		t.Errorf("want %q, have %q", want, s.String())
	}
}

func TestConfigValidate(t *testing.T) {
	if err := (Config{Rewards: PyramidRewards()}).Validate(); err == nil {
		t.Error("step penalty without a step limit should fail")
	}
	if _, err := ParseSwitchPolicy("sometimes"); err == nil {
		t.Error("expected parse error")
	}
	p, err := ParseSwitchPolicy("soft-reset")
	if err != nil || p != SoftReset {
		t.Errorf("want soft-reset, have %v (%v)", p, err)
	}
}

func TestInterrupt(t *testing.T) {
	rec := &recorder{}
	ctrl := newController(t, Config{MaxSteps: 10, Rewards: CrossRoadRewards()})
	ctrl.Register(rec)

	// An episode interrupted before its first step is discarded
	ctrl.Begin()
	ctrl.Interrupt()
	if len(rec.summaries) != 0 || ctrl.State() != Ended {
		t.Errorf("empty episode was recorded: %+v", rec.summaries)
	}

	ctrl.Begin()
	ctrl.Tick()
	ctrl.Interrupt()
	if len(rec.summaries) != 1 {
		t.Fatalf("want 1 summary, have %d", len(rec.summaries))
	}
	if s := rec.summaries[0]; s.Episode != 1 || s.Steps != 1 ||
		s.EndType != ts.Timeout {
		t.Errorf("unexpected summary %+v", s)
	}

	// Interrupting an ended episode does nothing
	ctrl.Interrupt()
	if len(rec.summaries) != 1 {
		t.Errorf("ended episode was interrupted again")
	}
}

func TestTakeStepReward(t *testing.T) {
	ctrl := newController(t, Config{
		MaxSteps: 10,
		Rewards:  PyramidRewards(),
		Policy:   SoftReset,
	})
	ctrl.Begin()

	var reported float64
	ctrl.Tick()
	ctrl.EndStep()
	reported += ctrl.TakeStepReward()

	// Reward scored between steps is carried into the next step
	ctrl.Handle(zone.SwitchActivated)
	ctrl.Tick()
	ctrl.EndStep()
	r := ctrl.TakeStepReward()
	if want := 1 - 0.1; math.Abs(r-want) > 1e-12 {
		t.Errorf("step after switch: want %v, have %v", want, r)
	}
	reported += r

	// A terminal event between steps is reported without another penalty
	ctrl.Handle(zone.GoalReached)
	if ctrl.Tick() {
		t.Error("tick after a terminal event should not start a step")
	}
	ctrl.EndStep()
	if r := ctrl.TakeStepReward(); r != 2 {
		t.Errorf("terminal step: want 2, have %v", r)
	}
	reported += 2

	if math.Abs(reported-ctrl.EpisodeReturn()) > 1e-12 {
		t.Errorf("reported %v, episode return %v", reported,
			ctrl.EpisodeReturn())
	}
	if ctrl.TakeStepReward() != 0 {
		t.Error("taking the step reward should clear it")
	}
}

func TestInterruptTerminal(t *testing.T) {
	rec := &recorder{}
	ctrl := newController(t, Config{MaxSteps: 10, Rewards: CrossRoadRewards()})
	ctrl.Register(rec)

	ctrl.Begin()
	ctrl.Tick()
	ctrl.EndStep()
	ctrl.Handle(zone.GoalReached)
	ctrl.Interrupt()

	if len(rec.summaries) != 1 {
		t.Fatalf("want 1 summary, have %d", len(rec.summaries))
	}
	if s := rec.summaries[0]; s.EndType != ts.TerminalStateReached ||
		s.Event != zone.GoalReached {
		t.Errorf("unexpected summary %+v", s)
	}
}

func TestHandOffExhausted(t *testing.T) {
	succ := &counter{err: fmt.Errorf("limit: %w", ErrNoSuccessor)}
	ctrl := newController(t, Config{
		MaxSteps: 10,
		Rewards:  CrossRoadRewards(),
		GoalLock: true,
		HandOff:  true,
	})
	ctrl.SetSuccessor(succ)

	ctrl.Begin()
	ctrl.Tick()
	out, err := ctrl.Handle(zone.GoalReached)
	if err != nil || out != End {
		t.Fatalf("want End without error, have %v (%v)", out, err)
	}
	ctrl.EndStep()

	if ctrl.AgentID() != "agent" || !ctrl.Locked("agent") {
		t.Error("exhausted hand-off should keep the locked instance")
	}
	if !ctrl.Begin() {
		t.Error("next episode should end immediately")
	}

	// Without goal-lock there is nothing to stop on
	ctrl = newController(t, Config{
		MaxSteps: 10,
		Rewards:  CrossRoadRewards(),
		HandOff:  true,
	})
	ctrl.SetSuccessor(succ)
	ctrl.Begin()
	ctrl.Tick()
	if _, err := ctrl.Handle(zone.GoalReached); !errors.Is(err,
		ErrNoSuccessor) {
		t.Errorf("want ErrNoSuccessor, have %v", err)
	}
}
