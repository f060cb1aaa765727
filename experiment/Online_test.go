package experiment

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/mlscenes/agent/heuristic"
	"github.com/samuelfneumann/mlscenes/agent/qlearning"
	"github.com/samuelfneumann/mlscenes/agent/random"
	"github.com/samuelfneumann/mlscenes/environment/crossroad"
	"github.com/samuelfneumann/mlscenes/experiment/checkpointer"
	"github.com/samuelfneumann/mlscenes/experiment/trackers"
	"github.com/samuelfneumann/mlscenes/storage"
	"github.com/samuelfneumann/mlscenes/tracelog"
)

type counter struct {
	increments, displays int
}

func (c *counter) Increment() { c.increments++ }
func (c *counter) Display()   { c.displays++ }

func emptyRoad(t *testing.T, c crossroad.Config) *crossroad.Env {
	t.Helper()
	c.Lanes = nil
	c.SpawnX = []float64{0.01}
	e, _, err := crossroad.New(c, "agent", nil)
	if err != nil {
		t.Fatal(err)
	}
	return e
}

func TestOnlineEpisodeLimit(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	e := emptyRoad(t, crossroad.DefaultConfig())
	a, err := random.New(e.ActionSpec(), 1)
	if err != nil {
		t.Fatal(err)
	}

	store := storage.NewMemoryStore()
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}
	record := trackers.NewRecord(ctx, store, "run", "crossroad")
	e.Register(record)

	w, err := tracelog.NewWriter(filepath.Join(dir, "trace"+tracelog.Extension))
	if err != nil {
		t.Fatal(err)
	}
	trace := trackers.NewTrace(w, "run", e.Controller().AgentID)

	ret := trackers.NewReturn(filepath.Join(dir, "return.bin"))
	length := trackers.NewEpisodeLength(filepath.Join(dir, "length.bin"))

	exp := NewOnline(e, a, 0, ret, length, record)
	exp.Register(trace)
	exp.SetEpisodeLimit(3)
	progress := &counter{}
	exp.SetProgress(progress)

	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}
	if err := exp.Save(); err != nil {
		t.Fatal(err)
	}

	if exp.Episodes() != 3 || progress.increments != 3 {
		t.Errorf("episodes: want 3, have %d (progress %d)", exp.Episodes(),
			progress.increments)
	}

	lengths := length.Lengths()
	if len(lengths) != 3 || len(ret.Returns()) != 3 {
		t.Fatalf("want 3 finished episodes, have %d lengths and %d returns",
			len(lengths), len(ret.Returns()))
	}
	total := 0
	for _, l := range lengths {
		total += l
	}
	if uint(total) != exp.Steps() {
		t.Errorf("steps: want %d, have %d", total, exp.Steps())
	}

	episodes, err := store.Episodes(ctx, "run")
	if err != nil {
		t.Fatal(err)
	}
	if len(episodes) != 3 || record.Saved() != 3 {
		t.Fatalf("want 3 stored episodes, have %d", len(episodes))
	}
	for i, stored := range episodes {
		if stored.Steps != lengths[i] {
			t.Errorf("episode %d: stored %d steps, tracked %d", i,
				stored.Steps, lengths[i])
		}
		if stored.Return != ret.Returns()[i] {
			t.Errorf("episode %d: stored return %v, tracked %v", i,
				stored.Return, ret.Returns()[i])
		}
	}

	records, err := tracelog.ReadAll(w.Path())
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != total+3 {
		t.Errorf("trace: want %d records, have %d", total+3, len(records))
	}
	if records[0].Action != nil || records[1].Action == nil {
		t.Error("trace: only steps after the first should carry actions")
	}
	if last := records[len(records)-1]; last.Episode != 3 ||
		last.End == "" || last.AgentID != "agent" {
		t.Errorf("trace: unexpected last record %+v", last)
	}

	var saved []float64
	if err := trackers.LoadData(filepath.Join(dir, "return.bin"),
		&saved); err != nil {
		t.Fatal(err)
	}
	if len(saved) != 3 {
		t.Errorf("saved returns: want 3, have %d", len(saved))
	}
}

func TestOnlineStepBudget(t *testing.T) {
	e := emptyRoad(t, crossroad.DefaultConfig())
	a, err := random.New(e.ActionSpec(), 2)
	if err != nil {
		t.Fatal(err)
	}
	ret := trackers.NewReturn(filepath.Join(t.TempDir(), "return.bin"))

	exp := NewOnline(e, a, 10, ret)
	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}
	if exp.Steps() != 10 || exp.Episodes() != 1 {
		t.Errorf("want 10 steps in 1 episode, have %d in %d", exp.Steps(),
			exp.Episodes())
	}
	if len(ret.Returns()) != 0 {
		t.Errorf("unfinished episode was tracked: %v", ret.Returns())
	}
}

func TestOnlineStopsWhenGoalLocked(t *testing.T) {
	c := crossroad.DefaultConfig()
	c.StepAmount = 20
	c.Speed = 50
	c.Episode.GoalLock = true
	e := emptyRoad(t, c)

	keys := heuristic.New(heuristic.CrossRoadBindings,
		heuristic.NewScript([]heuristic.Key{heuristic.Up}))
	length := trackers.NewEpisodeLength(filepath.Join(t.TempDir(), "l.bin"))

	exp := NewOnline(e, keys, 0, length)
	exp.SetEpisodeLimit(10)
	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}

	if !exp.Locked() || exp.Episodes() != 2 {
		t.Errorf("want a locked stop after 2 episodes, have locked %v "+
			"after %d", exp.Locked(), exp.Episodes())
	}
	if lengths := length.Lengths(); len(lengths) != 2 || lengths[1] != 0 {
		t.Errorf("unexpected episode lengths %v", lengths)
	}
}

func TestOnlineNeedsLimit(t *testing.T) {
	e := emptyRoad(t, crossroad.DefaultConfig())
	a, err := random.New(e.ActionSpec(), 3)
	if err != nil {
		t.Fatal(err)
	}
	if err := NewOnline(e, a, 0).Run(); err == nil {
		t.Error("expected error without any limit")
	}
}

func TestOnlineCheckpoints(t *testing.T) {
	dir := t.TempDir()
	e := emptyRoad(t, crossroad.DefaultConfig())
	q, err := qlearning.New(e.ActionSpec(), qlearning.DefaultConfig(), 4)
	if err != nil {
		t.Fatal(err)
	}

	n, err := checkpointer.NewNStep(50, q,
		checkpointer.RunFilenames(dir, "q", ".bin"))
	if err != nil {
		t.Fatal(err)
	}
	exp := NewOnline(e, q, 100)
	exp.AddCheckpointer(n)
	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}

	files, err := filepath.Glob(filepath.Join(dir, "q-*.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("want 2 checkpoints, have %v", files)
	}

	restored, err := qlearning.New(e.ActionSpec(), qlearning.DefaultConfig(),
		4)
	if err != nil {
		t.Fatal(err)
	}
	if err := checkpointer.Load(filepath.Join(dir, "q-000002.bin"),
		restored); err != nil {
		t.Fatal(err)
	}
	if restored.Cells() != q.Cells() {
		t.Errorf("restored %d cells, want %d", restored.Cells(), q.Cells())
	}
}
