package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/mlscenes/storage"
	"github.com/samuelfneumann/mlscenes/tracelog"
)

func TestRunAndStats(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "runs.db")

	err := runCmd([]string{
		"-config", "../../configs/crossroad.yaml",
		"-episodes", "2",
		"-agent", "qlearning",
		"-db", db,
		"-trace", filepath.Join(dir, "trace"),
		"-frames", filepath.Join(dir, "frames"),
		"-every", "250",
		"-data", filepath.Join(dir, "data"),
		"-checkpoint", filepath.Join(dir, "ckpt"),
		"-checkpoint-every", "100",
		"-quiet",
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	store := storage.NewSQLiteStore(db)
	if err := store.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	runs, err := store.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 {
		t.Fatalf("want 1 run, have %v", runs)
	}
	episodes, err := store.Episodes(ctx, runs[0])
	if err != nil {
		t.Fatal(err)
	}
	if len(episodes) != 2 || episodes[0].Scenario != "crossroad" {
		t.Errorf("unexpected episodes %+v", episodes)
	}

	traces, _ := filepath.Glob(filepath.Join(dir, "trace",
		runs[0]+tracelog.Extension))
	frames, _ := filepath.Glob(filepath.Join(dir, "frames", runs[0], "*.png"))
	data, _ := filepath.Glob(filepath.Join(dir, "data", runs[0]+"-*.bin"))
	if len(traces) != 1 || len(frames) == 0 || len(data) != 2 {
		t.Errorf("missing outputs: %d traces, %d frames, %d data files",
			len(traces), len(frames), len(data))
	}

	if err := statsCmd([]string{"-db", db}); err != nil {
		t.Error(err)
	}
	if err := statsCmd([]string{"-db", db, "-run", runs[0]}); err != nil {
		t.Error(err)
	}
}

func TestRunRejectsUnknownAgent(t *testing.T) {
	err := runCmd([]string{"-scenario", "pyramids", "-agent", "sarsa",
		"-quiet"})
	if err == nil {
		t.Error("expected error for unknown agent")
	}
}

func TestValidate(t *testing.T) {
	configs, err := filepath.Glob("../../configs/*.yaml")
	if err != nil || len(configs) == 0 {
		t.Fatalf("no configs found: %v", err)
	}
	if err := validateCmd(configs); err != nil {
		t.Error(err)
	}
	if err := validateCmd([]string{filepath.Join(t.TempDir(),
		"missing.yaml")}); err == nil {
		t.Error("expected error for a missing config")
	}
}

func TestEndings(t *testing.T) {
	have := endings([]storage.Episode{
		{Event: "GoalReached", EndType: "TerminalStateReached"},
		{Event: "None", EndType: "Timeout"},
		{Event: "GoalReached", EndType: "TerminalStateReached"},
	})
	if want := "GoalReached=2 Timeout=1"; have != want {
		t.Errorf("want %q, have %q", want, have)
	}
}
