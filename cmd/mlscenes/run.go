package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/samuelfneumann/mlscenes/agent"
	"github.com/samuelfneumann/mlscenes/agent/heuristic"
	"github.com/samuelfneumann/mlscenes/agent/qlearning"
	"github.com/samuelfneumann/mlscenes/agent/random"
	"github.com/samuelfneumann/mlscenes/environment/envconfig"
	"github.com/samuelfneumann/mlscenes/experiment"
	"github.com/samuelfneumann/mlscenes/experiment/checkpointer"
	"github.com/samuelfneumann/mlscenes/experiment/trackers"
	"github.com/samuelfneumann/mlscenes/render"
	"github.com/samuelfneumann/mlscenes/storage"
	"github.com/samuelfneumann/mlscenes/tracelog"
	"github.com/samuelfneumann/mlscenes/utils/progressbar"
)

type agentFlags struct {
	kind     string
	keys     string
	epsilon  float64
	lr       float64
	cellSize float64
}

func runCmd(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	configPath := fs.String("config", "", "scenario config file (YAML)")
	scenario := fs.String("scenario", string(envconfig.CrossRoad),
		"scenario to run when no config is given")
	episodes := fs.Uint("episodes", 100, "episode limit (0 for none)")
	steps := fs.Uint("steps", 0, "step budget (0 for none)")
	seed := fs.Uint64("seed", 0, "override the config seed")
	dbPath := fs.String("db", "", "SQLite database for episode statistics")
	traceDir := fs.String("trace", "", "directory for per-step traces")
	framesDir := fs.String("frames", "", "directory for PNG frames")
	every := fs.Int("every", 5, "steps between frames")
	dataDir := fs.String("data", "", "directory for return and length data")
	quiet := fs.Bool("quiet", false, "do not display progress")
	ckptDir := fs.String("checkpoint", "", "directory for qlearning "+
		"checkpoints")
	ckptEvery := fs.Int("checkpoint-every", 10000, "steps between "+
		"checkpoints")
	resume := fs.String("resume", "", "qlearning checkpoint to resume from")

	var af agentFlags
	fs.StringVar(&af.kind, "agent", string(agent.Random),
		"agent: random, qlearning or heuristic")
	fs.StringVar(&af.keys, "keys", "", "key script for the heuristic agent, "+
		"e.g. \"up,,up+left\"")
	fs.Float64Var(&af.epsilon, "epsilon", qlearning.DefaultConfig().Epsilon,
		"qlearning exploration rate")
	fs.Float64Var(&af.lr, "lr", qlearning.DefaultConfig().LearningRate,
		"qlearning learning rate")
	fs.Float64Var(&af.cellSize, "cell", qlearning.DefaultConfig().CellSize,
		"qlearning observation grid size")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath, envconfig.Scenario(*scenario))
	if err != nil {
		return err
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}

	scene, reg, _, err := cfg.Create(logger)
	if err != nil {
		return err
	}
	a, err := newAgent(af, cfg, scene)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	exp := experiment.NewOnline(scene, a, *steps)
	exp.SetEpisodeLimit(*episodes)

	if *ckptDir != "" || *resume != "" {
		q, ok := a.(*qlearning.Tabular)
		if !ok {
			return fmt.Errorf("%s agent cannot be checkpointed", af.kind)
		}
		if *resume != "" {
			if err := checkpointer.Load(*resume, q); err != nil {
				return err
			}
		}
		if *ckptDir != "" {
			n, err := checkpointer.NewNStep(*ckptEvery, q,
				checkpointer.RunFilenames(*ckptDir, runID, ".bin"))
			if err != nil {
				return err
			}
			exp.AddCheckpointer(n)
		}
	}

	if *dataDir != "" {
		if err := os.MkdirAll(*dataDir, 0o755); err != nil {
			return err
		}
		exp.Register(trackers.NewReturn(filepath.Join(*dataDir,
			runID+"-return.bin")))
		exp.Register(trackers.NewEpisodeLength(filepath.Join(*dataDir,
			runID+"-length.bin")))
	}

	if *dbPath != "" {
		ctx := context.Background()
		store := storage.NewSQLiteStore(*dbPath)
		if err := store.Init(ctx); err != nil {
			return fmt.Errorf("open %s: %w", *dbPath, err)
		}
		defer store.Close()

		record := trackers.NewRecord(ctx, store, runID, string(cfg.Scenario))
		scene.Register(record)
		exp.Register(record)
	}

	if *traceDir != "" {
		w, err := tracelog.NewWriter(filepath.Join(*traceDir,
			runID+tracelog.Extension))
		if err != nil {
			return err
		}
		exp.Register(trackers.NewTrace(w, runID, scene.Controller().AgentID))
	}

	if *framesDir != "" {
		draw, dt, err := render.DrawerFor(scene)
		if err != nil {
			return err
		}
		presenter := render.NewPresenter(render.DefaultEffectDelay)
		scene.Register(presenter)

		recorder, err := render.NewRecorder(draw, presenter, dt, *every,
			filepath.Join(*framesDir, runID))
		if err != nil {
			return err
		}
		exp.Register(recorder)
	}

	if !*quiet && *episodes > 0 {
		bar := progressbar.NewManualProgressBar(os.Stderr, 40, int(*episodes))
		bar.SetLabel(func() string {
			return scene.Controller().Stats().String()
		})
		exp.SetProgress(bar)
		defer bar.Close()
	}

	logger.Printf("run %s: %s with %s agent", runID, cfg.Scenario, af.kind)
	runErr := exp.Run()
	if err := exp.Save(); err != nil && runErr == nil {
		runErr = err
	}
	if runErr != nil {
		return runErr
	}

	if exp.Locked() {
		logger.Printf("run %s: agent %s is goal-locked, no further "+
			"episodes possible", runID, scene.Controller().AgentID())
	}
	logger.Printf("run %s: %v  Instances: %d", runID,
		scene.Controller().Stats(), len(reg.Instances()))
	return nil
}

func loadConfig(path string, s envconfig.Scenario) (envconfig.Config, error) {
	if path != "" {
		return envconfig.Load(path)
	}
	return envconfig.Default(s)
}

func newAgent(af agentFlags, cfg envconfig.Config,
	scene envconfig.Scene) (agent.Agent, error) {
	switch agent.Type(af.kind) {
	case agent.Random:
		return random.New(scene.ActionSpec(), cfg.Seed)

	case agent.QLearning:
		return qlearning.New(scene.ActionSpec(), qlearning.Config{
			Epsilon:      af.epsilon,
			LearningRate: af.lr,
			CellSize:     af.cellSize,
		}, cfg.Seed)

	case agent.Heuristic:
		script, err := heuristic.ParseScript(af.keys)
		if err != nil {
			return nil, err
		}
		bindings := heuristic.CrossRoadBindings
		if cfg.Scenario == envconfig.Pyramids {
			bindings = heuristic.PyramidsBindings
		}
		return heuristic.New(bindings, script), nil
	}

	return nil, fmt.Errorf("no such agent %q", af.kind)
}
