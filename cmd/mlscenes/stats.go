package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/samuelfneumann/mlscenes/storage"
)

func statsCmd(args []string) error {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	dbPath := fs.String("db", "", "SQLite database of episode statistics")
	runID := fs.String("run", "", "run to show (all runs if empty)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *dbPath == "" {
		return errors.New("stats: -db is required")
	}
	if _, err := os.Stat(*dbPath); err != nil {
		return fmt.Errorf("stats: %w", err)
	}

	ctx := context.Background()
	store := storage.NewSQLiteStore(*dbPath)
	if err := store.Init(ctx); err != nil {
		return fmt.Errorf("stats: %w", err)
	}
	defer store.Close()

	runs := []string{*runID}
	if *runID == "" {
		var err error
		if runs, err = store.Runs(ctx); err != nil {
			return fmt.Errorf("stats: %w", err)
		}
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tSCENARIO\tTOTALS\tENDINGS")
	for _, id := range runs {
		episodes, err := store.Episodes(ctx, id)
		if err != nil {
			return fmt.Errorf("stats: %w", err)
		}
		if len(episodes) == 0 {
			fmt.Fprintf(w, "%s\t-\tno episodes\t\n", id)
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%v\t%s\n", id, episodes[0].Scenario,
			storage.Totals(episodes), endings(episodes))
	}
	return w.Flush()
}

// endings counts how episodes ended, keyed by event or end type
func endings(episodes []storage.Episode) string {
	counts := make(map[string]int)
	for _, e := range episodes {
		key := e.Event
		if key == "None" {
			key = e.EndType
		}
		counts[key]++
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var out string
	for i, k := range keys {
		if i > 0 {
			out += " "
		}
		out += fmt.Sprintf("%s=%d", k, counts[k])
	}
	return out
}
