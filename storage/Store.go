// Package storage persists per-episode statistics so that runs can be
// inspected after they finish
package storage

import (
	"context"
	"errors"

	"github.com/samuelfneumann/mlscenes/episode"
)

// ErrNotInitialized is returned by Stores used before Init
var ErrNotInitialized = errors.New("store is not initialized")

// Episode is the stored record of one finished episode
type Episode struct {
	RunID    string
	Scenario string
	Episode  int
	AgentID  string
	Steps    int
	Return   float64
	Event    string
	EndType  string
}

// FromSummary returns the stored record of an episode summary
func FromSummary(runID, scenario string, s episode.Summary) Episode {
	return Episode{
		RunID:    runID,
		Scenario: scenario,
		Episode:  s.Episode,
		AgentID:  s.AgentID,
		Steps:    s.Steps,
		Return:   s.Return,
		Event:    s.Event.String(),
		EndType:  s.EndType.String(),
	}
}

// Totals returns the statistics of a list of stored episodes
func Totals(episodes []Episode) episode.Stats {
	var stats episode.Stats
	for _, e := range episodes {
		stats.Add(episode.Summary{Steps: e.Steps, Return: e.Return})
	}
	return stats
}

// Store persists episode records. Episodes are returned in the order
// they were saved.
type Store interface {
	Init(ctx context.Context) error
	SaveEpisode(ctx context.Context, e Episode) error
	Episodes(ctx context.Context, runID string) ([]Episode, error)
	Runs(ctx context.Context) ([]string, error)
	Close() error
}
