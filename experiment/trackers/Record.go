package trackers

import (
	"context"
	"fmt"

	"github.com/samuelfneumann/mlscenes/episode"
	"github.com/samuelfneumann/mlscenes/storage"
	ts "github.com/samuelfneumann/mlscenes/timestep"
)

// Record stores a summary of every finished episode in a
// storage.Store. Record must be registered both as an episode.Listener
// with the environment and as a Tracker with the experiment: summaries
// are collected when episodes end and written when the last TimeStep
// of the episode is tracked.
type Record struct {
	ctx      context.Context
	store    storage.Store
	runID    string
	scenario string

	pending []episode.Summary
	saved   int
	err     error
}

// NewRecord returns a new Record writing to an initialized store
func NewRecord(ctx context.Context, store storage.Store, runID,
	scenario string) *Record {
	return &Record{ctx: ctx, store: store, runID: runID, scenario: scenario}
}

// EpisodeEnded implements episode.Listener
func (r *Record) EpisodeEnded(s episode.Summary) {
	r.pending = append(r.pending, s)
}

// Track writes pending summaries at the end of each episode. The first
// error encountered is kept and returned by Save.
func (r *Record) Track(step ts.TimeStep) {
	if step.Last() {
		r.flush()
	}
}

// Save writes any pending summaries
func (r *Record) Save() error {
	r.flush()
	return r.err
}

// Saved returns the number of episodes written to the store
func (r *Record) Saved() int {
	return r.saved
}

func (r *Record) flush() {
	for len(r.pending) > 0 && r.err == nil {
		e := storage.FromSummary(r.runID, r.scenario, r.pending[0])
		if err := r.store.SaveEpisode(r.ctx, e); err != nil {
			r.err = fmt.Errorf("record: %w", err)
			return
		}
		r.pending = r.pending[1:]
		r.saved++
	}
}
