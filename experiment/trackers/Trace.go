package trackers

import (
	"fmt"

	"github.com/samuelfneumann/mlscenes/environment/action"
	"github.com/samuelfneumann/mlscenes/tracelog"
	ts "github.com/samuelfneumann/mlscenes/timestep"
	"gonum.org/v1/gonum/mat"
)

// Trace writes every tracked TimeStep to a tracelog.Writer. Save
// closes the writer.
type Trace struct {
	w       *tracelog.Writer
	runID   string
	agentID func() string

	episode int
	err     error
}

// NewTrace returns a new Trace. The agentID function, which may be
// nil, is called for every TimeStep to label it with the active agent.
func NewTrace(w *tracelog.Writer, runID string, agentID func() string) *Trace {
	return &Trace{w: w, runID: runID, agentID: agentID}
}

// Track writes a TimeStep without an action
func (t *Trace) Track(step ts.TimeStep) {
	t.write(nil, step)
}

// TrackAction writes a TimeStep and the action that led to it
func (t *Trace) TrackAction(a mat.Vector, step ts.TimeStep) {
	var index *int
	if a != nil && a.Len() == 1 {
		i := action.IndexOf(a.AtVec(0))
		index = &i
	}
	t.write(index, step)
}

func (t *Trace) write(a *int, step ts.TimeStep) {
	if step.Number == 0 {
		t.episode++
	}
	if t.err != nil {
		return
	}

	r := tracelog.Record{
		RunID:    t.runID,
		Episode:  t.episode,
		Step:     step.Number,
		Type:     step.StepType.String(),
		Action:   a,
		Reward:   step.Reward,
		Discount: step.Discount,
	}
	if step.Last() {
		r.End = step.EndType().String()
	}
	if step.Observation != nil {
		r.Observation = append([]float64(nil),
			step.Observation.RawVector().Data...)
	}
	if t.agentID != nil {
		r.AgentID = t.agentID()
	}

	if err := t.w.Write(r); err != nil {
		t.err = fmt.Errorf("trace: %w", err)
	}
}

// Save closes the trace file and returns the first error encountered
func (t *Trace) Save() error {
	if err := t.w.Close(); err != nil && t.err == nil {
		t.err = fmt.Errorf("trace: %w", err)
	}
	return t.err
}
