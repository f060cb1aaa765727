package render

import (
	"fmt"
	"image/color"
	"os"
	"path/filepath"
	"time"

	"github.com/fogleman/gg"
	env "github.com/samuelfneumann/mlscenes/environment"
	"github.com/samuelfneumann/mlscenes/environment/crossroad"
	"github.com/samuelfneumann/mlscenes/environment/pyramids"
	"github.com/samuelfneumann/mlscenes/episode"
	ts "github.com/samuelfneumann/mlscenes/timestep"
)

// DrawFunc draws the current frame of some environment
type DrawFunc func(ground color.Color, s episode.Stats) *gg.Context

// DrawerFor returns the DrawFunc for a concrete scenario and the
// simulated time that passes on each of its steps
func DrawerFor(e env.Environment) (DrawFunc, time.Duration, error) {
	switch scene := e.(type) {
	case *crossroad.Env:
		draw := func(ground color.Color, s episode.Stats) *gg.Context {
			return DrawCrossRoad(scene, ground, s)
		}
		return draw, scene.Config().DT, nil

	case *pyramids.Env:
		draw := func(ground color.Color, s episode.Stats) *gg.Context {
			return DrawPyramids(scene, ground, s)
		}
		return draw, scene.Config().DT, nil

	default:
		return nil, 0, fmt.Errorf("drawerFor: cannot render %T", e)
	}
}

// Recorder tracks an experiment by writing a PNG frame every few
// steps. The Recorder owns a Presenter which must be registered as an
// episode.Listener with the environment being recorded so that ground
// effects show up in frames.
//
// Frames are numbered sequentially and written to
// dir/frame000000.png, dir/frame000001.png, and so on.
type Recorder struct {
	presenter *Presenter
	draw      DrawFunc
	dt        time.Duration
	every     int
	dir       string

	tracked int
	frames  int
	err     error
}

// NewRecorder returns a new Recorder which draws a frame every `every`
// tracked steps, advancing its Presenter by dt on each step
func NewRecorder(draw DrawFunc, p *Presenter, dt time.Duration, every int,
	dir string) (*Recorder, error) {
	if every < 1 {
		return nil, fmt.Errorf("newRecorder: frame interval must be "+
			"positive, have %v", every)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newRecorder: %w", err)
	}

	return &Recorder{
		presenter: p,
		draw:      draw,
		dt:        dt,
		every:     every,
		dir:       dir,
	}, nil
}

// Track advances presentation time and writes a frame if one is due.
// The first error encountered is kept and returned by Save.
func (r *Recorder) Track(step ts.TimeStep) {
	if !step.First() {
		r.presenter.Advance(r.dt)
	}

	if r.tracked%r.every == 0 && r.err == nil {
		path := filepath.Join(r.dir, fmt.Sprintf("frame%06d.png", r.frames))
		dc := r.draw(r.presenter.Ground(), r.presenter.Stats())
		if err := dc.SavePNG(path); err != nil {
			r.err = fmt.Errorf("track: %w", err)
		} else {
			r.frames++
		}
	}
	r.tracked++
}

// Save returns any error that occurred while writing frames. Frames
// are written as they are tracked, so nothing else is saved.
func (r *Recorder) Save() error {
	return r.err
}

// Frames returns the number of frames written
func (r *Recorder) Frames() int {
	return r.frames
}
