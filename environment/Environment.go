// Package environment outlines the interfaces and structs needed to
// implement concrete episodic environments. Concrete scenarios live in
// sub-packages and are driven one tick at a time by an external loop,
// such as the one in package experiment.
package environment

import (
	ts "github.com/samuelfneumann/mlscenes/timestep"
	"gonum.org/v1/gonum/mat"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Environment implements a simulated environment. An Environment is
// stepped synchronously by a single driving loop: Reset begins a new
// episode, and Step consumes one discrete action per tick.
//
// Once Step returns a last TimeStep, further calls to Step return an
// error wrapping ErrEpisodeOver until Reset is called.
type Environment interface {
	Reset() (ts.TimeStep, error)
	Step(action *mat.VecDense) (ts.TimeStep, bool, error)
	CurrentTimeStep() ts.TimeStep

	ActionSpec() Spec
	ObservationSpec() Spec
	DiscountSpec() Spec
	RewardSpec() Spec
}
