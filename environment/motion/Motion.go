// Package motion implements integration of agent motion over simulated
// time: constant-speed translation towards a target, rotation at a
// fixed angular rate, and force-driven velocity changes. It also
// implements the stuck detector used by force-driven agents.
package motion

import (
	"fmt"
	"math"
	"time"

	"github.com/samuelfneumann/mlscenes/utils/floatutils"
	"gonum.org/v1/gonum/mat"
)

// Epsilon is the distance below which a move has arrived at its target
const Epsilon float64 = 1e-5

// MoveTowards returns the point at most maxDelta away from current
// along the straight line to target. MoveTowards never overshoots the
// target.
func MoveTowards(current, target mat.Vector, maxDelta float64) *mat.VecDense {
	diff := mat.NewVecDense(current.Len(), nil)
	diff.SubVec(target, current)
	dist := mat.Norm(diff, 2)

	next := mat.NewVecDense(current.Len(), nil)
	if dist <= maxDelta || dist == 0 {
		next.CopyVec(target)
		return next
	}

	next.AddScaledVec(current, maxDelta/dist, diff)
	return next
}

// Distance returns the Euclidean distance between a and b
func Distance(a, b mat.Vector) float64 {
	diff := mat.NewVecDense(a.Len(), nil)
	diff.SubVec(a, b)
	return mat.Norm(diff, 2)
}

// Advance moves pose towards target at constant speed over dt. It
// returns the new pose and whether the new pose has arrived at the
// target, which is true exactly when the distance to target is at most
// Epsilon.
func Advance(pose, target mat.Vector, speed float64,
	dt time.Duration) (*mat.VecDense, bool) {
	next := MoveTowards(pose, target, speed*dt.Seconds())
	return next, Distance(next, target) <= Epsilon
}

// Linear is a latched constant-speed mover. A Linear accepts a new
// target only when it is not already moving.
type Linear struct {
	speed      float64
	target     *mat.VecDense
	inProgress bool
}

// NewLinear returns a new Linear mover moving at speed units per
// second
func NewLinear(speed float64) (*Linear, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("newLinear: speed must be positive, have %v",
			speed)
	}
	return &Linear{speed: speed}, nil
}

// Speed returns the speed of the mover
func (l *Linear) Speed() float64 {
	return l.speed
}

// InProgress returns whether a move is in progress
func (l *Linear) InProgress() bool {
	return l.inProgress
}

// Target returns the current target, which is nil before the first
// call to Command or Stop
func (l *Linear) Target() *mat.VecDense {
	return l.target
}

// Command latches target as the new move target. If a move is already
// in progress, the command is refused and Command returns false. A
// target within Epsilon of position completes immediately.
func (l *Linear) Command(position, target mat.Vector) bool {
	if l.inProgress {
		return false
	}

	l.target = mat.VecDenseCopyOf(target)
	l.inProgress = Distance(position, target) > Epsilon
	return true
}

// Stop cancels any move in progress and pins the target to position
func (l *Linear) Stop(position mat.Vector) {
	l.target = mat.VecDenseCopyOf(position)
	l.inProgress = false
}

// Advance moves position towards the latched target over dt, returning
// the new position and whether the move arrived on this call. Once a
// move arrives the mover accepts new commands again.
func (l *Linear) Advance(position mat.Vector,
	dt time.Duration) (next *mat.VecDense, arrived bool) {
	if !l.inProgress {
		return mat.VecDenseCopyOf(position), false
	}

	next, arrived = Advance(position, l.target, l.speed, dt)
	if arrived {
		l.inProgress = false
	}
	return next, arrived
}

// Turn rotates heading (degrees, clockwise seen from above) in the
// direction of sign at degPerSec over dt. The returned heading is
// wrapped into [-180, 180).
func Turn(heading, sign, degPerSec float64, dt time.Duration) float64 {
	heading += floatutils.Sign(sign) * degPerSec * dt.Seconds()
	return floatutils.Wrap(heading, -180, 180)
}

// RotateTowards rotates heading towards target along the shortest arc
// at degPerSec over dt, never overshooting. It returns the new heading
// and whether target has been reached.
func RotateTowards(heading, target, degPerSec float64,
	dt time.Duration) (float64, bool) {
	diff := floatutils.Wrap(target-heading, -180, 180)
	maxDelta := degPerSec * dt.Seconds()

	if math.Abs(diff) <= maxDelta {
		return floatutils.Wrap(target, -180, 180), true
	}
	return floatutils.Wrap(heading+floatutils.Sign(diff)*maxDelta, -180,
		180), false
}

// Facing returns the unit forward vector (x, y, z) of heading. A
// heading of 0 faces +z and a heading of 90 faces +x.
func Facing(heading float64) *mat.VecDense {
	rad := heading * math.Pi / 180
	return mat.NewVecDense(3, []float64{math.Sin(rad), 0, math.Cos(rad)})
}

// DesiredVelocity returns the velocity change that drives an agent
// facing heading in direction drive (+1 forward, -1 backward) at speed.
// The change is applied every tick by the physics engine rather than
// teleporting the agent.
func DesiredVelocity(heading, drive, speed float64) *mat.VecDense {
	v := Facing(heading)
	v.ScaleVec(drive*speed, v)
	return v
}

// ToLocal expresses the world-frame vector v in the frame of an agent
// facing heading. The local frame has x pointing right, y up, and z
// forward.
func ToLocal(heading float64, v mat.Vector) *mat.VecDense {
	rad := heading * math.Pi / 180
	sin, cos := math.Sin(rad), math.Cos(rad)

	right := []float64{cos, 0, -sin}
	forward := []float64{sin, 0, cos}

	x := right[0]*v.AtVec(0) + right[2]*v.AtVec(2)
	z := forward[0]*v.AtVec(0) + forward[2]*v.AtVec(2)
	return mat.NewVecDense(3, []float64{x, v.AtVec(1), z})
}
