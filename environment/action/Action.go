// Package action implements decoding of discrete action indices into
// motion commands. Decoding is pure: a Decoder never modifies the
// position it is given and has no side effects other than returning
// a Command.
package action

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Action is an enumerated discrete action
type Action int

const (
	Idle Action = iota
	Left
	Right
	Forward
	Backward
	RotateLeft
	RotateRight
)

func (a Action) String() string {
	switch a {
	case Left:
		return "Left"
	case Right:
		return "Right"
	case Forward:
		return "Forward"
	case Backward:
		return "Backward"
	case RotateLeft:
		return "RotateLeft"
	case RotateRight:
		return "RotateRight"
	default:
		return "Idle"
	}
}

// Layout maps the action indices received from the training channel to
// Actions. The length of a Layout is the declared size of the action
// space.
type Layout []Action

var (
	// CrossRoad is the action layout of the cross-the-road scenario:
	//
	//	Index	Action
	//	  0		Idle
	//	  1		Left
	//	  2		Right
	//	  3		Forward
	CrossRoad = Layout{Idle, Left, Right, Forward}

	// Pyramids is the action layout of the Pyramids scenario:
	//
	//	Index	Action
	//	  0		Idle
	//	  1		Forward
	//	  2		Backward
	//	  3		RotateRight
	//	  4		RotateLeft
	Pyramids = Layout{Idle, Forward, Backward, RotateRight, RotateLeft}
)

// Lookup returns the Action at index i. Indices outside the layout
// decode to Idle.
func (l Layout) Lookup(i int) Action {
	if i < 0 || i >= len(l) {
		return Idle
	}
	return l[i]
}

// IndexOf converts an action value received on the training channel to
// an action index. NaN and values too large to be an index map to -1,
// which decodes to Idle.
func IndexOf(value float64) int {
	if math.IsNaN(value) || math.Abs(value) > math.MaxInt32 {
		return -1
	}
	return int(math.Round(value))
}

// Index returns the first index of a in the layout, or -1 if a is not
// part of the layout
func (l Layout) Index(a Action) int {
	for i := range l {
		if l[i] == a {
			return i
		}
	}
	return -1
}

// Blend is an animation intent. Forward and Lateral are blend values
// in [-1, 1] for the "ver" and "hor" animation parameters.
type Blend struct {
	Forward float64
	Lateral float64
}

// Command is a decoded motion command
type Command struct {
	Action Action

	// Delta is the translation from the current position to the target
	// position. It is the zero vector for commands that do not translate.
	Delta *mat.VecDense

	// Turn is the rotation direction: +1 turns right (clockwise seen
	// from above), -1 turns left, and 0 does not rotate. The rotation
	// rate is owned by the motion integrator.
	Turn float64

	// Drive is the direction of travel along the current facing for
	// force-driven agents: +1 forward, -1 backward, 0 none.
	Drive float64

	// Blend is the animation intent for the command. It is only
	// meaningful when HasBlend is true.
	Blend    Blend
	HasBlend bool

	// Suppressed is true if the action was legal in the declared
	// action space but was masked out in the current context, for
	// example moving sideways on the road.
	Suppressed bool
}

// Moves returns whether the command starts a translational move
func (c Command) Moves() bool {
	return c.Delta != nil && mat.Norm(c.Delta, 2) > 0
}

// Target returns the position that the command moves to, starting
// from position
func (c Command) Target(position mat.Vector) *mat.VecDense {
	target := mat.NewVecDense(position.Len(), nil)
	target.AddVec(position, c.Delta)
	return target
}

// Decoder decodes discrete action indices into Commands.
//
// If the Decoder has a road boundary, then once a position's z
// coordinate exceeds the boundary only Idle and Forward remain legal.
// Left and Right then decode to a suppressed no-op, without changing
// the declared size of the action space.
type Decoder struct {
	layout       Layout
	stepAmount   float64
	roadBoundary float64
}

// NewDecoder returns a new Decoder with the argument layout. Translating
// actions move the target by stepAmount.
func NewDecoder(layout Layout, stepAmount float64) (*Decoder, error) {
	if len(layout) == 0 {
		return nil, fmt.Errorf("newDecoder: empty action layout")
	}
	if stepAmount < 0 {
		return nil, fmt.Errorf("newDecoder: step amount must be "+
			"non-negative, have %v", stepAmount)
	}
	return &Decoder{
		layout:       layout,
		stepAmount:   stepAmount,
		roadBoundary: math.Inf(1),
	}, nil
}

// WithRoadBoundary returns a copy of the Decoder that restricts the
// action space once position z exceeds boundary
func (d *Decoder) WithRoadBoundary(boundary float64) *Decoder {
	restricted := *d
	restricted.roadBoundary = boundary
	return &restricted
}

// Layout returns the Decoder's action layout
func (d *Decoder) Layout() Layout {
	return d.layout
}

// Actions returns the declared size of the action space
func (d *Decoder) Actions() int {
	return len(d.layout)
}

// OnRoad returns whether the argument position is past the road
// boundary
func (d *Decoder) OnRoad(position mat.Vector) bool {
	return position.AtVec(2) > d.roadBoundary
}

// Decode decodes action index i taken at position into a Command.
// Unknown indices decode to Idle.
func (d *Decoder) Decode(i int, position mat.Vector) Command {
	a := d.layout.Lookup(i)
	cmd := Command{
		Action: a,
		Delta:  mat.NewVecDense(position.Len(), nil),
	}

	if d.OnRoad(position) && (a == Left || a == Right) {
		cmd.Action = Idle
		cmd.Suppressed = true
		return cmd
	}

	switch a {
	case Idle:
		cmd.Blend = Blend{0, 0}
		cmd.HasBlend = true

	case Left:
		cmd.Delta.SetVec(0, -d.stepAmount)
		cmd.Blend = Blend{Forward: 0, Lateral: -1}
		cmd.HasBlend = true

	case Right:
		cmd.Delta.SetVec(0, d.stepAmount)
		cmd.Blend = Blend{Forward: 0, Lateral: 1}
		cmd.HasBlend = true

	case Forward:
		cmd.Delta.SetVec(2, d.stepAmount)
		cmd.Drive = 1
		cmd.Blend = Blend{Forward: 1, Lateral: 0}
		cmd.HasBlend = true

	case Backward:
		cmd.Delta.SetVec(2, -d.stepAmount)
		cmd.Drive = -1
		cmd.Blend = Blend{Forward: -1, Lateral: 0}
		cmd.HasBlend = true

	case RotateRight:
		cmd.Turn = 1

	case RotateLeft:
		cmd.Turn = -1
	}

	return cmd
}
