// Package heuristic implements an agent driven by keyboard input, used
// to play a scenario by hand or to replay a scripted key sequence.
//
// Key bindings follow the in-engine controls of each scenario:
//
//	Cross-the-road   Pyramids
//	Left  -> 1       D -> 3
//	Right -> 2       W -> 1
//	Up    -> 3       A -> 4
//	                 S -> 2
//
// When no bound key is held the Idle action 0 is selected. When several
// bound keys are held the binding listed first wins.
package heuristic

import (
	"fmt"
	"strings"

	ts "github.com/samuelfneumann/mlscenes/timestep"
	"gonum.org/v1/gonum/mat"
)

// Key is a keyboard key
type Key string

const (
	Left  Key = "left"
	Right Key = "right"
	Up    Key = "up"
	W     Key = "w"
	A     Key = "a"
	S     Key = "s"
	D     Key = "d"
)

// ParseKey returns the Key named by s
func ParseKey(s string) (Key, error) {
	k := Key(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case Left, Right, Up, W, A, S, D:
		return k, nil
	default:
		return "", fmt.Errorf("parseKey: unknown key %q", s)
	}
}

// Binding maps a held key to an action index
type Binding struct {
	Key    Key
	Action int
}

// CrossRoadBindings lists the cross-the-road bindings in priority
// order
var CrossRoadBindings = []Binding{
	{Up, 3},
	{Right, 2},
	{Left, 1},
}

// PyramidsBindings lists the Pyramids bindings in priority order
var PyramidsBindings = []Binding{
	{D, 3},
	{W, 1},
	{A, 4},
	{S, 2},
}

// Input reports the keys held on the current frame. Each call to
// Pressed consumes one frame.
type Input interface {
	Pressed() []Key
}

// Script is an Input that replays a fixed sequence of frames. Once
// the sequence is exhausted no keys are held.
type Script struct {
	frames [][]Key
	next   int
}

// NewScript returns a new Script replaying frames in order
func NewScript(frames ...[]Key) *Script {
	return &Script{frames: frames}
}

// ParseScript parses a script of comma separated frames. Keys held
// together on a frame are joined with '+', and an empty frame holds no
// keys, so "up,up+left,,w" is four frames.
func ParseScript(s string) (*Script, error) {
	if strings.TrimSpace(s) == "" {
		return NewScript(), nil
	}

	var frames [][]Key
	for _, frame := range strings.Split(s, ",") {
		var keys []Key
		if strings.TrimSpace(frame) != "" {
			for _, name := range strings.Split(frame, "+") {
				k, err := ParseKey(name)
				if err != nil {
					return nil, fmt.Errorf("parseScript: %w", err)
				}
				keys = append(keys, k)
			}
		}
		frames = append(frames, keys)
	}
	return NewScript(frames...), nil
}

// Pressed implements Input
func (s *Script) Pressed() []Key {
	if s.next >= len(s.frames) {
		return nil
	}
	keys := s.frames[s.next]
	s.next++
	return keys
}

// Remaining returns the number of frames not yet replayed
func (s *Script) Remaining() int {
	return len(s.frames) - s.next
}

// Keys is an agent whose actions are read from keyboard input. It
// never learns.
type Keys struct {
	bindings []Binding
	input    Input
	eval     bool
}

// New returns a new Keys agent reading from input with the argument
// bindings
func New(bindings []Binding, input Input) *Keys {
	return &Keys{bindings: bindings, input: input}
}

// SelectAction returns the action bound to the highest priority held
// key, or Idle if no bound key is held
func (k *Keys) SelectAction(ts.TimeStep) *mat.VecDense {
	return mat.NewVecDense(1, []float64{float64(k.Action(k.input.Pressed()))})
}

// Action returns the action index selected by a set of held keys
func (k *Keys) Action(pressed []Key) int {
	for _, b := range k.bindings {
		for _, key := range pressed {
			if key == b.Key {
				return b.Action
			}
		}
	}
	return 0
}

// Eval sets the agent to evaluation mode
func (k *Keys) Eval() { k.eval = true }

// Train sets the agent to training mode
func (k *Keys) Train() { k.eval = false }

// IsEval returns whether the agent is in evaluation mode
func (k *Keys) IsEval() bool { return k.eval }

// Step is a no-op
func (k *Keys) Step() error { return nil }

// Observe is a no-op
func (k *Keys) Observe(mat.Vector, ts.TimeStep) error { return nil }

// ObserveFirst is a no-op
func (k *Keys) ObserveFirst(ts.TimeStep) error { return nil }

// EndEpisode is a no-op
func (k *Keys) EndEpisode() {}
