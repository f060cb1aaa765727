package zone

import (
	"fmt"

	"github.com/samuelfneumann/mlscenes/environment"
	"gonum.org/v1/gonum/mat"
)

// Event is the outcome of evaluating an agent position against the
// zones of a scene
type Event int

const (
	None Event = iota
	GoalReached
	HazardReached
	SwitchActivated
)

func (e Event) String() string {
	switch e {
	case GoalReached:
		return "GoalReached"
	case HazardReached:
		return "HazardReached"
	case SwitchActivated:
		return "SwitchActivated"
	default:
		return "None"
	}
}

// Rules selects the per-scenario policy used to turn zone overlaps
// into Events
type Rules int

const (
	// CrossRoadRules: overlapping a goal zone is GoalReached and
	// overlapping a hazard zone is HazardReached. Switch zones are
	// ignored.
	CrossRoadRules Rules = iota

	// PyramidRules: overlapping a switch zone while the switch is off
	// is SwitchActivated. Goal zones only count once the switch is on.
	// Hazard zones behave as in CrossRoadRules.
	PyramidRules
)

func (r Rules) String() string {
	if r == PyramidRules {
		return "Pyramids"
	}
	return "CrossRoad"
}

// SwitchState is the read-only view of a switch used by the Evaluator
type SwitchState interface {
	On() bool
}

// Evaluator decides whether an agent position triggers an Event. When
// several zones overlap the position, goals take priority over
// hazards, and hazards over switches.
type Evaluator struct {
	rules  Rules
	zones  []*Zone
	toggle SwitchState
}

// NewEvaluator returns a new Evaluator over the argument zones. The
// zones are held by reference so that moving zones are seen by later
// evaluations. Missing zones or switches that the rules depend on are
// reported as environment.MissingDependencyError.
func NewEvaluator(rules Rules, zones []*Zone,
	toggle SwitchState) (*Evaluator, error) {
	kinds := make(map[Kind]int)
	for _, z := range zones {
		if z == nil {
			return nil, fmt.Errorf("newEvaluator: nil zone")
		}
		if !z.finite() {
			return nil, fmt.Errorf("newEvaluator: zone %q has non-finite "+
				"bounds", z.ID)
		}
		kinds[z.Kind]++
	}

	switch rules {
	case CrossRoadRules:
		if kinds[Goal] == 0 {
			return nil, fmt.Errorf("newEvaluator: %w",
				&environment.MissingDependencyError{
					Component:  "cross-the-road evaluator",
					Dependency: "a goal zone",
				})
		}

	case PyramidRules:
		if kinds[Switch] == 0 {
			return nil, fmt.Errorf("newEvaluator: %w",
				&environment.MissingDependencyError{
					Component:  "pyramids evaluator",
					Dependency: "a switch zone",
				})
		}
		if toggle == nil {
			return nil, fmt.Errorf("newEvaluator: %w",
				&environment.MissingDependencyError{
					Component:  "pyramids evaluator",
					Dependency: "a switch",
				})
		}

	default:
		return nil, fmt.Errorf("newEvaluator: unknown rules %d", rules)
	}

	return &Evaluator{rules: rules, zones: zones, toggle: toggle}, nil
}

// Zones returns the zones the Evaluator reads
func (e *Evaluator) Zones() []*Zone {
	return e.zones
}

// Rules returns the Evaluator's rules
func (e *Evaluator) Rules() Rules {
	return e.rules
}

// Classify returns the Event that touching zone z would trigger given
// the current switch state
func (e *Evaluator) Classify(z *Zone) Event {
	switch z.Kind {
	case Goal:
		if e.rules == PyramidRules && !e.toggle.On() {
			return None
		}
		return GoalReached

	case Hazard:
		return HazardReached

	case Switch:
		if e.rules == PyramidRules && !e.toggle.On() {
			return SwitchActivated
		}
	}
	return None
}

// Evaluate returns the highest priority Event triggered by an agent of
// the argument radius at position p, and the zone that triggered it.
// If no event is triggered, Evaluate returns None and a nil zone.
func (e *Evaluator) Evaluate(p mat.Vector, radius float64) (Event, *Zone) {
	best, bestZone := None, (*Zone)(nil)
	for _, z := range e.zones {
		if !z.Overlaps(p, radius) {
			continue
		}

		event := e.Classify(z)
		if event != None && (best == None || priority(event) < priority(best)) {
			best, bestZone = event, z
		}
	}
	return best, bestZone
}

// priority returns the priority of an event, lower is more important
func priority(e Event) int {
	switch e {
	case GoalReached:
		return 0
	case HazardReached:
		return 1
	case SwitchActivated:
		return 2
	default:
		return 3
	}
}
