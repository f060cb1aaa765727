// Package zone implements static and moving spatial regions and the
// terminal condition evaluator that decides which event, if any, an
// agent position triggers.
package zone

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Kind tags the role of a Zone
type Kind int

const (
	Goal Kind = iota
	Hazard
	Switch
)

func (k Kind) String() string {
	switch k {
	case Goal:
		return "Goal"
	case Hazard:
		return "Hazard"
	case Switch:
		return "Switch"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ParseKind parses a Kind from its name
func ParseKind(s string) (Kind, error) {
	switch s {
	case "goal", "Goal":
		return Goal, nil
	case "hazard", "Hazard":
		return Hazard, nil
	case "switch", "Switch":
		return Switch, nil
	}
	return 0, fmt.Errorf("parseKind: unknown zone kind %q", s)
}

// Zone is an axis-aligned box in (x, y, z) with a Kind tag. Zones are
// set up with the scene. Agent logic only reads them; only the scene
// (e.g. moving traffic) moves them.
type Zone struct {
	ID     string
	Kind   Kind
	Bounds [3]r1.Interval
}

// NewBox returns a Zone centred at center with the argument full
// extents along each axis
func NewBox(id string, kind Kind, center, size []float64) (*Zone, error) {
	if len(center) != 3 || len(size) != 3 {
		return nil, fmt.Errorf("newBox: zone %q needs 3-dimensional centre "+
			"and size, have %d and %d", id, len(center), len(size))
	}

	z := &Zone{ID: id, Kind: kind}
	for i := range z.Bounds {
		if size[i] < 0 {
			return nil, fmt.Errorf("newBox: zone %q has negative size %v "+
				"along axis %d", id, size[i], i)
		}
		z.Bounds[i] = r1.Interval{
			Min: center[i] - size[i]/2,
			Max: center[i] + size[i]/2,
		}
	}
	return z, nil
}

// Contains returns whether point p is inside the zone, boundaries
// included
func (z *Zone) Contains(p mat.Vector) bool {
	for i := range z.Bounds {
		v := p.AtVec(i)
		if v < z.Bounds[i].Min || v > z.Bounds[i].Max {
			return false
		}
	}
	return true
}

// Overlaps returns whether a sphere of the argument radius centred at
// p intersects the zone. A radius of 0 is equivalent to Contains.
func (z *Zone) Overlaps(p mat.Vector, radius float64) bool {
	var dist2 float64
	for i := range z.Bounds {
		v := p.AtVec(i)
		var d float64
		if v < z.Bounds[i].Min {
			d = z.Bounds[i].Min - v
		} else if v > z.Bounds[i].Max {
			d = v - z.Bounds[i].Max
		}
		dist2 += d * d
	}
	return dist2 <= radius*radius
}

// Center returns the centre of the zone
func (z *Zone) Center() *mat.VecDense {
	c := mat.NewVecDense(3, nil)
	for i := range z.Bounds {
		c.SetVec(i, (z.Bounds[i].Min+z.Bounds[i].Max)/2)
	}
	return c
}

// Size returns the full extents of the zone along each axis
func (z *Zone) Size() [3]float64 {
	var size [3]float64
	for i := range z.Bounds {
		size[i] = z.Bounds[i].Max - z.Bounds[i].Min
	}
	return size
}

// Translate moves the zone by delta
func (z *Zone) Translate(delta mat.Vector) {
	for i := range z.Bounds {
		z.Bounds[i].Min += delta.AtVec(i)
		z.Bounds[i].Max += delta.AtVec(i)
	}
}

// MoveTo moves the zone so that it is centred at center
func (z *Zone) MoveTo(center mat.Vector) {
	delta := mat.NewVecDense(3, nil)
	delta.SubVec(center, z.Center())
	z.Translate(delta)
}

// Clone returns a copy of the zone
func (z *Zone) Clone() *Zone {
	clone := *z
	return &clone
}

func (z *Zone) String() string {
	c := z.Center()
	return fmt.Sprintf("%v %v at (%.2f, %.2f, %.2f)", z.Kind, z.ID,
		c.AtVec(0), c.AtVec(1), c.AtVec(2))
}

// finite reports whether all bounds of the zone are finite
func (z *Zone) finite() bool {
	for i := range z.Bounds {
		if math.IsInf(z.Bounds[i].Min, 0) || math.IsInf(z.Bounds[i].Max, 0) ||
			math.IsNaN(z.Bounds[i].Min) || math.IsNaN(z.Bounds[i].Max) {
			return false
		}
	}
	return true
}
