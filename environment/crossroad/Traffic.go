package crossroad

import (
	"fmt"
	"time"

	"github.com/samuelfneumann/mlscenes/environment/zone"
	"github.com/samuelfneumann/mlscenes/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Lane is a lane of traffic crossing the road along the x axis. Cars
// drive at Speed units per second (negative speeds drive towards -x)
// and wrap around when they leave Bounds.
type Lane struct {
	Z      float64
	Speed  float64
	Cars   []float64
	Size   [3]float64
	Bounds r1.Interval
}

// traffic tracks the hazard zones of a single Lane
type traffic struct {
	lane Lane
	y    float64
	cars []*zone.Zone
}

func newTraffic(id int, lane Lane, y float64) (*traffic, error) {
	if lane.Bounds.Max <= lane.Bounds.Min {
		return nil, fmt.Errorf("newTraffic: lane %d has empty bounds %v", id,
			lane.Bounds)
	}

	t := &traffic{lane: lane, y: y}
	for i, x := range lane.Cars {
		car, err := zone.NewBox(fmt.Sprintf("lane%d-car%d", id, i),
			zone.Hazard, []float64{x, y, lane.Z}, lane.Size[:])
		if err != nil {
			return nil, fmt.Errorf("newTraffic: %w", err)
		}
		t.cars = append(t.cars, car)
	}
	return t, nil
}

// reset moves all cars back to their starting positions
func (t *traffic) reset() {
	for i, car := range t.cars {
		car.MoveTo(mat.NewVecDense(3, []float64{t.lane.Cars[i], t.y,
			t.lane.Z}))
	}
}

// advance drives all cars for dt
func (t *traffic) advance(dt time.Duration) {
	dx := t.lane.Speed * dt.Seconds()
	for _, car := range t.cars {
		x := floatutils.Wrap(car.Center().AtVec(0)+dx, t.lane.Bounds.Min,
			t.lane.Bounds.Max)
		car.MoveTo(mat.NewVecDense(3, []float64{x, t.y, t.lane.Z}))
	}
}
