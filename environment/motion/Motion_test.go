package motion

import (
	"math"
	"testing"
	"time"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
)

func TestAdvanceNeverOvershoots(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	dt := 20 * time.Millisecond

	for trial := 0; trial < 50; trial++ {
		pose := mat.NewVecDense(3, []float64{
			rng.Float64()*20 - 10, 0.5, rng.Float64()*20 - 10,
		})
		target := mat.NewVecDense(3, []float64{
			rng.Float64()*20 - 10, 0.5, rng.Float64()*20 - 10,
		})
		speed := 1 + rng.Float64()*50

		for i := 0; i < 10000; i++ {
			before := Distance(pose, target)
			next, arrived := Advance(pose, target, speed, dt)
			after := Distance(next, target)

			if after > before {
				t.Fatalf("overshoot: distance %v -> %v", before, after)
			}
			if arrived != (after <= Epsilon) {
				t.Fatalf("arrived = %v at distance %v", arrived, after)
			}

			pose = next
			if arrived {
				break
			}
		}

		if Distance(pose, target) > Epsilon {
			t.Fatalf("trial %d never arrived", trial)
		}
	}
}

func TestLinearLatchesMoves(t *testing.T) {
	l, err := NewLinear(5)
	if err != nil {
		t.Fatal(err)
	}

	position := mat.NewVecDense(3, []float64{0, 0.5, 0})
	target := mat.NewVecDense(3, []float64{5, 0.5, 0})

	if !l.Command(position, target) {
		t.Fatal("first command refused")
	}
	if !l.InProgress() {
		t.Fatal("move should be in progress")
	}

	other := mat.NewVecDense(3, []float64{-5, 0.5, 0})
	if l.Command(position, other) {
		t.Fatal("command accepted while moving")
	}

	// 5 units at 5 units/s takes 1s, i.e. 50 ticks of 20ms
	ticks := 0
	for l.InProgress() {
		var arrived bool
		position, arrived = l.Advance(position, 20*time.Millisecond)
		ticks++
		if arrived != !l.InProgress() {
			t.Fatal("arrival and progress disagree")
		}
		if ticks > 1000 {
			t.Fatal("move never arrived")
		}
	}

	if ticks != 50 {
		t.Errorf("want 50 ticks, have %d", ticks)
	}
	if !mat.EqualApprox(position, target, Epsilon) {
		t.Errorf("position %v, want %v", position.RawVector().Data,
			target.RawVector().Data)
	}

	if !l.Command(position, other) {
		t.Error("command refused after arrival")
	}
}

func TestTurnAndRotateTowards(t *testing.T) {
	dt := 20 * time.Millisecond

	// 200 degrees per second for 20ms is 4 degrees
	if h := Turn(0, 1, 200, dt); math.Abs(h-4) > 1e-9 {
		t.Errorf("turn right: want 4, have %v", h)
	}
	if h := Turn(-178, -1, 200, dt); math.Abs(h-178) > 1e-9 {
		t.Errorf("turn left through -180: want 178, have %v", h)
	}

	h, done := 170.0, false
	for i := 0; i < 100 && !done; i++ {
		h, done = RotateTowards(h, -170, 200, dt)
	}
	if !done || math.Abs(h+170) > 1e-9 {
		t.Errorf("rotate towards -170: have %v, done %v", h, done)
	}
}

func TestToLocal(t *testing.T) {
	world := mat.NewVecDense(3, []float64{1, 0, 0})

	// Facing +x, a +x velocity is straight ahead
	local := ToLocal(90, world)
	want := mat.NewVecDense(3, []float64{0, 0, 1})
	if !mat.EqualApprox(local, want, 1e-12) {
		t.Errorf("want %v, have %v", want.RawVector().Data,
			local.RawVector().Data)
	}

	v := DesiredVelocity(90, -1, 2)
	want = mat.NewVecDense(3, []float64{-2, 0, 0})
	if !mat.EqualApprox(v, want, 1e-12) {
		t.Errorf("desired velocity: want %v, have %v",
			want.RawVector().Data, v.RawVector().Data)
	}
}
