package registry

import (
	"errors"
	"testing"

	"github.com/samuelfneumann/mlscenes/episode"
)

func TestSuccessor(t *testing.T) {
	r, err := New(0)
	if err != nil {
		t.Fatal(err)
	}
	first := r.Active()

	next, err := r.RequestSuccessorAgent()
	if err != nil {
		t.Fatal(err)
	}
	if next == first {
		t.Error("successor reused the retired instance ID")
	}
	if r.Active() != next {
		t.Errorf("active: want %v, have %v", next, r.Active())
	}

	instances := r.Instances()
	if len(instances) != 2 || instances[0].Active || !instances[1].Active {
		t.Errorf("unexpected instances %+v", instances)
	}
	if instances[1].Generation != 1 {
		t.Errorf("generation: want 1, have %d", instances[1].Generation)
	}
	if r.Retired() != 1 {
		t.Errorf("retired: want 1, have %d", r.Retired())
	}
}

func TestLimit(t *testing.T) {
	r, err := New(2)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := r.RequestSuccessorAgent(); err != nil {
		t.Fatal(err)
	}
	_, err = r.RequestSuccessorAgent()
	if !errors.Is(err, ErrExhausted) {
		t.Errorf("want ErrExhausted, have %v", err)
	}
	if !errors.Is(err, episode.ErrNoSuccessor) {
		t.Errorf("exhaustion should wrap episode.ErrNoSuccessor: %v", err)
	}
}
