package motion

import (
	"testing"
	"time"
)

func TestStuckDetectorTriggersAfterTimeout(t *testing.T) {
	s, err := NewStuckDetector(DefaultStuckConfig())
	if err != nil {
		t.Fatal(err)
	}
	dt := 100 * time.Millisecond

	// 2 seconds of stillness is not yet more than the timeout
	for i := 0; i < 20; i++ {
		if _, stuck := s.Observe(0.01, dt); stuck {
			t.Fatalf("triggered early on tick %d", i)
		}
	}

	r, stuck := s.Observe(0.01, dt)
	if !stuck {
		t.Fatal("did not trigger after timeout")
	}
	if r.Turn != 90 || r.Attempt != 1 {
		t.Errorf("want 90 degree turn on attempt 1, have %+v", r)
	}
}

func TestStuckDetectorAttemptsWrap(t *testing.T) {
	c := DefaultStuckConfig()
	s, err := NewStuckDetector(c)
	if err != nil {
		t.Fatal(err)
	}
	dt := 100 * time.Millisecond

	var attempts []int
	for len(attempts) < 6 {
		if r, stuck := s.Observe(0, dt); stuck {
			attempts = append(attempts, r.Attempt)
		}
	}

	want := []int{1, 2, 3, 4, 1, 2}
	for i := range want {
		if attempts[i] != want[i] {
			t.Fatalf("attempts: want %v, have %v", want, attempts)
		}
	}
}

func TestStuckDetectorResetsOnMotion(t *testing.T) {
	s, err := NewStuckDetector(DefaultStuckConfig())
	if err != nil {
		t.Fatal(err)
	}
	dt := 100 * time.Millisecond

	for i := 0; i < 21; i++ {
		s.Observe(0, dt)
	}
	if s.Attempts() != 1 {
		t.Fatalf("want 1 attempt, have %d", s.Attempts())
	}

	s.Observe(DefaultStuckThreshold, dt)
	if s.Attempts() != 0 {
		t.Errorf("motion should reset attempts, have %d", s.Attempts())
	}

	// Stillness must accumulate from scratch after motion
	for i := 0; i < 20; i++ {
		if _, stuck := s.Observe(0, dt); stuck {
			t.Fatalf("triggered early after motion on tick %d", i)
		}
	}
}
