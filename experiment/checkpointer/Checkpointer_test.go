package checkpointer

import (
	"bytes"
	"encoding/gob"
	"path/filepath"
	"testing"

	ts "github.com/samuelfneumann/mlscenes/timestep"
)

// counter is a Serializable holding a single value
type counter struct {
	value int
}

func (c *counter) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(c.value)
	return buf.Bytes(), err
}

func (c *counter) GobDecode(b []byte) error {
	return gob.NewDecoder(bytes.NewReader(b)).Decode(&c.value)
}

func TestRunFilenames(t *testing.T) {
	next := RunFilenames("dir", "run", ".bin")
	for _, want := range []string{
		filepath.Join("dir", "run-000001.bin"),
		filepath.Join("dir", "run-000002.bin"),
	} {
		if have := next(); have != want {
			t.Errorf("want %q, have %q", want, have)
		}
	}
}

func TestNStep(t *testing.T) {
	dir := t.TempDir()
	object := &counter{}
	n, err := NewNStep(3, object, RunFilenames(dir, "ckpt", ".bin"))
	if err != nil {
		t.Fatal(err)
	}

	// Two episodes: numbers 0..4 and 0..3 hold 7 environment steps
	for _, number := range []int{0, 1, 2, 3, 4, 0, 1, 2, 3} {
		object.value = number
		if err := n.Checkpoint(ts.TimeStep{Number: number}); err != nil {
			t.Fatal(err)
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, "ckpt-*.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("want 2 checkpoints, have %v", files)
	}

	// The second checkpoint is taken on the sixth step: number 2 of
	// the second episode
	loaded := &counter{}
	if err := Load(filepath.Join(dir, "ckpt-000002.bin"), loaded); err != nil {
		t.Fatal(err)
	}
	if loaded.value != 2 {
		t.Errorf("want 2, have %d", loaded.value)
	}
}

func TestNStepInterval(t *testing.T) {
	if _, err := NewNStep(0, &counter{}, nil); err == nil {
		t.Error("expected error for zero interval")
	}
}
