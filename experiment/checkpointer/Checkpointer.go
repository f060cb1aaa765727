// Package checkpointer implements Checkpointers, which save the state
// of agents while an experiment runs
package checkpointer

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	ts "github.com/samuelfneumann/mlscenes/timestep"
)

// Serializable is an object that can be saved/serialized
type Serializable interface {
	gob.GobEncoder
	gob.GobDecoder
}

// Checkpointer checkpoints/saves serializable objects based on
// timestep.TimeSteps
type Checkpointer interface {
	Checkpoint(ts.TimeStep) error
}

// Save gob-encodes object to the file at path, creating parent
// directories as needed
func Save(path string, object Serializable) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}

	if err := gob.NewEncoder(file).Encode(object); err != nil {
		file.Close()
		return fmt.Errorf("save: could not encode %s: %w", path, err)
	}
	return file.Close()
}

// Load decodes the file at path, written by Save, into object
func Load(path string, object Serializable) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("load: %w", err)
	}
	defer file.Close()

	if err := gob.NewDecoder(file).Decode(object); err != nil {
		return fmt.Errorf("load: could not decode %s: %w", path, err)
	}
	return nil
}
