package qlearning

import "fmt"

// Config represents a configuration for the Tabular agent
type Config struct {
	Epsilon      float64 // epsilon for behaviour policy
	LearningRate float64

	// CellSize is the width of the grid cells that observations are
	// quantised into before lookup in the table
	CellSize float64
}

// DefaultConfig returns a Config that works on both scenarios
func DefaultConfig() Config {
	return Config{Epsilon: 0.1, LearningRate: 0.1, CellSize: 1}
}

// Validate ensures that the Config is valid
func (c Config) Validate() error {
	if c.Epsilon < 0 || c.Epsilon > 1 {
		return fmt.Errorf("epsilon must be in [0, 1], have %v", c.Epsilon)
	}
	if c.LearningRate <= 0 {
		return fmt.Errorf("learning rate must be positive, have %v",
			c.LearningRate)
	}
	if c.CellSize <= 0 {
		return fmt.Errorf("cell size must be positive, have %v", c.CellSize)
	}
	return nil
}
