package qlearning

import (
	"bytes"
	"encoding/gob"
	"fmt"
)

// table is the serialized form of a Tabular agent
type table struct {
	Config  Config
	Actions int
	Values  map[string][]float64
}

// GobEncode implements the gob.GobEncoder interface
func (q *Tabular) GobEncode() ([]byte, error) {
	var buf bytes.Buffer
	err := gob.NewEncoder(&buf).Encode(table{
		Config:  q.config,
		Actions: q.actions,
		Values:  q.values,
	})
	if err != nil {
		return nil, fmt.Errorf("gobEncode: %w", err)
	}
	return buf.Bytes(), nil
}

// GobDecode implements the gob.GobDecoder interface. The decoded
// table replaces the agent's values and configuration, and must have
// the same number of actions as the agent.
func (q *Tabular) GobDecode(in []byte) error {
	var t table
	if err := gob.NewDecoder(bytes.NewReader(in)).Decode(&t); err != nil {
		return fmt.Errorf("gobDecode: %w", err)
	}
	if q.actions != 0 && t.Actions != q.actions {
		return fmt.Errorf("gobDecode: table has %d actions, agent has %d",
			t.Actions, q.actions)
	}
	if err := t.Config.Validate(); err != nil {
		return fmt.Errorf("gobDecode: %w", err)
	}

	q.config = t.Config
	q.actions = t.Actions
	q.values = t.Values
	if q.values == nil {
		q.values = make(map[string][]float64)
	}
	q.pending = false
	return nil
}
