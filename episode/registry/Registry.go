// Package registry keeps track of agent instances and hands control
// from one instance to a freshly created successor
package registry

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/samuelfneumann/mlscenes/episode"
)

// ErrExhausted is returned when the instance limit has been reached
var ErrExhausted = fmt.Errorf("registry: instance limit reached: %w",
	episode.ErrNoSuccessor)

// Instance is an agent instance known to a Registry
type Instance struct {
	ID         string
	Generation int
	Active     bool
}

// Registry creates agent instances. Exactly one instance is active at
// a time. Requesting a successor retires the active instance and
// activates a new one.
type Registry struct {
	instances []Instance
	limit     int
}

// New returns a new Registry with a single active instance. A limit of
// 0 places no bound on the number of instances created.
func New(limit int) (*Registry, error) {
	if limit < 0 {
		return nil, fmt.Errorf("new: negative instance limit %d", limit)
	}

	r := &Registry{limit: limit}
	if _, err := r.spawn(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	return r, nil
}

// Active returns the ID of the active instance
func (r *Registry) Active() string {
	return r.instances[len(r.instances)-1].ID
}

// RequestSuccessorAgent retires the active instance and activates a
// new one, returning the new instance's ID
func (r *Registry) RequestSuccessorAgent() (string, error) {
	if r.limit > 0 && len(r.instances) >= r.limit {
		return "", ErrExhausted
	}

	r.instances[len(r.instances)-1].Active = false
	id, err := r.spawn()
	if err != nil {
		return "", fmt.Errorf("requestSuccessorAgent: %w", err)
	}
	return id, nil
}

// Instances returns all instances created so far, oldest first
func (r *Registry) Instances() []Instance {
	out := make([]Instance, len(r.instances))
	copy(out, r.instances)
	return out
}

// Retired returns the number of retired instances
func (r *Registry) Retired() int {
	return len(r.instances) - 1
}

func (r *Registry) spawn() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}

	r.instances = append(r.instances, Instance{
		ID:         id.String(),
		Generation: len(r.instances),
		Active:     true,
	})
	return id.String(), nil
}
