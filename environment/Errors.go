package environment

import (
	"errors"
	"fmt"
)

// Error implements errors returned by environments. Op is the
// operation that failed.
type Error struct {
	Op  string
	Err error
}

// Error satisfies the error interface
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

// ErrMissingDependency is matched by every MissingDependencyError
var ErrMissingDependency = errors.New("missing dependency")

// ErrEpisodeOver is returned when an environment is stepped after its
// episode has ended and before it has been reset
var ErrEpisodeOver = errors.New("episode is over, reset the environment")

// ErrIllegalAction is returned for malformed action vectors. Action
// indices outside the action space are not illegal: they decode to
// Idle.
var ErrIllegalAction = errors.New("illegal action")

// MissingDependencyError reports an unset reference between scenario
// components, such as an agent without a goal zone. These errors are
// returned when a configuration is validated, never on first use.
type MissingDependencyError struct {
	Component  string
	Dependency string
}

func (m *MissingDependencyError) Error() string {
	return fmt.Sprintf("%s requires %s", m.Component, m.Dependency)
}

// Is reports whether target is ErrMissingDependency
func (m *MissingDependencyError) Is(target error) bool {
	return target == ErrMissingDependency
}
