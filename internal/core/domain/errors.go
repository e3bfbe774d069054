package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest             = errors.New("invalid request")
	ErrInsufficientSource         = errors.New("insufficient source quantity")
	ErrInsufficientTargetCapacity = errors.New("insufficient target capacity")
)

// PlanningError is returned by the planner. Kind is one of the sentinel
// errors above and is what errors.Is matches against.
type PlanningError struct {
	Kind      error
	Detail    string
	Requested int
	Available int
	Unplaced  int
}

func (e *PlanningError) Error() string {
	if e.Detail == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

func (e *PlanningError) Unwrap() error { return e.Kind }
