package model

import (
	"context"
	"fmt"

	"github.com/vsinha/blendplan/pkg/domain/linear"
)

// Status is the terminal state reported by an engine
type Status int

const (
	StatusNotSolved Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusTimeLimit
	StatusError
)

// String method for Status enum
func (s Status) String() string {
	switch s {
	case StatusNotSolved:
		return "not_solved"
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusTimeLimit:
		return "time_limit"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Engine is the numerical solver a Model delegates to. Variable handles
// are allocated by the Model; an engine maps them to its own
// representation. Value and ObjectiveValue are only meaningful after
// Solve returned StatusOptimal.
type Engine interface {
	AddVariable(v linear.Variable) error
	AddConstraint(name string, c linear.Constraint) error
	SetObjective(e linear.Expr, sense linear.ObjectiveSense) error
	Solve(ctx context.Context) (Status, error)
	Value(v linear.Var) (float64, error)
	ObjectiveValue() (float64, error)
}

// EngineStatusError is returned when solution values are requested from
// a model whose solve did not reach the optimal status.
type EngineStatusError struct {
	Status Status
}

func (e *EngineStatusError) Error() string {
	return fmt.Sprintf("solution unavailable: solver status is %s", e.Status)
}
