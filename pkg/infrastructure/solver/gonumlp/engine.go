// Package gonumlp adapts gonum's simplex implementation to the model
// Engine contract. Linear relaxations are presolved and solved with a
// two-phase lp.Simplex started from explicit bases; binary
// variables are resolved by a depth-first branch and bound that branches
// on the most fractional indicator.
package gonumlp

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/vsinha/blendplan/pkg/domain/linear"
	"github.com/vsinha/blendplan/pkg/optimization/model"
)

const (
	DefaultTolerance            = 1e-10
	DefaultIntegralityTolerance = 1e-6
)

// Option configures an Engine
type Option func(*Engine)

// WithTolerance sets the simplex tolerance
func WithTolerance(tol float64) Option {
	return func(e *Engine) {
		e.tol = tol
	}
}

// WithIntegralityTolerance sets how far a binary may be from 0 or 1 and
// still count as integral.
func WithIntegralityTolerance(tol float64) Option {
	return func(e *Engine) {
		e.intTol = tol
	}
}

// WithMaxNodes bounds the branch and bound search. Reaching the bound
// ends the solve with StatusTimeLimit. Zero means unbounded.
func WithMaxNodes(n int) Option {
	return func(e *Engine) {
		e.maxNodes = n
	}
}

// Engine solves a recorded linear.Program. An Engine solves once.
type Engine struct {
	program  *linear.Program
	tol      float64
	intTol   float64
	maxNodes int

	solved    bool
	status    model.Status
	values    []float64
	objective float64
	nodes     int
}

// Verify interface compliance
var _ model.Engine = (*Engine)(nil)

// New creates an engine
func New(opts ...Option) *Engine {
	e := &Engine{
		program: linear.NewProgram("gonumlp"),
		tol:     DefaultTolerance,
		intTol:  DefaultIntegralityTolerance,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddVariable records a variable. Lower bounds must be finite.
func (e *Engine) AddVariable(v linear.Variable) error {
	if math.IsInf(v.Lower, 0) || math.IsNaN(v.Lower) {
		return fmt.Errorf("variable %s: finite lower bound required, got %v", v.Name, v.Lower)
	}
	if v.Kind == linear.Binary && (v.Lower != 0 || v.Upper != 1) {
		return fmt.Errorf("variable %s: binary variables must have bounds [0, 1]", v.Name)
	}
	return e.program.AddVariable(v)
}

// AddConstraint records a constraint
func (e *Engine) AddConstraint(name string, c linear.Constraint) error {
	return e.program.AddConstraint(name, c)
}

// SetObjective records the objective
func (e *Engine) SetObjective(expr linear.Expr, sense linear.ObjectiveSense) error {
	return e.program.SetObjective(expr, sense)
}

// Nodes returns the number of relaxations solved by the last Solve
func (e *Engine) Nodes() int {
	return e.nodes
}

// Solve runs branch and bound until the search is exhausted, the context
// deadline passes or the node limit is reached.
func (e *Engine) Solve(ctx context.Context) (model.Status, error) {
	if e.solved {
		return e.status, fmt.Errorf("engine has already solved its program")
	}
	if !e.program.HasObjective {
		return model.StatusError, fmt.Errorf("no objective set")
	}
	e.solved = true

	status, err := e.branchAndBound(ctx)
	e.status = status
	if err != nil {
		return model.StatusError, err
	}
	return status, nil
}

type node struct {
	fixed map[int]float64
}

func (n node) with(j int, v float64) node {
	fixed := make(map[int]float64, len(n.fixed)+1)
	for k, x := range n.fixed {
		fixed[k] = x
	}
	fixed[j] = v
	return node{fixed: fixed}
}

func (e *Engine) branchAndBound(ctx context.Context) (model.Status, error) {
	sign := 1.0
	if e.program.Sense == linear.Minimize {
		sign = -1
	}

	var (
		found    bool
		best     = math.Inf(-1)
		bestX    []float64
		stack    = []node{{fixed: map[int]float64{}}}
		limitHit bool
	)

	for len(stack) > 0 {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				limitHit = true
				break
			}
			return model.StatusError, err
		}
		if e.maxNodes > 0 && e.nodes >= e.maxNodes {
			limitHit = true
			break
		}

		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		root := e.nodes == 0
		e.nodes++

		r, err := e.relax(n.fixed, sign)
		if err != nil {
			return model.StatusError, err
		}
		switch r.status {
		case model.StatusInfeasible:
			if root {
				return model.StatusInfeasible, nil
			}
			continue
		case model.StatusUnbounded:
			return model.StatusUnbounded, nil
		}

		// r.objective is in maximisation terms
		if found && r.objective <= best+e.tol*math.Max(1, math.Abs(best)) {
			continue
		}

		j := e.mostFractional(r.x)
		if j < 0 {
			found = true
			best = r.objective
			bestX = e.round(r.x)
			continue
		}

		down, up := n.with(j, 0), n.with(j, 1)
		if r.x[j] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	if limitHit {
		return model.StatusTimeLimit, nil
	}
	if !found {
		return model.StatusInfeasible, nil
	}

	e.values = bestX
	e.objective = e.program.Objective.Eval(e.valueOf)
	return model.StatusOptimal, nil
}

func (e *Engine) valueOf(v linear.Var) float64 {
	return e.values[int(v)-1]
}

// mostFractional returns the index of the binary furthest from integral,
// or -1 when all binaries are integral.
func (e *Engine) mostFractional(x []float64) int {
	best, bestDist := -1, e.intTol
	for j, v := range e.program.Variables {
		if v.Kind != linear.Binary {
			continue
		}
		if dist := math.Abs(x[j] - math.Round(x[j])); dist > bestDist {
			best, bestDist = j, dist
		}
	}
	return best
}

func (e *Engine) round(x []float64) []float64 {
	out := make([]float64, len(x))
	copy(out, x)
	for j, v := range e.program.Variables {
		if v.Kind == linear.Binary {
			out[j] = math.Round(out[j])
		}
	}
	return out
}

// Value returns the optimal value of v
func (e *Engine) Value(v linear.Var) (float64, error) {
	if e.status != model.StatusOptimal {
		return 0, &model.EngineStatusError{Status: e.status}
	}
	if !v.Valid() || int(v) > len(e.values) {
		return 0, fmt.Errorf("unknown variable handle %d", int(v))
	}
	return e.valueOf(v), nil
}

// ObjectiveValue returns the optimal objective value
func (e *Engine) ObjectiveValue() (float64, error) {
	if e.status != model.StatusOptimal {
		return 0, &model.EngineStatusError{Status: e.status}
	}
	return e.objective, nil
}
