// Package model assembles a blending task into a mixed-integer linear
// program: it owns the decision variables, registers the constraints of
// the selected rules, installs the profit objective and delegates solving
// to an Engine.
package model

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vsinha/blendplan/pkg/domain/constraints"
	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/domain/linear"
)

// LinkageRule is the rule name under which the big-M indicator linkage is
// counted in Stats.
const LinkageRule = "big_m_linkage"

var (
	// ErrModelSolved is returned by any mutating call after Solve
	ErrModelSolved = errors.New("model has already been solved")
	// ErrNoObjective is returned by Solve when no objective was set
	ErrNoObjective = errors.New("model has no objective")
)

// State is the lifecycle position of a Model
type State int

const (
	StateBuilt State = iota
	StateConstrained
	StateObjectiveSet
	StateSolved
	StateFailed
)

// String method for State enum
func (s State) String() string {
	switch s {
	case StateBuilt:
		return "built"
	case StateConstrained:
		return "constrained"
	case StateObjectiveSet:
		return "objective_set"
	case StateSolved:
		return "solved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transitions are possible
func (s State) Terminal() bool {
	return s == StateSolved || s == StateFailed
}

// RuleCount is the number of constraints one rule contributed
type RuleCount struct {
	Rule        string
	Constraints int
}

// Stats summarises the size of a model
type Stats struct {
	Variables   int
	Binaries    int
	Constraints int
	Rules       []RuleCount
}

// Model is the assembler for one task. It is not safe for concurrent use
// and cannot be reused after Solve.
type Model struct {
	task     *entities.Task
	engine   Engine
	program  *linear.Program
	vars     *entities.PlanTable[linear.Var]
	rules    []RuleCount
	ruleIdx  map[string]int
	state    State
	status   Status
	solution *Solution
}

// Build creates the decision variables of task in engine together with
// the linkage bigM*is_refined(m,p) >= refine(m,p) for every pair.
func Build(task *entities.Task, engine Engine) (*Model, error) {
	if task == nil {
		return nil, fmt.Errorf("task cannot be nil")
	}
	if engine == nil {
		return nil, fmt.Errorf("engine cannot be nil")
	}

	m := &Model{
		task:    task,
		engine:  engine,
		program: linear.NewProgram("blendplan"),
		vars:    entities.NewPlanTable[linear.Var](task),
		ruleIdx: make(map[string]int),
		state:   StateBuilt,
	}

	materials := task.Materials()
	horizon := task.Horizon()

	for _, p := range horizon {
		for _, mat := range materials {
			for _, f := range entities.Families() {
				name := fmt.Sprintf("%s_%s_%s", f, p, mat.Name)
				var v linear.Variable
				if f == entities.IsRefinedFamily {
					v = m.program.NewBinary(name)
				} else {
					v = m.program.NewContinuous(name, 0)
				}
				if err := engine.AddVariable(v); err != nil {
					return nil, fmt.Errorf("failed to create variable %s: %w", name, err)
				}
				m.vars.Set(f, mat, p, v.Var)
			}
		}
	}

	bigM := task.Params().BigM
	linkage := make([]linear.Constraint, 0, len(horizon)*len(materials))
	for _, p := range horizon {
		for _, mat := range materials {
			linkage = append(linkage, linear.NewGreaterEq(
				m.vars.IsRefined(mat, p).Times(bigM),
				m.vars.Refine(mat, p).Expr(),
			))
		}
	}
	if err := m.register(LinkageRule, linkage); err != nil {
		return nil, err
	}

	return m, nil
}

// Task returns the task the model was built for
func (m *Model) Task() *entities.Task {
	return m.task
}

// Variables returns the symbolic plan
func (m *Model) Variables() entities.Plan[linear.Var] {
	return m.vars
}

// Program returns the solver-independent record of the model
func (m *Model) Program() *linear.Program {
	return m.program
}

// State returns the lifecycle state
func (m *Model) State() State {
	return m.state
}

// Status returns the engine status of the last Solve
func (m *Model) Status() Status {
	return m.status
}

// Stats returns variable and constraint counts
func (m *Model) Stats() Stats {
	rules := make([]RuleCount, len(m.rules))
	copy(rules, m.rules)
	return Stats{
		Variables:   len(m.program.Variables),
		Binaries:    m.program.BinaryCount(),
		Constraints: len(m.program.Constraints),
		Rules:       rules,
	}
}

// AddConstraint registers the constraints produced by g
func (m *Model) AddConstraint(g constraints.Generator) error {
	if m.state.Terminal() {
		return ErrModelSolved
	}
	cs, err := g.Constraints(m.task, m.vars)
	if err != nil {
		return fmt.Errorf("constraint rule %s: %w", g.Name(), err)
	}
	if err := m.register(g.Name(), cs); err != nil {
		return err
	}
	if m.state == StateBuilt {
		m.state = StateConstrained
	}
	return nil
}

// AddConstraints evaluates the generators concurrently and registers
// their constraints in argument order, so the result is identical to
// calling AddConstraint for each generator in turn.
func (m *Model) AddConstraints(ctx context.Context, gens ...constraints.Generator) error {
	if m.state.Terminal() {
		return ErrModelSolved
	}

	results := make([][]linear.Constraint, len(gens))
	g, ctx := errgroup.WithContext(ctx)
	for i, gen := range gens {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cs, err := gen.Constraints(m.task, m.vars)
			if err != nil {
				return fmt.Errorf("constraint rule %s: %w", gen.Name(), err)
			}
			results[i] = cs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for i, gen := range gens {
		if err := m.register(gen.Name(), results[i]); err != nil {
			return err
		}
	}
	if len(gens) > 0 && m.state == StateBuilt {
		m.state = StateConstrained
	}
	return nil
}

func (m *Model) register(rule string, cs []linear.Constraint) error {
	idx, ok := m.ruleIdx[rule]
	if !ok {
		idx = len(m.rules)
		m.ruleIdx[rule] = idx
		m.rules = append(m.rules, RuleCount{Rule: rule})
	}
	for _, c := range cs {
		name := fmt.Sprintf("%s_%d", rule, m.rules[idx].Constraints+1)
		if err := m.program.AddConstraint(name, c); err != nil {
			return err
		}
		if err := m.engine.AddConstraint(name, c); err != nil {
			return fmt.Errorf("engine rejected constraint %s: %w", name, err)
		}
		m.rules[idx].Constraints++
	}
	return nil
}

// SetObjective installs the expression produced by b as a maximization
// objective, replacing any previous one.
func (m *Model) SetObjective(b ObjectiveBuilder) error {
	if m.state.Terminal() {
		return ErrModelSolved
	}
	expr, err := b.Objective(m.task, m.vars)
	if err != nil {
		return fmt.Errorf("failed to build objective: %w", err)
	}
	if err := m.program.SetObjective(expr, linear.Maximize); err != nil {
		return err
	}
	if err := m.engine.SetObjective(expr, linear.Maximize); err != nil {
		return fmt.Errorf("engine rejected objective: %w", err)
	}
	m.state = StateObjectiveSet
	return nil
}

// Solve runs the engine once. The returned error is non-nil only when the
// engine itself failed; infeasible, unbounded and time-limited runs are
// reported through the status. Solution values are available only after
// an optimal solve.
func (m *Model) Solve(ctx context.Context) (Status, error) {
	if m.state.Terminal() {
		return m.status, ErrModelSolved
	}
	if !m.program.HasObjective {
		return StatusNotSolved, ErrNoObjective
	}

	status, err := m.engine.Solve(ctx)
	if err != nil {
		m.fail(StatusError)
		return StatusError, fmt.Errorf("engine failed: %w", err)
	}
	if status != StatusOptimal {
		m.fail(status)
		return status, nil
	}

	solution, err := m.readBack()
	if err != nil {
		m.fail(StatusError)
		return StatusError, err
	}

	m.solution = solution
	m.status = StatusOptimal
	m.state = StateSolved
	return StatusOptimal, nil
}

func (m *Model) fail(status Status) {
	m.status = status
	m.state = StateFailed
}

func (m *Model) readBack() (*Solution, error) {
	values, err := entities.MapPlan(m.vars, func(f entities.Family, name entities.MaterialName, p entities.Period, v linear.Var) (float64, error) {
		x, err := m.engine.Value(v)
		if err != nil {
			return 0, fmt.Errorf("failed to read %s of %s in %s: %w", f, name, p, err)
		}
		return x, nil
	})
	if err != nil {
		return nil, err
	}
	objective, err := m.engine.ObjectiveValue()
	if err != nil {
		return nil, fmt.Errorf("failed to read objective value: %w", err)
	}
	return &Solution{PlanTable: values, Objective: objective}, nil
}

// Solution returns the numeric plan of an optimal solve
func (m *Model) Solution() (*Solution, error) {
	if m.state != StateSolved {
		return nil, &EngineStatusError{Status: m.status}
	}
	return m.solution, nil
}

// RuleNames returns the rules registered so far, excluding the linkage
func (m *Model) RuleNames() []string {
	names := make([]string, 0, len(m.rules))
	for _, r := range m.rules {
		if r.Rule != LinkageRule {
			names = append(names, r.Rule)
		}
	}
	return names
}
