package linear

import (
	"fmt"
	"math"
)

// Kind is the domain of a variable
type Kind int

const (
	Continuous Kind = iota
	Binary
)

// String method for Kind enum
func (k Kind) String() string {
	switch k {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Variable describes a decision variable
type Variable struct {
	Var   Var
	Name  string
	Kind  Kind
	Lower float64
	Upper float64
}

// ObjectiveSense is the optimisation direction
type ObjectiveSense int

const (
	Maximize ObjectiveSense = iota
	Minimize
)

// String method for ObjectiveSense enum
func (s ObjectiveSense) String() string {
	if s == Minimize {
		return "minimize"
	}
	return "maximize"
}

// NamedConstraint pairs a constraint with its row name
type NamedConstraint struct {
	Name string
	Constraint
}

// Program records a linear model independently of any solver
type Program struct {
	Name         string
	Variables    []Variable
	Constraints  []NamedConstraint
	Objective    Expr
	Sense        ObjectiveSense
	HasObjective bool
}

// NewProgram creates an empty program
func NewProgram(name string) *Program {
	return &Program{Name: name}
}

// NextVar returns the handle the next created variable will get
func (p *Program) NextVar() Var {
	return Var(len(p.Variables) + 1)
}

// NewContinuous creates a continuous variable with lower bound lb and no
// upper bound.
func (p *Program) NewContinuous(name string, lb float64) Variable {
	v := Variable{Var: p.NextVar(), Name: name, Kind: Continuous, Lower: lb, Upper: math.Inf(1)}
	p.Variables = append(p.Variables, v)
	return v
}

// NewBinary creates a 0/1 variable
func (p *Program) NewBinary(name string) Variable {
	v := Variable{Var: p.NextVar(), Name: name, Kind: Binary, Lower: 0, Upper: 1}
	p.Variables = append(p.Variables, v)
	return v
}

// AddVariable records an externally allocated variable. Handles must be
// added in order.
func (p *Program) AddVariable(v Variable) error {
	if v.Var != p.NextVar() {
		return fmt.Errorf("variable %s has handle %d, expected %d", v.Name, int(v.Var), int(p.NextVar()))
	}
	if v.Lower > v.Upper {
		return fmt.Errorf("variable %s has lower bound %g above upper bound %g", v.Name, v.Lower, v.Upper)
	}
	p.Variables = append(p.Variables, v)
	return nil
}

// Variable returns the descriptor of v
func (p *Program) Variable(v Var) (Variable, bool) {
	if !v.Valid() || int(v) > len(p.Variables) {
		return Variable{}, false
	}
	return p.Variables[v-1], true
}

// VarName returns the name of v, or a generic name for unknown handles
func (p *Program) VarName(v Var) string {
	if d, ok := p.Variable(v); ok && d.Name != "" {
		return d.Name
	}
	return fmt.Sprintf("x%d", int(v))
}

func (p *Program) checkVars(e Expr) error {
	for _, t := range e.Terms {
		if _, ok := p.Variable(t.Var); !ok {
			return fmt.Errorf("unknown variable handle %d", int(t.Var))
		}
	}
	return nil
}

// AddConstraint records a constraint. An empty name is replaced by a
// generated row name.
func (p *Program) AddConstraint(name string, c Constraint) error {
	if err := p.checkVars(c.Expr); err != nil {
		return fmt.Errorf("constraint %s: %w", name, err)
	}
	if name == "" {
		name = fmt.Sprintf("c%d", len(p.Constraints)+1)
	}
	p.Constraints = append(p.Constraints, NamedConstraint{Name: name, Constraint: c})
	return nil
}

// SetObjective installs the objective function
func (p *Program) SetObjective(e Expr, sense ObjectiveSense) error {
	if err := p.checkVars(e); err != nil {
		return fmt.Errorf("objective: %w", err)
	}
	p.Objective = e.Simplify()
	p.Sense = sense
	p.HasObjective = true
	return nil
}

// BinaryCount returns the number of binary variables
func (p *Program) BinaryCount() int {
	n := 0
	for _, v := range p.Variables {
		if v.Kind == Binary {
			n++
		}
	}
	return n
}
