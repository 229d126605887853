package linear

import "fmt"

// Sense is the relation of a constraint
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

// String method for Sense enum
func (s Sense) String() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	case Equal:
		return "=="
	default:
		return "?"
	}
}

// Constraint is Expr Sense RHS. Expr carries no constant; constructors
// move it to the right-hand side.
type Constraint struct {
	Expr  Expr
	Sense Sense
	RHS   float64
}

func newConstraint(lhs Expr, sense Sense, rhs Expr) Constraint {
	diff := lhs.Sub(rhs).Simplify()
	rhsValue := -diff.Constant
	diff.Constant = 0
	return Constraint{Expr: diff, Sense: sense, RHS: rhsValue}
}

// NewLessEq returns lhs <= rhs
func NewLessEq(lhs, rhs Expr) Constraint {
	return newConstraint(lhs, LessEq, rhs)
}

// NewGreaterEq returns lhs >= rhs
func NewGreaterEq(lhs, rhs Expr) Constraint {
	return newConstraint(lhs, GreaterEq, rhs)
}

// NewEqual returns lhs == rhs
func NewEqual(lhs, rhs Expr) Constraint {
	return newConstraint(lhs, Equal, rhs)
}

// Violation returns how far the constraint is from being satisfied under
// the given values; zero means satisfied.
func (c Constraint) Violation(value func(Var) float64) float64 {
	lhs := c.Expr.Eval(value)
	switch c.Sense {
	case LessEq:
		return max(0, lhs-c.RHS)
	case GreaterEq:
		return max(0, c.RHS-lhs)
	default:
		if lhs > c.RHS {
			return lhs - c.RHS
		}
		return c.RHS - lhs
	}
}

// Satisfied reports whether the constraint holds within tol
func (c Constraint) Satisfied(value func(Var) float64, tol float64) bool {
	return c.Violation(value) <= tol
}

// Format renders c using name for variables
func (c Constraint) Format(name func(Var) string) string {
	return fmt.Sprintf("%s %s %g", c.Expr.Format(name), c.Sense, c.RHS)
}

// String renders c with generic variable names
func (c Constraint) String() string {
	return fmt.Sprintf("%s %s %g", c.Expr, c.Sense, c.RHS)
}
