// Package linear provides the solver-independent building blocks of a
// linear program: variable handles, linear expressions, constraints and a
// Program that records a whole model.
package linear

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Var is a handle to a decision variable. Handles start at 1; the zero
// value is not a variable.
type Var int

// Valid reports whether v refers to a created variable
func (v Var) Valid() bool {
	return v > 0
}

// Times returns the expression coef*v
func (v Var) Times(coef float64) Expr {
	return Expr{Terms: []Term{{Var: v, Coef: coef}}}
}

// Expr returns v as a single-term expression
func (v Var) Expr() Expr {
	return v.Times(1)
}

// Term is coef*var
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression sum(coef_i*var_i) + Constant
type Expr struct {
	Terms    []Term
	Constant float64
}

// Constant returns an expression without variables
func Constant(c float64) Expr {
	return Expr{Constant: c}
}

// Sum returns the sum of vars with unit coefficients
func Sum(vars ...Var) Expr {
	e := Expr{Terms: make([]Term, 0, len(vars))}
	for _, v := range vars {
		e.Terms = append(e.Terms, Term{Var: v, Coef: 1})
	}
	return e
}

// WeightedSum returns sum(weights[i]*vars[i])
func WeightedSum(vars []Var, weights []float64) Expr {
	if len(vars) != len(weights) {
		panic(fmt.Sprintf("linear: %d vars but %d weights", len(vars), len(weights)))
	}
	e := Expr{Terms: make([]Term, 0, len(vars))}
	for i, v := range vars {
		e.Terms = append(e.Terms, Term{Var: v, Coef: weights[i]})
	}
	return e
}

// Add returns e + other
func (e Expr) Add(other Expr) Expr {
	out := Expr{
		Terms:    make([]Term, 0, len(e.Terms)+len(other.Terms)),
		Constant: e.Constant + other.Constant,
	}
	out.Terms = append(out.Terms, e.Terms...)
	out.Terms = append(out.Terms, other.Terms...)
	return out
}

// Sub returns e - other
func (e Expr) Sub(other Expr) Expr {
	return e.Add(other.Scale(-1))
}

// Scale returns k*e
func (e Expr) Scale(k float64) Expr {
	out := Expr{Terms: make([]Term, len(e.Terms)), Constant: e.Constant * k}
	for i, t := range e.Terms {
		out.Terms[i] = Term{Var: t.Var, Coef: t.Coef * k}
	}
	return out
}

// Plus returns e + c
func (e Expr) Plus(c float64) Expr {
	return e.Add(Constant(c))
}

// Simplify merges repeated variables, drops zero coefficients and orders
// terms by variable.
func (e Expr) Simplify() Expr {
	coefs := make(map[Var]float64, len(e.Terms))
	for _, t := range e.Terms {
		coefs[t.Var] += t.Coef
	}
	out := Expr{Terms: make([]Term, 0, len(coefs)), Constant: e.Constant}
	for v, c := range coefs {
		if c != 0 {
			out.Terms = append(out.Terms, Term{Var: v, Coef: c})
		}
	}
	sort.Slice(out.Terms, func(i, j int) bool { return out.Terms[i].Var < out.Terms[j].Var })
	return out
}

// Coef returns the merged coefficient of v in e
func (e Expr) Coef(v Var) float64 {
	total := 0.0
	for _, t := range e.Terms {
		if t.Var == v {
			total += t.Coef
		}
	}
	return total
}

// Vars returns the distinct variables of e in ascending order
func (e Expr) Vars() []Var {
	s := e.Simplify()
	vars := make([]Var, len(s.Terms))
	for i, t := range s.Terms {
		vars[i] = t.Var
	}
	return vars
}

// Eval evaluates e with the given variable values
func (e Expr) Eval(value func(Var) float64) float64 {
	total := e.Constant
	for _, t := range e.Terms {
		total += t.Coef * value(t.Var)
	}
	return total
}

// Format renders e using name for variables
func (e Expr) Format(name func(Var) string) string {
	s := e.Simplify()
	var b strings.Builder
	for i, t := range s.Terms {
		switch {
		case i == 0 && t.Coef < 0:
			b.WriteString("-")
		case i > 0 && t.Coef < 0:
			b.WriteString(" - ")
		case i > 0:
			b.WriteString(" + ")
		}
		if c := math.Abs(t.Coef); c != 1 {
			fmt.Fprintf(&b, "%g ", c)
		}
		b.WriteString(name(t.Var))
	}
	if s.Constant != 0 || len(s.Terms) == 0 {
		if len(s.Terms) == 0 {
			fmt.Fprintf(&b, "%g", s.Constant)
		} else if s.Constant < 0 {
			fmt.Fprintf(&b, " - %g", -s.Constant)
		} else {
			fmt.Fprintf(&b, " + %g", s.Constant)
		}
	}
	return b.String()
}

// String renders e with generic variable names
func (e Expr) String() string {
	return e.Format(func(v Var) string { return fmt.Sprintf("x%d", int(v)) })
}
