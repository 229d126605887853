package gonumlp

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/vsinha/blendplan/pkg/domain/linear"
	"github.com/vsinha/blendplan/pkg/optimization/model"
)

// relaxation is the outcome of one LP solve. x is indexed by variable
// position and objective is expressed as a maximisation.
type relaxation struct {
	status    model.Status
	x         []float64
	objective float64
}

// row is a constraint over at least two free variables, with the fixed
// variables moved to the right-hand side
type row struct {
	coefs map[int]float64
	sense linear.Sense
	rhs   float64
}

// bounds tracks the interval of every variable of one relaxation.
// Variables whose interval collapses are fixed and drop out of the rows.
type bounds struct {
	lo, hi []float64
	free   []bool
}

func newBounds(vars []linear.Variable, fixed map[int]float64) *bounds {
	b := &bounds{
		lo:   make([]float64, len(vars)),
		hi:   make([]float64, len(vars)),
		free: make([]bool, len(vars)),
	}
	for j, v := range vars {
		if val, ok := fixed[j]; ok {
			b.lo[j], b.hi[j] = val, val
			continue
		}
		b.lo[j], b.hi[j] = v.Lower, v.Upper
		b.free[j] = true
	}
	return b
}

// tighten applies coef*x_j sense rhs. It reports false when the interval
// of x_j becomes empty.
func (b *bounds) tighten(j int, coef float64, sense linear.Sense, rhs float64) bool {
	v := rhs / coef
	if coef < 0 {
		switch sense {
		case linear.LessEq:
			sense = linear.GreaterEq
		case linear.GreaterEq:
			sense = linear.LessEq
		}
	}
	switch sense {
	case linear.LessEq:
		b.hi[j] = math.Min(b.hi[j], v)
	case linear.GreaterEq:
		b.lo[j] = math.Max(b.lo[j], v)
	default:
		b.lo[j] = math.Max(b.lo[j], v)
		b.hi[j] = math.Min(b.hi[j], v)
	}

	width := b.hi[j] - b.lo[j]
	scale := math.Max(1, math.Abs(b.lo[j]))
	if width < -feasibilityTolerance*scale {
		return false
	}
	if width <= feasibilityTolerance*scale {
		b.hi[j] = b.lo[j]
		b.free[j] = false
	}
	return true
}

// feasibilityTolerance is the relative slack accepted on bounds and on
// the phase 1 objective
const feasibilityTolerance = 1e-9

// relax solves the LP relaxation with the binaries in fixed pinned to
// their values. Single-variable rows become bounds, rows sharing the same
// coefficients are merged, and the remaining program is shifted by the
// lower bounds and handed to a two-phase simplex.
func (e *Engine) relax(fixed map[int]float64, sign float64) (relaxation, error) {
	p := e.program
	n := len(p.Variables)
	bnd := newBounds(p.Variables, fixed)

	rows, ok, err := e.presolve(bnd)
	if err != nil {
		return relaxation{}, err
	}
	if !ok {
		return relaxation{status: model.StatusInfeasible}, nil
	}

	// maximisation weights of the free variables
	weight := make([]float64, n)
	for _, t := range p.Objective.Terms {
		weight[int(t.Var)-1] += sign * t.Coef
	}

	x := make([]float64, n)
	copy(x, bnd.lo)

	inRow := make([]bool, n)
	for _, r := range rows {
		for j := range r.coefs {
			inRow[j] = true
		}
	}
	// free variables outside every row sit at whichever bound the
	// objective prefers
	var cols []int
	for j := range n {
		if !bnd.free[j] {
			continue
		}
		if inRow[j] {
			cols = append(cols, j)
			continue
		}
		if weight[j] > 0 {
			if math.IsInf(bnd.hi[j], 1) {
				return relaxation{status: model.StatusUnbounded}, nil
			}
			x[j] = bnd.hi[j]
		}
	}

	if len(cols) > 0 {
		form := newStandardForm(rows, cols, bnd, weight)
		y, err := form.solve(e.tol)
		switch {
		case errors.Is(err, lp.ErrInfeasible):
			return relaxation{status: model.StatusInfeasible}, nil
		case errors.Is(err, lp.ErrUnbounded):
			return relaxation{status: model.StatusUnbounded}, nil
		case err != nil:
			return relaxation{}, fmt.Errorf("simplex: %w", err)
		}
		for i, j := range cols {
			x[j] = bnd.lo[j] + y[i]
		}
	}

	return relaxation{
		status: model.StatusOptimal,
		x:      x,
		objective: sign * p.Objective.Eval(func(v linear.Var) float64 {
			return x[int(v)-1]
		}),
	}, nil
}

// presolve turns single-variable constraints into bounds until no more
// variables get fixed, then returns the remaining rows with duplicates
// merged. ok is false when the constraints are infeasible on their face.
func (e *Engine) presolve(bnd *bounds) ([]row, bool, error) {
	cons := e.program.Constraints
	consumed := make([]bool, len(cons))

	for changed := true; changed; {
		changed = false
		for i, c := range cons {
			if consumed[i] {
				continue
			}
			r, err := reduce(c, bnd)
			if err != nil {
				return nil, false, err
			}
			switch len(r.coefs) {
			case 0:
				consumed[i] = true
				if !constantHolds(r) {
					return nil, false, nil
				}
			case 1:
				consumed[i] = true
				for j, coef := range r.coefs {
					if !bnd.tighten(j, coef, r.sense, r.rhs) {
						return nil, false, nil
					}
					if !bnd.free[j] {
						changed = true
					}
				}
			}
		}
	}

	var rows []row
	for i, c := range cons {
		if consumed[i] {
			continue
		}
		r, err := reduce(c, bnd)
		if err != nil {
			return nil, false, err
		}
		switch len(r.coefs) {
		case 0:
			if !constantHolds(r) {
				return nil, false, nil
			}
		case 1:
			for j, coef := range r.coefs {
				if !bnd.tighten(j, coef, r.sense, r.rhs) {
					return nil, false, nil
				}
			}
		default:
			rows = append(rows, r)
		}
	}

	// a variable fixed by the last pass may still sit in earlier rows
	for i := range rows {
		for j, coef := range rows[i].coefs {
			if !bnd.free[j] {
				rows[i].rhs -= coef * bnd.lo[j]
				delete(rows[i].coefs, j)
			}
		}
	}
	kept := rows[:0]
	for _, r := range rows {
		if len(r.coefs) == 0 {
			if !constantHolds(r) {
				return nil, false, nil
			}
			continue
		}
		kept = append(kept, r)
	}
	return mergeRows(kept)
}

// reduce writes c over the free variables of bnd
func reduce(c linear.NamedConstraint, bnd *bounds) (row, error) {
	switch c.Sense {
	case linear.LessEq, linear.GreaterEq, linear.Equal:
	default:
		return row{}, fmt.Errorf("constraint %s: unknown sense %d", c.Name, c.Sense)
	}
	expr := c.Expr.Simplify()
	r := row{coefs: make(map[int]float64, len(expr.Terms)), sense: c.Sense, rhs: c.RHS - expr.Constant}
	for _, t := range expr.Terms {
		j := int(t.Var) - 1
		if bnd.free[j] {
			r.coefs[j] += t.Coef
		} else {
			r.rhs -= t.Coef * bnd.lo[j]
		}
	}
	for j, coef := range r.coefs {
		if coef == 0 {
			delete(r.coefs, j)
		}
	}
	return r, nil
}

// constantHolds checks a row without variables: 0 sense rhs
func constantHolds(r row) bool {
	slack := feasibilityTolerance * math.Max(1, math.Abs(r.rhs))
	switch r.sense {
	case linear.LessEq:
		return r.rhs >= -slack
	case linear.GreaterEq:
		return r.rhs <= slack
	default:
		return math.Abs(r.rhs) <= slack
	}
}

// mergeRows folds rows with identical coefficients into one range. A
// range narrower than the feasibility tolerance becomes an equality at
// its midpoint, which keeps pairs like a >= b-eps, a <= b+eps from
// producing two nearly parallel rows.
func mergeRows(rows []row) ([]row, bool, error) {
	type interval struct {
		first  int
		lo, hi float64
	}
	groups := make(map[string]*interval, len(rows))
	var order []string
	for i, r := range rows {
		key := signature(r.coefs)
		g, ok := groups[key]
		if !ok {
			g = &interval{first: i, lo: math.Inf(-1), hi: math.Inf(1)}
			groups[key] = g
			order = append(order, key)
		}
		if r.sense != linear.GreaterEq {
			g.hi = math.Min(g.hi, r.rhs)
		}
		if r.sense != linear.LessEq {
			g.lo = math.Max(g.lo, r.rhs)
		}
	}

	merged := make([]row, 0, len(order))
	for _, key := range order {
		g := groups[key]
		coefs := rows[g.first].coefs
		if math.IsInf(g.lo, -1) {
			merged = append(merged, row{coefs: coefs, sense: linear.LessEq, rhs: g.hi})
			continue
		}
		if math.IsInf(g.hi, 1) {
			merged = append(merged, row{coefs: coefs, sense: linear.GreaterEq, rhs: g.lo})
			continue
		}
		tol := feasibilityTolerance * math.Max(1, math.Max(math.Abs(g.lo), math.Abs(g.hi)))
		switch width := g.hi - g.lo; {
		case width < -tol:
			return nil, false, nil
		case width <= tol:
			merged = append(merged, row{coefs: coefs, sense: linear.Equal, rhs: (g.lo + g.hi) / 2})
		default:
			merged = append(merged,
				row{coefs: coefs, sense: linear.GreaterEq, rhs: g.lo},
				row{coefs: coefs, sense: linear.LessEq, rhs: g.hi},
			)
		}
	}
	return merged, true, nil
}

func signature(coefs map[int]float64) string {
	keys := make([]int, 0, len(coefs))
	for j := range coefs {
		keys = append(keys, j)
	}
	sort.Ints(keys)
	var sb strings.Builder
	for _, j := range keys {
		sb.WriteString(strconv.Itoa(j))
		sb.WriteByte(':')
		sb.WriteString(strconv.FormatFloat(coefs[j], 'x', -1, 64))
		sb.WriteByte(';')
	}
	return sb.String()
}
