package gonumlp

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/vsinha/blendplan/pkg/domain/linear"
)

// standardForm is the program
//
//	minimize c^T z  s.t.  A z = b, z >= 0, b >= 0
//
// over the shifted columns y = x - lo. Columns are ordered structural,
// slack, artificial. Rows are flipped so b is nonnegative; a row then
// gets a +1 slack (<=), a -1 slack and an artificial (>=), or only an
// artificial (==). basis holds the +1 slack or the artificial of each
// row, a feasible start for phase 1.
type standardForm struct {
	a          *mat.Dense
	b, c       []float64
	structural int
	slacks     int
	artificial int
	basis      []int
}

// newStandardForm builds the form for the variables in cols. weight is
// the maximisation objective per variable.
func newStandardForm(rows []row, cols []int, bnd *bounds, weight []float64) *standardForm {
	k := len(cols)
	colIdx := make(map[int]int, k)
	for i, j := range cols {
		colIdx[j] = i
	}

	// finite upper bounds are rows over the shifted column
	all := rows
	for _, j := range cols {
		if !math.IsInf(bnd.hi[j], 1) {
			all = append(all, row{coefs: map[int]float64{j: 1}, sense: linear.LessEq, rhs: bnd.hi[j]})
		}
	}

	m := len(all)
	senses := make([]linear.Sense, m)
	b := make([]float64, m)
	flip := make([]float64, m)
	slacks, artificial := 0, 0
	for i, r := range all {
		rhs := r.rhs
		for j, coef := range r.coefs {
			rhs -= coef * bnd.lo[j]
		}
		sense, sgn := r.sense, 1.0
		if rhs < 0 || (rhs == 0 && sense == linear.GreaterEq) {
			sgn, rhs = -1, -rhs
			switch sense {
			case linear.LessEq:
				sense = linear.GreaterEq
			case linear.GreaterEq:
				sense = linear.LessEq
			}
		}
		senses[i], b[i], flip[i] = sense, rhs, sgn
		if sense != linear.Equal {
			slacks++
		}
		if sense != linear.LessEq {
			artificial++
		}
	}

	f := &standardForm{
		a:          mat.NewDense(m, k+slacks+artificial, nil),
		b:          b,
		c:          make([]float64, k+slacks+artificial),
		structural: k,
		slacks:     slacks,
		artificial: artificial,
		basis:      make([]int, m),
	}
	for i, j := range cols {
		f.c[i] = -weight[j]
	}

	slack, art := k, k+slacks
	for i, r := range all {
		for j, coef := range r.coefs {
			f.a.Set(i, colIdx[j], flip[i]*coef)
		}
		switch senses[i] {
		case linear.LessEq:
			f.a.Set(i, slack, 1)
			f.basis[i] = slack
			slack++
		case linear.GreaterEq:
			f.a.Set(i, slack, -1)
			slack++
			f.a.Set(i, art, 1)
			f.basis[i] = art
			art++
		default:
			f.a.Set(i, art, 1)
			f.basis[i] = art
			art++
		}
	}
	return f
}

// solve runs the two-phase simplex and returns the structural columns.
// Infeasible and unbounded programs are reported with lp.ErrInfeasible
// and lp.ErrUnbounded.
func (f *standardForm) solve(tol float64) ([]float64, error) {
	if f.artificial == 0 {
		_, z, err := simplex(f.c, f.a, f.b, tol, f.basis)
		if err != nil {
			return nil, err
		}
		return z[:f.structural], nil
	}

	// phase 1: drive the artificials to zero
	m, n := f.a.Dims()
	phase1 := make([]float64, n)
	for j := f.structural + f.slacks; j < n; j++ {
		phase1[j] = 1
	}
	infeasibility, z, err := simplex(phase1, f.a, f.b, tol, f.basis)
	if err != nil {
		return nil, fmt.Errorf("phase 1: %w", err)
	}
	if infeasibility > feasibilityTolerance*math.Max(1, floats.Max(f.b)) {
		return nil, lp.ErrInfeasible
	}

	basis := f.completeBasis(z)

	// phase 2 keeps the artificials left in the basis, pinned to zero by
	// one extra row: sum(artificials) + t = 0
	var kept []int
	for _, j := range basis {
		if j >= f.structural+f.slacks {
			kept = append(kept, j)
		}
	}
	base := f.structural + f.slacks
	m2, n2 := m, base+len(kept)
	if len(kept) > 0 {
		m2, n2 = m+1, n2+1
	}

	a2 := mat.NewDense(m2, n2, nil)
	a2.Slice(0, m, 0, base).(*mat.Dense).Copy(f.a.Slice(0, m, 0, base))
	remap := make(map[int]int, n2)
	for j := range base {
		remap[j] = j
	}
	col := make([]float64, m)
	for i, j := range kept {
		mat.Col(col, j, f.a)
		a2.Slice(0, m, base+i, base+i+1).(*mat.Dense).SetCol(0, col)
		a2.Set(m, base+i, 1)
		remap[j] = base + i
	}
	basis2 := make([]int, 0, m2)
	for _, j := range basis {
		basis2 = append(basis2, remap[j])
	}
	if len(kept) > 0 {
		a2.Set(m, n2-1, 1)
		basis2 = append(basis2, n2-1)
	}

	b2 := make([]float64, m2)
	copy(b2, f.b)
	xb, err := settleBasis(a2, b2, basis2)
	if err != nil {
		return nil, err
	}
	if n2 == m2 {
		// every column is basic, so the start is the only feasible point
		z2 := make([]float64, n2)
		for i, j := range basis2 {
			z2[j] = xb[i]
		}
		return z2[:f.structural], nil
	}

	c2 := make([]float64, n2)
	copy(c2, f.c[:f.structural])
	_, z2, err := simplex(c2, a2, b2, tol, basis2)
	if err != nil {
		return nil, err
	}
	return z2[:f.structural], nil
}

// completeBasis extends the columns that are positive in the phase 1
// solution to a basis, trying slacks before structural columns and
// artificials last. The slack and artificial columns span every row, so
// the result always has one column per row.
func (f *standardForm) completeBasis(z []float64) []int {
	m, n := f.a.Dims()
	sp := &span{}
	basis := make([]int, 0, m)
	used := make([]bool, n)
	try := func(j int) {
		if len(basis) == m || used[j] {
			return
		}
		if sp.add(mat.Col(nil, j, f.a)) {
			used[j] = true
			basis = append(basis, j)
		}
	}

	for j, v := range z {
		if v > 0 {
			try(j)
		}
	}
	for j := f.structural; j < f.structural+f.slacks; j++ {
		try(j)
	}
	for j := range f.structural {
		try(j)
	}
	for j := f.structural + f.slacks; j < n; j++ {
		try(j)
	}
	return basis
}

// settleBasis checks that basis is a feasible start for A z = b and
// returns the basic values. Values a rounding error below zero are
// clamped and b is moved onto the clamped point, since lp.Simplex rejects
// any negative start.
func settleBasis(a *mat.Dense, b []float64, basis []int) ([]float64, error) {
	m, _ := a.Dims()
	ab := mat.NewDense(m, len(basis), nil)
	col := make([]float64, m)
	for i, j := range basis {
		mat.Col(col, j, a)
		ab.SetCol(i, col)
	}

	var xb mat.VecDense
	if err := xb.SolveVec(ab, mat.NewVecDense(m, b)); err != nil {
		return nil, fmt.Errorf("phase 1 basis: %w", err)
	}
	tol := feasibilityTolerance * math.Max(1, floats.Max(b))
	clamped := false
	for i := range m {
		v := xb.AtVec(i)
		if v < -tol {
			return nil, fmt.Errorf("phase 1 basis is infeasible: basic value %g", v)
		}
		if v < 0 {
			xb.SetVec(i, 0)
			clamped = true
		}
	}
	if clamped {
		mat.NewVecDense(m, b).MulVec(ab, &xb)
	}
	return mat.Col(nil, 0, &xb), nil
}

// simplex calls lp.Simplex, turning its panics on a rejected initial
// basis into errors
func simplex(c []float64, a mat.Matrix, b []float64, tol float64, basis []int) (opt float64, z []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("simplex: %v", r)
		}
	}()
	return lp.Simplex(c, a, b, tol, basis)
}

// span tests columns for linear independence by Gram-Schmidt
type span struct {
	q [][]float64
}

// add appends v to the span and reports whether it was independent of
// the vectors already there
func (s *span) add(v []float64) bool {
	norm := floats.Norm(v, 2)
	if norm == 0 {
		return false
	}
	w := make([]float64, len(v))
	copy(w, v)
	for range 2 {
		for _, q := range s.q {
			floats.AddScaled(w, -floats.Dot(q, w), q)
		}
	}
	r := floats.Norm(w, 2)
	if r <= 1e-9*norm {
		return false
	}
	floats.Scale(1/r, w)
	s.q = append(s.q, w)
	return true
}
