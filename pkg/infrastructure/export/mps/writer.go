// Package mps writes a linear.Program in free-format MPS so a model can be
// inspected or handed to an external MILP solver.
package mps

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/vsinha/blendplan/pkg/domain/linear"
)

const objectiveRow = "obj"

type entry struct {
	row  string
	coef float64
}

// Write renders p to w. Binary columns are wrapped in integer markers and
// bounded with BV; a maximisation keeps its coefficients and is flagged
// with OBJSENSE MAX.
func Write(w io.Writer, p *linear.Program) error {
	bw := bufio.NewWriter(w)

	rowNames := make([]string, len(p.Constraints))
	seen := map[string]bool{objectiveRow: true}
	for i, c := range p.Constraints {
		name := Sanitize(c.Name)
		if seen[name] {
			return fmt.Errorf("duplicate row name %s", name)
		}
		seen[name] = true
		rowNames[i] = name
	}

	colNames := make(map[string]bool, len(p.Variables))
	for _, v := range p.Variables {
		name := Sanitize(v.Name)
		if colNames[name] {
			return fmt.Errorf("duplicate column name %s", name)
		}
		colNames[name] = true
	}

	columns := make([][]entry, len(p.Variables))
	add := func(row string, e linear.Expr) {
		for _, t := range e.Simplify().Terms {
			j := int(t.Var) - 1
			if j < 0 || j >= len(columns) {
				continue
			}
			columns[j] = append(columns[j], entry{row: row, coef: t.Coef})
		}
	}
	if p.HasObjective {
		add(objectiveRow, p.Objective)
	}
	for i, c := range p.Constraints {
		add(rowNames[i], c.Expr)
	}

	fmt.Fprintf(bw, "NAME          %s\n", Sanitize(p.Name))
	if p.HasObjective && p.Sense == linear.Maximize {
		fmt.Fprintf(bw, "OBJSENSE\n    MAX\n")
	}

	fmt.Fprintf(bw, "ROWS\n N  %s\n", objectiveRow)
	for i, c := range p.Constraints {
		fmt.Fprintf(bw, " %s  %s\n", senseCode(c.Sense), rowNames[i])
	}

	fmt.Fprintf(bw, "COLUMNS\n")
	integer := false
	marker := 0
	for j, v := range p.Variables {
		if binary := v.Kind == linear.Binary; binary != integer {
			kind := "'INTORG'"
			if !binary {
				kind = "'INTEND'"
			}
			fmt.Fprintf(bw, "    MARKER%d  'MARKER'  %s\n", marker, kind)
			marker++
			integer = binary
		}
		name := Sanitize(v.Name)
		if len(columns[j]) == 0 {
			// keep the column declared even without coefficients
			fmt.Fprintf(bw, "    %s  %s  0\n", name, objectiveRow)
			continue
		}
		for _, e := range columns[j] {
			fmt.Fprintf(bw, "    %s  %s  %s\n", name, e.row, formatFloat(e.coef))
		}
	}
	if integer {
		fmt.Fprintf(bw, "    MARKER%d  'MARKER'  'INTEND'\n", marker)
	}

	fmt.Fprintf(bw, "RHS\n")
	if p.HasObjective && p.Objective.Constant != 0 {
		fmt.Fprintf(bw, "    RHS  %s  %s\n", objectiveRow, formatFloat(-p.Objective.Constant))
	}
	for i, c := range p.Constraints {
		if c.RHS != 0 {
			fmt.Fprintf(bw, "    RHS  %s  %s\n", rowNames[i], formatFloat(c.RHS))
		}
	}

	fmt.Fprintf(bw, "BOUNDS\n")
	for _, v := range p.Variables {
		name := Sanitize(v.Name)
		if v.Kind == linear.Binary {
			fmt.Fprintf(bw, " BV BND  %s\n", name)
			continue
		}
		switch {
		case math.IsInf(v.Lower, -1):
			fmt.Fprintf(bw, " MI BND  %s\n", name)
		case v.Lower != 0:
			fmt.Fprintf(bw, " LO BND  %s  %s\n", name, formatFloat(v.Lower))
		}
		if !math.IsInf(v.Upper, 1) {
			fmt.Fprintf(bw, " UP BND  %s  %s\n", name, formatFloat(v.Upper))
		}
	}

	fmt.Fprintf(bw, "ENDATA\n")
	return bw.Flush()
}

// Sanitize makes a name usable as an MPS token
func Sanitize(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "_"
	}
	return strings.Join(strings.Fields(name), "_")
}

func senseCode(s linear.Sense) string {
	switch s {
	case linear.LessEq:
		return "L"
	case linear.GreaterEq:
		return "G"
	default:
		return "E"
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
