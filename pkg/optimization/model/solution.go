package model

import (
	"fmt"
	"math"
	"slices"

	"github.com/vsinha/blendplan/pkg/domain/constraints"
	"github.com/vsinha/blendplan/pkg/domain/entities"
)

// Solution is the numeric plan of an optimal solve
type Solution struct {
	*entities.PlanTable[float64]
	Objective float64
}

// Violation describes a solution value that breaks a modelling rule
type Violation struct {
	Rule     string
	Period   entities.Period
	Material entities.MaterialName
	Detail   string
}

func (v Violation) String() string {
	if v.Material == "" {
		return fmt.Sprintf("%s in %s: %s", v.Rule, v.Period, v.Detail)
	}
	return fmt.Sprintf("%s for %s in %s: %s", v.Rule, v.Material, v.Period, v.Detail)
}

// Verify checks the solution against the domain rules named in rules,
// independently of the constraint rows that produced it. tol absorbs the
// relaxation slack and solver round-off.
func (s *Solution) Verify(task *entities.Task, tol float64, rules []string) []Violation {
	params := task.Params()
	materials := task.Materials()
	horizon := task.Horizon()
	has := func(rule string) bool { return slices.Contains(rules, rule) }
	used := func(m entities.Material, p entities.Period) bool { return s.IsRefined(m, p) > 0.5 }

	var out []Violation
	add := func(rule string, p entities.Period, m entities.MaterialName, format string, args ...any) {
		out = append(out, Violation{Rule: rule, Period: p, Material: m, Detail: fmt.Sprintf(format, args...)})
	}

	for _, m := range materials {
		prev := params.InitialStock
		for _, p := range horizon {
			stock := s.Stock(m, p)
			refine := s.Refine(m, p)

			if has(constraints.StockTransitionName) {
				want := prev + s.Purchase(m, p) - refine
				if math.Abs(stock-want) > tol {
					add(constraints.StockTransitionName, p, m.Name, "stock %.6g, expected %.6g", stock, want)
				}
			}
			if has(constraints.StockNonnegativeName) && stock < -tol {
				add(constraints.StockNonnegativeName, p, m.Name, "stock %.6g is negative", stock)
			}
			if has(constraints.MaxStorageName) && stock > params.MaxStorage+tol {
				add(constraints.MaxStorageName, p, m.Name, "stock %.6g above %.6g", stock, params.MaxStorage)
			}
			if refine > tol && !used(m, p) {
				add(LinkageRule, p, m.Name, "refine %.6g without indicator", refine)
			}
			if has(constraints.MinRefineName) && refine > tol && refine < params.MinBatch-tol {
				add(constraints.MinRefineName, p, m.Name, "refine %.6g below minimum batch %.6g", refine, params.MinBatch)
			}
			prev = stock
		}

		if has(constraints.FinalStorageName) {
			if stock := s.Stock(m, task.Last()); stock < params.FinalStock-tol {
				add(constraints.FinalStorageName, task.Last(), m.Name, "final stock %.6g below %.6g", stock, params.FinalStock)
			}
		}
	}

	for _, p := range horizon {
		perCategory := make(map[entities.Category]float64)
		var amount, hardness float64
		distinct := 0
		for _, m := range materials {
			refine := s.Refine(m, p)
			perCategory[m.Category] += refine
			amount += refine
			hardness += refine * m.Hardness
			if used(m, p) {
				distinct++
			}
		}

		if has(constraints.MaxRefinePerMonthName) {
			for _, c := range entities.Categories() {
				if total, capacity := perCategory[c], task.RefineCapacity(c); total > capacity+tol {
					add(constraints.MaxRefinePerMonthName, p, "", "%s refine %.6g above capacity %.6g", c, total, capacity)
				}
			}
		}
		if has(constraints.HardnessName) && amount > tol {
			blend := hardness / amount
			if blend < params.HardnessLower-tol || blend > params.HardnessUpper+tol {
				add(constraints.HardnessName, p, "", "blend hardness %.6g outside [%.6g, %.6g]",
					blend, params.HardnessLower, params.HardnessUpper)
			}
		}
		if has(constraints.MaxDistinctMaterialsName) && distinct > params.MaxDistinct {
			add(constraints.MaxDistinctMaterialsName, p, "", "%d materials refined, limit %d", distinct, params.MaxDistinct)
		}
		if has(constraints.DependencyName) {
			for _, rule := range params.Dependencies {
				all := true
				for _, name := range rule.Prerequisites {
					if m, ok := task.Material(name); !ok || !used(m, p) {
						all = false
						break
					}
				}
				dependent, ok := task.Material(rule.Dependent)
				if all && ok && !used(dependent, p) {
					add(constraints.DependencyName, p, rule.Dependent, "prerequisites %v refined without dependent", rule.Prerequisites)
				}
			}
		}
	}

	return out
}

// Verify checks the model's solution against the rules that were added
func (m *Model) Verify(tol float64) ([]Violation, error) {
	solution, err := m.Solution()
	if err != nil {
		return nil, err
	}
	return solution.Verify(m.task, tol, m.RuleNames()), nil
}
