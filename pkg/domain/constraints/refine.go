package constraints

import (
	"fmt"

	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/domain/linear"
)

// MaxRefinePerMonth caps the refine volume of each category per period.
// Categories without materials produce no constraint.
type MaxRefinePerMonth struct {
	Eps float64
}

func (MaxRefinePerMonth) Name() string { return MaxRefinePerMonthName }

func (g MaxRefinePerMonth) Constraints(task *entities.Task, vars entities.Plan[linear.Var]) ([]linear.Constraint, error) {
	materials := task.Materials()
	var out []linear.Constraint
	for _, p := range task.Horizon() {
		groups := make(map[entities.Category][]linear.Var, len(entities.Categories()))
		for _, m := range materials {
			groups[m.Category] = append(groups[m.Category], vars.Refine(m, p))
		}
		for _, c := range entities.Categories() {
			refines, ok := groups[c]
			if !ok {
				continue
			}
			out = append(out, linear.NewLessEq(
				linear.Sum(refines...),
				linear.Constant(task.RefineCapacity(c)+g.Eps),
			))
		}
	}
	return out, nil
}

// Hardness keeps the volume-weighted hardness of each period's blend
// within bounds. With H = sum(refine*hardness) and Q = sum(refine), the
// ratio bound lower <= H/Q <= upper is written as lower*Q <= H and
// H <= upper*Q, which also holds trivially when nothing is refined.
type Hardness struct {
	Eps float64
}

func (Hardness) Name() string { return HardnessName }

func (g Hardness) Constraints(task *entities.Task, vars entities.Plan[linear.Var]) ([]linear.Constraint, error) {
	params := task.Params()
	materials := task.Materials()
	var out []linear.Constraint
	for _, p := range task.Horizon() {
		refines := make([]linear.Var, len(materials))
		weights := make([]float64, len(materials))
		for i, m := range materials {
			refines[i] = vars.Refine(m, p)
			weights[i] = m.Hardness
		}
		hardness := linear.WeightedSum(refines, weights)
		amount := linear.Sum(refines...)

		out = append(out,
			linear.NewLessEq(amount.Scale(params.HardnessLower), hardness.Plus(g.Eps)),
			linear.NewLessEq(hardness, amount.Scale(params.HardnessUpper).Plus(g.Eps)),
		)
	}
	return out, nil
}

// MinRefine makes refine semi-continuous: together with the big-M linkage
// created with the variables, refine is either 0 or at least the minimum
// batch size.
type MinRefine struct {
	Eps float64
}

func (MinRefine) Name() string { return MinRefineName }

func (g MinRefine) Constraints(task *entities.Task, vars entities.Plan[linear.Var]) ([]linear.Constraint, error) {
	minBatch := task.Params().MinBatch
	var out []linear.Constraint
	for _, p := range task.Horizon() {
		for _, m := range task.Materials() {
			out = append(out, linear.NewGreaterEq(
				vars.Refine(m, p).Expr(),
				vars.IsRefined(m, p).Times(minBatch).Plus(-g.Eps),
			))
		}
	}
	return out, nil
}

// MaxDistinctMaterials limits how many materials are refined per period
type MaxDistinctMaterials struct {
	Eps float64
}

func (MaxDistinctMaterials) Name() string { return MaxDistinctMaterialsName }

func (g MaxDistinctMaterials) Constraints(task *entities.Task, vars entities.Plan[linear.Var]) ([]linear.Constraint, error) {
	limit := float64(task.Params().MaxDistinct) + g.Eps
	materials := task.Materials()
	var out []linear.Constraint
	for _, p := range task.Horizon() {
		indicators := make([]linear.Var, len(materials))
		for i, m := range materials {
			indicators[i] = vars.IsRefined(m, p)
		}
		out = append(out, linear.NewLessEq(linear.Sum(indicators...), linear.Constant(limit)))
	}
	return out, nil
}

// Dependency enforces each rule "if all prerequisites are refined in a
// period, the dependent is refined too" as
// sum(is_refined(q)) - is_refined(d) <= |P| - 1.
type Dependency struct {
	Eps float64
}

func (Dependency) Name() string { return DependencyName }

func (g Dependency) Constraints(task *entities.Task, vars entities.Plan[linear.Var]) ([]linear.Constraint, error) {
	rules := task.Params().Dependencies
	var out []linear.Constraint
	for i, rule := range rules {
		prerequisites := make([]entities.Material, len(rule.Prerequisites))
		for j, name := range rule.Prerequisites {
			m, ok := task.Material(name)
			if !ok {
				return nil, fmt.Errorf("dependency rule %d: unknown prerequisite %s", i+1, name)
			}
			prerequisites[j] = m
		}
		dependent, ok := task.Material(rule.Dependent)
		if !ok {
			return nil, fmt.Errorf("dependency rule %d: unknown dependent %s", i+1, rule.Dependent)
		}

		bound := float64(len(prerequisites)-1) + g.Eps
		for _, p := range task.Horizon() {
			indicators := make([]linear.Var, len(prerequisites))
			for j, m := range prerequisites {
				indicators[j] = vars.IsRefined(m, p)
			}
			lhs := linear.Sum(indicators...).Sub(vars.IsRefined(dependent, p).Expr())
			out = append(out, linear.NewLessEq(lhs, linear.Constant(bound)))
		}
	}
	return out, nil
}
