// Package constraints holds the rules of the blending model. Each rule is
// an independent Generator: it reads a task and the symbolic plan and
// returns linear constraints, without side effects, so rules can be added
// or left out in any combination and order.
package constraints

import (
	"fmt"

	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/domain/linear"
)

// DefaultEps is the slack shared by all relaxed comparisons. With eps 0
// the stock balance is emitted as an exact equality.
const DefaultEps = 1e-12

// Generator produces the constraints of one modelling rule
type Generator interface {
	Name() string
	Constraints(task *entities.Task, vars entities.Plan[linear.Var]) ([]linear.Constraint, error)
}

// Rule names, in the order All registers them
const (
	StockTransitionName      = "stock_transition"
	StockNonnegativeName     = "stock_nonnegative"
	MaxStorageName           = "max_storage"
	FinalStorageName         = "final_storage"
	MaxRefinePerMonthName    = "max_refine_per_month"
	HardnessName             = "hardness"
	MinRefineName            = "min_refine"
	MaxDistinctMaterialsName = "max_distinct_materials"
	DependencyName           = "dependency"
)

// Names returns every rule name in registration order
func Names() []string {
	return []string{
		StockTransitionName,
		StockNonnegativeName,
		MaxStorageName,
		FinalStorageName,
		MaxRefinePerMonthName,
		HardnessName,
		MinRefineName,
		MaxDistinctMaterialsName,
		DependencyName,
	}
}

// ByName returns the rule with the given name using slack eps
func ByName(name string, eps float64) (Generator, error) {
	switch name {
	case StockTransitionName:
		return StockTransition{Eps: eps}, nil
	case StockNonnegativeName:
		return StockNonnegative{Eps: eps}, nil
	case MaxStorageName:
		return MaxStorage{Eps: eps}, nil
	case FinalStorageName:
		return FinalStorage{Eps: eps}, nil
	case MaxRefinePerMonthName:
		return MaxRefinePerMonth{Eps: eps}, nil
	case HardnessName:
		return Hardness{Eps: eps}, nil
	case MinRefineName:
		return MinRefine{Eps: eps}, nil
	case MaxDistinctMaterialsName:
		return MaxDistinctMaterials{Eps: eps}, nil
	case DependencyName:
		return Dependency{Eps: eps}, nil
	default:
		return nil, fmt.Errorf("unknown constraint rule: %s", name)
	}
}

// Select returns the named rules in the given order
func Select(names []string, eps float64) ([]Generator, error) {
	gens := make([]Generator, 0, len(names))
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if seen[name] {
			return nil, fmt.Errorf("constraint rule %s listed twice", name)
		}
		seen[name] = true
		g, err := ByName(name, eps)
		if err != nil {
			return nil, err
		}
		gens = append(gens, g)
	}
	return gens, nil
}

// All returns every rule
func All(eps float64) []Generator {
	gens, err := Select(Names(), eps)
	if err != nil {
		panic(err)
	}
	return gens
}

// relaxedEqual returns lhs == rhs as a pair of inequalities widened by
// eps, or as one equality when eps is zero.
func relaxedEqual(lhs, rhs linear.Expr, eps float64) []linear.Constraint {
	if eps > 0 {
		return []linear.Constraint{
			linear.NewGreaterEq(lhs, rhs.Plus(-eps)),
			linear.NewLessEq(lhs, rhs.Plus(eps)),
		}
	}
	return []linear.Constraint{linear.NewEqual(lhs, rhs)}
}
