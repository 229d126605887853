package constraints

import (
	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/domain/linear"
)

// StockTransition balances stock between periods:
// stock(m,p) == prev + purchase(m,p) - refine(m,p), where prev is the
// initial stock in the first period.
type StockTransition struct {
	Eps float64
}

func (StockTransition) Name() string { return StockTransitionName }

func (g StockTransition) Constraints(task *entities.Task, vars entities.Plan[linear.Var]) ([]linear.Constraint, error) {
	params := task.Params()
	var out []linear.Constraint
	for _, m := range task.Materials() {
		prev := linear.Constant(params.InitialStock)
		for _, p := range task.Horizon() {
			stock := vars.Stock(m, p).Expr()
			balance := prev.
				Add(vars.Purchase(m, p).Expr()).
				Sub(vars.Refine(m, p).Expr())
			out = append(out, relaxedEqual(stock, balance, g.Eps)...)
			prev = stock
		}
	}
	return out, nil
}

// StockNonnegative keeps stock at or above -eps. The variables already
// have a zero lower bound; the rule exists so it can be toggled on its own.
type StockNonnegative struct {
	Eps float64
}

func (StockNonnegative) Name() string { return StockNonnegativeName }

func (g StockNonnegative) Constraints(task *entities.Task, vars entities.Plan[linear.Var]) ([]linear.Constraint, error) {
	var out []linear.Constraint
	for _, m := range task.Materials() {
		for _, p := range task.Horizon() {
			out = append(out, linear.NewGreaterEq(vars.Stock(m, p).Expr(), linear.Constant(-g.Eps)))
		}
	}
	return out, nil
}

// MaxStorage caps the stock of every material in every period
type MaxStorage struct {
	Eps float64
}

func (MaxStorage) Name() string { return MaxStorageName }

func (g MaxStorage) Constraints(task *entities.Task, vars entities.Plan[linear.Var]) ([]linear.Constraint, error) {
	limit := task.Params().MaxStorage + g.Eps
	var out []linear.Constraint
	for _, p := range task.Horizon() {
		for _, m := range task.Materials() {
			out = append(out, linear.NewLessEq(vars.Stock(m, p).Expr(), linear.Constant(limit)))
		}
	}
	return out, nil
}

// FinalStorage requires the closing stock of the last period
type FinalStorage struct {
	Eps float64
}

func (FinalStorage) Name() string { return FinalStorageName }

func (g FinalStorage) Constraints(task *entities.Task, vars entities.Plan[linear.Var]) ([]linear.Constraint, error) {
	required := task.Params().FinalStock - g.Eps
	last := task.Last()
	var out []linear.Constraint
	for _, m := range task.Materials() {
		out = append(out, linear.NewGreaterEq(vars.Stock(m, last).Expr(), linear.Constant(required)))
	}
	return out, nil
}
