package model

import (
	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/domain/linear"
)

// ObjectiveBuilder produces the expression a Model maximizes
type ObjectiveBuilder interface {
	Objective(task *entities.Task, vars entities.Plan[linear.Var]) (linear.Expr, error)
}

// ProfitObjective is revenue from refined product minus storage and
// purchase costs over every material and period:
//
//	sum(sell*refine) - sum(storageCost*stock) - sum(price(p,m)*purchase)
type ProfitObjective struct{}

func (ProfitObjective) Objective(task *entities.Task, vars entities.Plan[linear.Var]) (linear.Expr, error) {
	params := task.Params()
	var profit linear.Expr
	for _, m := range task.Materials() {
		for _, p := range task.Horizon() {
			price, err := task.Price(p, m.Name)
			if err != nil {
				return linear.Expr{}, err
			}
			profit.Terms = append(profit.Terms,
				linear.Term{Var: vars.Refine(m, p), Coef: params.SellPrice},
				linear.Term{Var: vars.Stock(m, p), Coef: -params.StorageCost},
				linear.Term{Var: vars.Purchase(m, p), Coef: -price},
			)
		}
	}
	return profit.Simplify(), nil
}
