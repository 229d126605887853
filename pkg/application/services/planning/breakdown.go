package planning

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vsinha/blendplan/pkg/application/dto"
	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/optimization/model"
)

const (
	quantityPlaces = 4
	moneyPlaces    = 2
)

// quantity trims solver round-off from a plan value
func quantity(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(quantityPlaces)
}

func newBreakdown(task *entities.Task, solution *model.Solution) (dto.MoneyBreakdown, error) {
	params := task.Params()
	sell := decimal.NewFromFloat(params.SellPrice)
	storage := decimal.NewFromFloat(params.StorageCost)

	var b dto.MoneyBreakdown
	for _, p := range task.Horizon() {
		for _, m := range task.Materials() {
			price, err := task.Price(p, m.Name)
			if err != nil {
				return dto.MoneyBreakdown{}, fmt.Errorf("failed to price plan: %w", err)
			}
			b.Revenue = b.Revenue.Add(sell.Mul(quantity(solution.Refine(m, p))))
			b.PurchaseCost = b.PurchaseCost.Add(decimal.NewFromFloat(price).Mul(quantity(solution.Purchase(m, p))))
			b.StorageCost = b.StorageCost.Add(storage.Mul(quantity(solution.Stock(m, p))))
		}
	}

	b.Revenue = b.Revenue.Round(moneyPlaces)
	b.PurchaseCost = b.PurchaseCost.Round(moneyPlaces)
	b.StorageCost = b.StorageCost.Round(moneyPlaces)
	b.Profit = b.Revenue.Sub(b.PurchaseCost).Sub(b.StorageCost)
	return b, nil
}

// newRows lists the plan period by period in material order
func newRows(task *entities.Task, solution *model.Solution) []dto.PlanRow {
	rows := make([]dto.PlanRow, 0, len(task.Horizon())*len(task.Materials()))
	for _, p := range task.Horizon() {
		for _, m := range task.Materials() {
			rows = append(rows, dto.PlanRow{
				Period:   p.String(),
				Material: string(m.Name),
				Category: m.Category.String(),
				Purchase: quantity(solution.Purchase(m, p)),
				Refine:   quantity(solution.Refine(m, p)),
				Stock:    quantity(solution.Stock(m, p)),
				Refined:  solution.IsRefined(m, p) > 0.5,
			})
		}
	}
	return rows
}
