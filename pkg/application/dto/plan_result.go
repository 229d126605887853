package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PlanResult contains the complete output of a planning run. Objective,
// Breakdown and Rows are only filled when Status is "optimal".
type PlanResult struct {
	RunID      uuid.UUID       `json:"run_id"`
	Status     string          `json:"status"`
	Objective  *float64        `json:"objective,omitempty"`
	Breakdown  *MoneyBreakdown `json:"breakdown,omitempty"`
	Rows       []PlanRow       `json:"rows,omitempty"`
	Stats      ModelStats      `json:"stats"`
	SolveTime  time.Duration   `json:"solve_time_ns"`
	Warnings   []string        `json:"warnings,omitempty"`
	Violations []string        `json:"violations,omitempty"`
}

// Optimal reports whether the run produced a plan
func (r *PlanResult) Optimal() bool {
	return r.Objective != nil
}

// PlanRow is the decision for one material in one period
type PlanRow struct {
	Period   string          `json:"period"`
	Material string          `json:"material"`
	Category string          `json:"category"`
	Purchase decimal.Decimal `json:"purchase"`
	Refine   decimal.Decimal `json:"refine"`
	Stock    decimal.Decimal `json:"stock"`
	Refined  bool            `json:"refined"`
}

// MoneyBreakdown splits the objective into its terms.
// Profit = Revenue - PurchaseCost - StorageCost.
type MoneyBreakdown struct {
	Revenue      decimal.Decimal `json:"revenue"`
	PurchaseCost decimal.Decimal `json:"purchase_cost"`
	StorageCost  decimal.Decimal `json:"storage_cost"`
	Profit       decimal.Decimal `json:"profit"`
}

// ModelStats summarises the size of the solved model
type ModelStats struct {
	Variables   int        `json:"variables"`
	Binaries    int        `json:"binaries"`
	Constraints int        `json:"constraints"`
	Rules       []RuleStat `json:"rules"`
}

type RuleStat struct {
	Rule        string `json:"rule"`
	Constraints int    `json:"constraints"`
}
