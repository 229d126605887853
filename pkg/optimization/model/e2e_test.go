package model_test

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/blendplan/pkg/domain/constraints"
	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/infrastructure/solver/gonumlp"
	testhelpers "github.com/vsinha/blendplan/pkg/infrastructure/testing"
	"github.com/vsinha/blendplan/pkg/optimization/model"
)

const tol = 1e-6

func solveReference(t *testing.T, task *entities.Task, gens ...constraints.Generator) *model.Model {
	t.Helper()
	m, err := model.Build(task, gonumlp.New())
	require.NoError(t, err)
	require.NoError(t, m.AddConstraints(context.Background(), gens...))
	require.NoError(t, m.SetObjective(model.ProfitObjective{}))

	status, err := m.Solve(context.Background())
	require.NoError(t, err)
	require.Equal(t, model.StatusOptimal, status)
	return m
}

func TestEndToEnd_AllRules(t *testing.T) {
	for _, eps := range []float64{0, constraints.DefaultEps} {
		m := solveReference(t, testhelpers.MustReferenceTask(), constraints.All(eps)...)

		solution, err := m.Solution()
		require.NoError(t, err)

		// both materials are harder than the upper bound, so the blend is
		// empty and the opening stock is carried at storage cost
		assert.InDelta(t, -10000, solution.Objective, tol)

		task := m.Task()
		for _, mat := range task.Materials() {
			for _, p := range task.Horizon() {
				assert.InDelta(t, 0, solution.Refine(mat, p), tol)
				assert.InDelta(t, 0, solution.Purchase(mat, p), tol)
				assert.InDelta(t, 500, solution.Stock(mat, p), tol)
			}
		}

		violations, err := m.Verify(tol)
		require.NoError(t, err)
		assert.Empty(t, violations)
	}
}

func TestEndToEnd_CapacityOnly(t *testing.T) {
	m := solveReference(t, testhelpers.MustReferenceTask(),
		constraints.StockTransition{Eps: constraints.DefaultEps},
		constraints.StockNonnegative{Eps: constraints.DefaultEps},
		constraints.MaxStorage{Eps: constraints.DefaultEps},
		constraints.MaxRefinePerMonth{Eps: constraints.DefaultEps},
	)

	solution, err := m.Solution()
	require.NoError(t, err)

	// opening stock covers full capacity in both months: A refines 400,
	// B refines 500, and the earliest refining minimises storage
	assert.InDelta(t, 131750, solution.Objective, tol)

	task := m.Task()
	a, _ := task.Material("A")
	b, _ := task.Material("B")
	jan, feb := task.First(), task.Last()
	assert.InDelta(t, 200, solution.Refine(a, jan), tol)
	assert.InDelta(t, 200, solution.Refine(a, feb), tol)
	assert.InDelta(t, 250, solution.Refine(b, jan), tol)
	assert.InDelta(t, 100, solution.Stock(a, feb), tol)
	assert.InDelta(t, 0, solution.Stock(b, feb), tol)
	assert.InDelta(t, 1, solution.IsRefined(a, jan), tol)

	violations, err := m.Verify(tol)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestEndToEnd_Dependency(t *testing.T) {
	params := entities.DefaultParameters()
	params.HardnessLower = 0
	params.HardnessUpper = 10
	params.FinalStock = 0
	params.MaxDistinct = 1
	// refining A forces B into the same month, which MaxDistinct forbids
	params.Dependencies = []entities.DependencyRule{{Prerequisites: []entities.MaterialName{"A"}, Dependent: "B"}}
	task := testhelpers.MustReferenceTask(entities.WithParameters(params))

	m := solveReference(t, task, constraints.All(constraints.DefaultEps)...)
	solution, err := m.Solution()
	require.NoError(t, err)

	a, _ := task.Material("A")
	for _, p := range task.Horizon() {
		assert.InDelta(t, 0, solution.Refine(a, p), tol)
		assert.InDelta(t, 0, solution.IsRefined(a, p), tol)
	}

	violations, err := m.Verify(tol)
	require.NoError(t, err)
	assert.Empty(t, violations)
}

func TestEndToEnd_Infeasible(t *testing.T) {
	params := entities.DefaultParameters()
	params.MaxStorage = 400 // below the opening stock that cannot be refined
	task := testhelpers.MustReferenceTask(entities.WithParameters(params))

	m, err := model.Build(task, gonumlp.New())
	require.NoError(t, err)
	require.NoError(t, m.AddConstraints(context.Background(), constraints.All(constraints.DefaultEps)...))
	require.NoError(t, m.SetObjective(model.ProfitObjective{}))

	status, err := m.Solve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, model.StatusInfeasible, status)
	assert.Equal(t, model.StateFailed, m.State())

	_, err = m.Solution()
	var statusErr *model.EngineStatusError
	assert.ErrorAs(t, err, &statusErr)
}

func oilTask(t *testing.T, months int, params entities.Parameters) *entities.Task {
	t.Helper()
	last := testhelpers.OilFirst
	for range months - 1 {
		last = last.Next()
	}
	task, err := testhelpers.OilTask(last, entities.WithParameters(params))
	require.NoError(t, err)
	return task
}

// requireBlendRules checks capacity, blend hardness, batch size, the
// distinct material limit and the dependency rules on a solved plan
func requireBlendRules(t *testing.T, task *entities.Task, s *model.Solution) {
	t.Helper()
	params := task.Params()
	for _, p := range task.Horizon() {
		used := make(map[entities.Category]float64)
		var amount, hardness float64
		distinct := 0
		for _, mat := range task.Materials() {
			refine, on := s.Refine(mat, p), s.IsRefined(mat, p)
			used[mat.Category] += refine
			amount += refine
			hardness += refine * mat.Hardness

			assert.InDelta(t, math.Round(on), on, tol, "%s %s indicator", mat.Name, p)
			if math.Round(on) == 1 {
				distinct++
				assert.GreaterOrEqual(t, refine, params.MinBatch-tol, "%s %s batch", mat.Name, p)
			} else {
				assert.InDelta(t, 0, refine, tol, "%s %s refined while off", mat.Name, p)
			}
		}
		for cat, total := range used {
			assert.LessOrEqual(t, total, task.RefineCapacity(cat)+tol, "%s %s capacity", cat, p)
		}
		if amount > tol {
			assert.GreaterOrEqual(t, hardness/amount, params.HardnessLower-tol, "%s hardness", p)
			assert.LessOrEqual(t, hardness/amount, params.HardnessUpper+tol, "%s hardness", p)
		}
		assert.LessOrEqual(t, distinct, params.MaxDistinct, "%s distinct", p)

		for _, rule := range params.Dependencies {
			all := true
			for _, name := range rule.Prerequisites {
				mat, _ := task.Material(name)
				all = all && math.Round(s.IsRefined(mat, p)) == 1
			}
			if all {
				dependent, _ := task.Material(rule.Dependent)
				assert.InDelta(t, 1, s.IsRefined(dependent, p), tol, "%s dependent %s", p, rule.Dependent)
			}
		}
	}
}

func TestEndToEnd_OilScenario(t *testing.T) {
	params := entities.DefaultParameters()
	params.Dependencies = testhelpers.OilDependencies()

	for _, eps := range []float64{0, constraints.DefaultEps} {
		task := oilTask(t, 2, params)
		m := solveReference(t, task, constraints.All(eps)...)

		solution, err := m.Solution()
		require.NoError(t, err)
		// carrying the opening stock without refining costs 5*500*5*2
		assert.Greater(t, solution.Objective, -25000.0+1)

		violations, err := m.Verify(tol)
		require.NoError(t, err)
		assert.Empty(t, violations)
		requireBlendRules(t, task, solution)

		for _, mat := range task.Materials() {
			assert.InDelta(t, params.FinalStock, solution.Stock(mat, task.Last()), tol, "%s final stock", mat.Name)
		}
	}
}

func TestEndToEnd_WideHardness(t *testing.T) {
	params := entities.DefaultParameters()
	params.HardnessLower = 2
	params.HardnessUpper = 9
	params.FinalStock = 0
	params.Dependencies = testhelpers.OilDependencies()
	task := oilTask(t, 2, params)

	m := solveReference(t, task, constraints.All(constraints.DefaultEps)...)
	solution, err := m.Solution()
	require.NoError(t, err)

	violations, err := m.Verify(tol)
	require.NoError(t, err)
	assert.Empty(t, violations)
	requireBlendRules(t, task, solution)

	// without a closing stock both capacities are filled from the opening
	// stock in the first month
	jan := task.First()
	for _, cat := range entities.Categories() {
		var total float64
		refined := 0
		for _, mat := range task.Materials() {
			if mat.Category != cat {
				continue
			}
			total += solution.Refine(mat, jan)
			if solution.Refine(mat, jan) > tol {
				refined++
			}
		}
		assert.InDelta(t, task.RefineCapacity(cat), total, tol, "%s capacity in %s", cat, jan)
		assert.Positive(t, refined)
	}

	refined := 0
	for _, p := range task.Horizon() {
		for _, mat := range task.Materials() {
			if solution.Refine(mat, p) > tol {
				refined++
			}
		}
	}
	assert.Greater(t, refined, 2, "several materials are refined")
}
