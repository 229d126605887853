package constraints

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/domain/linear"
	testhelpers "github.com/vsinha/blendplan/pkg/infrastructure/testing"
)

// symbolic allocates one handle per family, material and period
func symbolic(task *entities.Task) *entities.PlanTable[linear.Var] {
	vars := entities.NewPlanTable[linear.Var](task)
	next := linear.Var(1)
	for _, p := range task.Horizon() {
		for _, m := range task.Materials() {
			for _, f := range entities.Families() {
				vars.Set(f, m, p, next)
				next++
			}
		}
	}
	return vars
}

// assignment evaluates constraints against a numeric plan
type assignment struct {
	vars   *entities.PlanTable[linear.Var]
	values map[linear.Var]float64
}

func newAssignment(vars *entities.PlanTable[linear.Var]) *assignment {
	return &assignment{vars: vars, values: make(map[linear.Var]float64)}
}

func (a *assignment) set(f entities.Family, m entities.Material, p entities.Period, v float64) {
	h, _ := a.vars.Get(f, m, p)
	a.values[h] = v
}

func (a *assignment) violated(cs []linear.Constraint) int {
	n := 0
	for _, c := range cs {
		if !c.Satisfied(func(v linear.Var) float64 { return a.values[v] }, 1e-9) {
			n++
		}
	}
	return n
}

func TestGenerators_ConstraintCounts(t *testing.T) {
	params := entities.DefaultParameters()
	params.Dependencies = []entities.DependencyRule{
		{Prerequisites: []entities.MaterialName{"A"}, Dependent: "B"},
		{Prerequisites: []entities.MaterialName{"A", "B"}, Dependent: "A"},
	}
	task := testhelpers.MustReferenceTask(entities.WithParameters(params))
	vars := symbolic(task)

	tests := []struct {
		gen   Generator
		exact int
		eps   int
	}{
		{StockTransition{}, 4, 8},
		{StockNonnegative{}, 4, 4},
		{MaxStorage{}, 4, 4},
		{FinalStorage{}, 2, 2},
		{MaxRefinePerMonth{}, 4, 4},
		{Hardness{}, 4, 4},
		{MinRefine{}, 4, 4},
		{MaxDistinctMaterials{}, 2, 2},
		{Dependency{}, 4, 4},
	}

	for _, tt := range tests {
		t.Run(tt.gen.Name(), func(t *testing.T) {
			exact, err := ByName(tt.gen.Name(), 0)
			require.NoError(t, err)
			cs, err := exact.Constraints(task, vars)
			require.NoError(t, err)
			assert.Len(t, cs, tt.exact)

			relaxed, err := ByName(tt.gen.Name(), DefaultEps)
			require.NoError(t, err)
			cs, err = relaxed.Constraints(task, vars)
			require.NoError(t, err)
			assert.Len(t, cs, tt.eps)
		})
	}
}

func TestStockTransition(t *testing.T) {
	task := testhelpers.MustReferenceTask()
	vars := symbolic(task)
	a, _ := task.Material("A")
	b, _ := task.Material("B")
	jan, feb := task.First(), task.Last()

	for _, eps := range []float64{0, DefaultEps} {
		cs, err := StockTransition{Eps: eps}.Constraints(task, vars)
		require.NoError(t, err)

		plan := newAssignment(vars)
		// A: buy 100 and refine 300 in January, hold in February
		plan.set(entities.PurchaseFamily, a, jan, 100)
		plan.set(entities.RefineFamily, a, jan, 300)
		plan.set(entities.StockFamily, a, jan, 300)
		plan.set(entities.StockFamily, a, feb, 300)
		plan.set(entities.StockFamily, b, jan, 500)
		plan.set(entities.StockFamily, b, feb, 500)
		assert.Zero(t, plan.violated(cs), "eps %g", eps)

		plan.set(entities.StockFamily, b, feb, 499)
		assert.Equal(t, 1, plan.violated(cs), "eps %g", eps)
	}
}

func TestStorageRules(t *testing.T) {
	task := testhelpers.MustReferenceTask()
	vars := symbolic(task)
	a, _ := task.Material("A")
	jan, feb := task.First(), task.Last()

	nonNegative, _ := StockNonnegative{}.Constraints(task, vars)
	maxStorage, _ := MaxStorage{}.Constraints(task, vars)
	final, _ := FinalStorage{}.Constraints(task, vars)

	plan := newAssignment(vars)
	plan.set(entities.StockFamily, a, jan, -1)
	plan.set(entities.StockFamily, a, feb, 1001)
	assert.Equal(t, 1, plan.violated(nonNegative))
	assert.Equal(t, 1, plan.violated(maxStorage))
	// only B misses the closing stock
	assert.Equal(t, 1, plan.violated(final))
}

func TestMaxRefinePerMonth(t *testing.T) {
	task := testhelpers.MustReferenceTask()
	vars := symbolic(task)
	a, _ := task.Material("A")
	b, _ := task.Material("B")
	jan := task.First()

	cs, err := MaxRefinePerMonth{}.Constraints(task, vars)
	require.NoError(t, err)

	plan := newAssignment(vars)
	plan.set(entities.RefineFamily, a, jan, 200)
	plan.set(entities.RefineFamily, b, jan, 250)
	assert.Zero(t, plan.violated(cs))

	plan.set(entities.RefineFamily, a, jan, 201)
	assert.Equal(t, 1, plan.violated(cs))

	// categories without materials produce no row
	materials := []entities.Material{{Name: "A", Category: entities.Primary, Hardness: 5}}
	prices := entities.MarketPrices{{Period: jan, Material: "A"}: 1}
	single, err := entities.BuildTask(jan, jan, materials, prices)
	require.NoError(t, err)
	cs, err = MaxRefinePerMonth{}.Constraints(single, symbolic(single))
	require.NoError(t, err)
	assert.Len(t, cs, 1)
}

func TestHardness(t *testing.T) {
	task := testhelpers.MustReferenceTask()
	vars := symbolic(task)
	a, _ := task.Material("A")
	b, _ := task.Material("B")
	jan := task.First()

	cs, err := Hardness{}.Constraints(task, vars)
	require.NoError(t, err)

	plan := newAssignment(vars)
	assert.Zero(t, plan.violated(cs), "empty blend")

	plan.set(entities.RefineFamily, b, jan, 100)
	assert.Equal(t, 1, plan.violated(cs), "6.1 is above the upper bound")

	params := entities.DefaultParameters()
	params.HardnessUpper = 7
	wide := testhelpers.MustReferenceTask(entities.WithParameters(params))
	cs, err = Hardness{}.Constraints(wide, vars)
	require.NoError(t, err)

	// (8.8*10 + 6.1*90) / 100 = 6.37
	plan.set(entities.RefineFamily, a, jan, 10)
	plan.set(entities.RefineFamily, b, jan, 90)
	assert.Zero(t, plan.violated(cs))

	// (8.8*50 + 6.1*50) / 100 = 7.45
	plan.set(entities.RefineFamily, a, jan, 50)
	plan.set(entities.RefineFamily, b, jan, 50)
	assert.Equal(t, 1, plan.violated(cs))
}

func TestMinRefineAndDistinct(t *testing.T) {
	task := testhelpers.MustReferenceTask()
	vars := symbolic(task)
	a, _ := task.Material("A")
	b, _ := task.Material("B")
	jan := task.First()

	minRefine, _ := MinRefine{}.Constraints(task, vars)
	plan := newAssignment(vars)
	plan.set(entities.IsRefinedFamily, a, jan, 1)
	plan.set(entities.RefineFamily, a, jan, 19)
	assert.Equal(t, 1, plan.violated(minRefine))
	plan.set(entities.RefineFamily, a, jan, 20)
	assert.Zero(t, plan.violated(minRefine))

	params := entities.DefaultParameters()
	params.MaxDistinct = 1
	strict := testhelpers.MustReferenceTask(entities.WithParameters(params))
	distinct, _ := MaxDistinctMaterials{}.Constraints(strict, vars)
	assert.Zero(t, plan.violated(distinct))
	plan.set(entities.IsRefinedFamily, b, jan, 1)
	assert.Equal(t, 1, plan.violated(distinct))
}

func TestDependency(t *testing.T) {
	params := entities.DefaultParameters()
	params.Dependencies = []entities.DependencyRule{
		{Prerequisites: []entities.MaterialName{"A"}, Dependent: "B"},
	}
	task := testhelpers.MustReferenceTask(entities.WithParameters(params))
	vars := symbolic(task)
	a, _ := task.Material("A")
	b, _ := task.Material("B")
	jan := task.First()

	cs, err := Dependency{}.Constraints(task, vars)
	require.NoError(t, err)
	require.Len(t, cs, 2)

	plan := newAssignment(vars)
	plan.set(entities.IsRefinedFamily, b, jan, 1)
	assert.Zero(t, plan.violated(cs), "dependent alone is allowed")

	plan.set(entities.IsRefinedFamily, a, jan, 1)
	plan.set(entities.IsRefinedFamily, b, jan, 0)
	assert.Equal(t, 1, plan.violated(cs))

	// no rules, no rows
	cs, err = Dependency{}.Constraints(testhelpers.MustReferenceTask(), vars)
	require.NoError(t, err)
	assert.Empty(t, cs)
}

func TestRegistry(t *testing.T) {
	gens := All(DefaultEps)
	require.Len(t, gens, len(Names()))
	for i, g := range gens {
		assert.Equal(t, Names()[i], g.Name())
	}

	_, err := ByName("no_such_rule", 0)
	assert.Error(t, err)

	selected, err := Select([]string{HardnessName, StockTransitionName}, 0)
	require.NoError(t, err)
	assert.Equal(t, HardnessName, selected[0].Name())
	assert.Equal(t, StockTransition{Eps: 0}, selected[1])

	_, err = Select([]string{HardnessName, HardnessName}, 0)
	assert.Error(t, err)
}
