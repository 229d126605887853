package testing

import (
	"github.com/vsinha/blendplan/pkg/domain/entities"
	"github.com/vsinha/blendplan/pkg/infrastructure/repositories/memory"
)

// Reference horizon of the two-material scenario
var (
	ReferenceFirst = entities.MustPeriod(2024, 1)
	ReferenceLast  = entities.MustPeriod(2024, 2)
)

// BuildReferenceScenario builds the two-material, two-period blending
// scenario: A (PRIMARY, hardness 8.8) and B (SECONDARY, hardness 6.1)
// over 2024/01..2024/02 with prices A=100/110 and B=120/130.
func BuildReferenceScenario() (*memory.MaterialRepository, *memory.PriceRepository) {
	materialRepo := memory.NewMaterialRepository(2)
	priceRepo := memory.NewPriceRepository()

	materials := []*entities.Material{
		{Name: "A", Category: entities.Primary, Hardness: 8.8},
		{Name: "B", Category: entities.Secondary, Hardness: 6.1},
	}
	if err := materialRepo.LoadMaterials(materials); err != nil {
		panic(err)
	}

	jan, feb := ReferenceFirst, ReferenceLast
	priceRepo.SetPrice(jan, "A", 100)
	priceRepo.SetPrice(feb, "A", 110)
	priceRepo.SetPrice(jan, "B", 120)
	priceRepo.SetPrice(feb, "B", 130)

	return materialRepo, priceRepo
}

// ReferenceTask builds the reference scenario task with default
// parameters unless opts replace them.
func ReferenceTask(opts ...entities.TaskOption) (*entities.Task, error) {
	materialRepo, priceRepo := BuildReferenceScenario()
	materials, err := materialRepo.GetAllMaterials()
	if err != nil {
		return nil, err
	}
	prices, err := priceRepo.GetMarketPrices()
	if err != nil {
		return nil, err
	}
	return entities.BuildTask(ReferenceFirst, ReferenceLast, materials, prices, opts...)
}

// MustReferenceTask is ReferenceTask for test setup
func MustReferenceTask(opts ...entities.TaskOption) *entities.Task {
	task, err := ReferenceTask(opts...)
	if err != nil {
		panic(err)
	}
	return task
}

// BuildOilScenario builds the five-oil, six-month blending dataset: two
// vegetable and three non-vegetable oils priced January to June 2024.
func BuildOilScenario() (*memory.MaterialRepository, *memory.PriceRepository) {
	materialRepo := memory.NewMaterialRepository(5)
	priceRepo := memory.NewPriceRepository()

	materials := []*entities.Material{
		{Name: "VEG 1", Category: entities.Primary, Hardness: 8.8},
		{Name: "VEG 2", Category: entities.Primary, Hardness: 6.1},
		{Name: "OIL 1", Category: entities.Secondary, Hardness: 2.0},
		{Name: "OIL 2", Category: entities.Secondary, Hardness: 4.2},
		{Name: "OIL 3", Category: entities.Secondary, Hardness: 5.0},
	}
	if err := materialRepo.LoadMaterials(materials); err != nil {
		panic(err)
	}

	table := [][]float64{
		{110, 120, 130, 110, 115},
		{130, 130, 110, 90, 115},
		{110, 140, 130, 100, 95},
		{120, 110, 120, 120, 125},
		{100, 120, 150, 110, 105},
		{90, 100, 140, 80, 135},
	}
	period := entities.MustPeriod(2024, 1)
	for _, row := range table {
		for i, price := range row {
			priceRepo.SetPrice(period, materials[i].Name, price)
		}
		period = period.Next()
	}

	return materialRepo, priceRepo
}

// OilFirst is the first period of the oil scenario
var OilFirst = entities.MustPeriod(2024, 1)

// OilDependencies are the dependency rules shipped with the oil dataset
func OilDependencies() []entities.DependencyRule {
	return []entities.DependencyRule{
		{Prerequisites: []entities.MaterialName{"VEG 1"}, Dependent: "OIL 3"},
		{Prerequisites: []entities.MaterialName{"VEG 2"}, Dependent: "OIL 3"},
	}
}

// OilTask builds the oil scenario task from January up to last
func OilTask(last entities.Period, opts ...entities.TaskOption) (*entities.Task, error) {
	materialRepo, priceRepo := BuildOilScenario()
	materials, err := materialRepo.GetAllMaterials()
	if err != nil {
		return nil, err
	}
	prices, err := priceRepo.GetMarketPrices()
	if err != nil {
		return nil, err
	}
	return entities.BuildTask(OilFirst, last, materials, prices, opts...)
}
