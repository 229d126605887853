package services

import (
	"reflect"
	"strings"
	"testing"

	"github.com/vsinha/blendplan/pkg/domain/entities"
)

func buildTask(t *testing.T, prices entities.MarketPrices, deps []entities.DependencyRule) *entities.Task {
	t.Helper()
	params := entities.DefaultParameters()
	params.Dependencies = deps
	materials := []entities.Material{
		{Name: "A", Category: entities.Primary, Hardness: 4},
		{Name: "B", Category: entities.Secondary, Hardness: 5},
		{Name: "C", Category: entities.Secondary, Hardness: 6},
	}
	task, err := entities.BuildTask(entities.MustPeriod(2024, 1), entities.MustPeriod(2024, 2),
		materials, prices, entities.WithParameters(params))
	if err != nil {
		t.Fatalf("BuildTask failed: %v", err)
	}
	return task
}

func fullPrices() entities.MarketPrices {
	prices := entities.MarketPrices{}
	for _, p := range []entities.Period{entities.MustPeriod(2024, 1), entities.MustPeriod(2024, 2)} {
		for _, m := range []entities.MaterialName{"A", "B", "C"} {
			prices[entities.PriceKey{Period: p, Material: m}] = 100
		}
	}
	return prices
}

func TestDatasetValidator_Complete(t *testing.T) {
	prices := fullPrices()
	result := NewDatasetValidator().Validate(buildTask(t, prices, nil), prices)

	if !result.Valid() {
		t.Errorf("Expected valid dataset, got errors: %v", result.Errors)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("Expected no warnings, got %v", result.Warnings)
	}
}

func TestDatasetValidator_MissingPrices(t *testing.T) {
	prices := fullPrices()
	delete(prices, entities.PriceKey{Period: entities.MustPeriod(2024, 2), Material: "B"})
	delete(prices, entities.PriceKey{Period: entities.MustPeriod(2024, 1), Material: "C"})

	result := NewDatasetValidator().Validate(buildTask(t, prices, nil), prices)

	if result.Valid() {
		t.Fatal("Expected missing prices to be reported")
	}
	want := []entities.PriceKey{
		{Period: entities.MustPeriod(2024, 1), Material: "C"},
		{Period: entities.MustPeriod(2024, 2), Material: "B"},
	}
	if !reflect.DeepEqual(result.MissingPrices, want) {
		t.Errorf("Expected missing prices %v, got %v", want, result.MissingPrices)
	}
	if !strings.Contains(result.Errors[0], "2 market prices missing, first for C in 2024/01") {
		t.Errorf("Unexpected error message: %s", result.Errors[0])
	}
}

func TestDatasetValidator_UnknownMaterials(t *testing.T) {
	prices := fullPrices()
	prices[entities.PriceKey{Period: entities.MustPeriod(2024, 1), Material: "Z"}] = 90
	prices[entities.PriceKey{Period: entities.MustPeriod(2024, 2), Material: "Z"}] = 95

	result := NewDatasetValidator().Validate(buildTask(t, prices, nil), prices)

	if !result.Valid() {
		t.Errorf("Unknown materials should only warn, got errors: %v", result.Errors)
	}
	if !reflect.DeepEqual(result.UnknownMaterials, []entities.MaterialName{"Z"}) {
		t.Errorf("Expected unknown material Z, got %v", result.UnknownMaterials)
	}
}

func TestDatasetValidator_DependencyCycle(t *testing.T) {
	prices := fullPrices()
	deps := []entities.DependencyRule{
		{Prerequisites: []entities.MaterialName{"A"}, Dependent: "B"},
		{Prerequisites: []entities.MaterialName{"B"}, Dependent: "C"},
		{Prerequisites: []entities.MaterialName{"C"}, Dependent: "A"},
	}

	result := NewDatasetValidator().Validate(buildTask(t, prices, deps), prices)

	if len(result.DependencyCycles) != 1 {
		t.Fatalf("Expected one cycle, got %v", result.DependencyCycles)
	}
	want := []entities.MaterialName{"A", "B", "C", "A"}
	if !reflect.DeepEqual(result.DependencyCycles[0], want) {
		t.Errorf("Expected cycle %v, got %v", want, result.DependencyCycles[0])
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "A -> B -> C -> A") {
		t.Errorf("Unexpected warnings: %v", result.Warnings)
	}
}

func TestDatasetValidator_ChainIsNotCycle(t *testing.T) {
	prices := fullPrices()
	deps := []entities.DependencyRule{
		{Prerequisites: []entities.MaterialName{"A", "B"}, Dependent: "C"},
		{Prerequisites: []entities.MaterialName{"A"}, Dependent: "B"},
	}

	result := NewDatasetValidator().Validate(buildTask(t, prices, deps), prices)

	if len(result.DependencyCycles) != 0 {
		t.Errorf("Expected no cycles, got %v", result.DependencyCycles)
	}
}
