package services

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vsinha/blendplan/pkg/domain/entities"
)

// DatasetValidator checks that the loaded data covers a planning task
type DatasetValidator struct{}

// NewDatasetValidator creates a new dataset validator
func NewDatasetValidator() *DatasetValidator {
	return &DatasetValidator{}
}

// ValidationResult contains the results of dataset validation. Errors make
// the task unsolvable; Warnings describe data that is legal but likely
// unintended.
type ValidationResult struct {
	MissingPrices    []entities.PriceKey
	UnknownMaterials []entities.MaterialName
	DependencyCycles [][]entities.MaterialName
	Errors           []string
	Warnings         []string
}

// Valid reports whether the result carries no errors
func (r *ValidationResult) Valid() bool {
	return len(r.Errors) == 0
}

// Validate checks task against the full price table it was built from:
// every material needs a price in every period, price entries for
// unknown materials are reported, and cycles among dependency rules are
// flagged because they force the materials on the cycle to be refined
// together.
func (v *DatasetValidator) Validate(task *entities.Task, prices entities.MarketPrices) *ValidationResult {
	result := &ValidationResult{}

	for _, p := range task.Horizon() {
		for _, m := range task.Materials() {
			if _, err := task.Price(p, m.Name); err != nil {
				result.MissingPrices = append(result.MissingPrices, entities.PriceKey{Period: p, Material: m.Name})
			}
		}
	}
	if n := len(result.MissingPrices); n > 0 {
		first := result.MissingPrices[0]
		result.Errors = append(result.Errors,
			fmt.Sprintf("%d market prices missing, first for %s in %s", n, first.Material, first.Period))
	}

	for key := range prices {
		if _, ok := task.Material(key.Material); !ok && !slices.Contains(result.UnknownMaterials, key.Material) {
			result.UnknownMaterials = append(result.UnknownMaterials, key.Material)
		}
	}
	slices.Sort(result.UnknownMaterials)
	if len(result.UnknownMaterials) > 0 {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("prices given for unknown materials: %v", result.UnknownMaterials))
	}

	result.DependencyCycles = v.detectCycles(v.buildAdjacencyMap(task.Params().Dependencies))
	for _, cycle := range result.DependencyCycles {
		names := make([]string, len(cycle))
		for i, n := range cycle {
			names[i] = string(n)
		}
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("dependency cycle %s: these materials are only refined together", strings.Join(names, " -> ")))
	}

	return result
}

// buildAdjacencyMap creates a map of prerequisite -> dependent edges
func (v *DatasetValidator) buildAdjacencyMap(rules []entities.DependencyRule) map[entities.MaterialName][]entities.MaterialName {
	adjacencyMap := make(map[entities.MaterialName][]entities.MaterialName)
	for _, rule := range rules {
		for _, pre := range rule.Prerequisites {
			if !slices.Contains(adjacencyMap[pre], rule.Dependent) {
				adjacencyMap[pre] = append(adjacencyMap[pre], rule.Dependent)
			}
		}
	}
	return adjacencyMap
}

// detectCycles runs a DFS from every node in name order
func (v *DatasetValidator) detectCycles(adjacencyMap map[entities.MaterialName][]entities.MaterialName) [][]entities.MaterialName {
	nodes := make([]entities.MaterialName, 0, len(adjacencyMap))
	for n := range adjacencyMap {
		nodes = append(nodes, n)
	}
	slices.Sort(nodes)

	visited := make(map[entities.MaterialName]bool)
	onStack := make(map[entities.MaterialName]bool)
	var cycles [][]entities.MaterialName
	for _, n := range nodes {
		if !visited[n] {
			v.dfsDetectCycle(n, adjacencyMap, visited, onStack, nil, &cycles)
		}
	}
	return cycles
}

func (v *DatasetValidator) dfsDetectCycle(
	current entities.MaterialName,
	adjacencyMap map[entities.MaterialName][]entities.MaterialName,
	visited map[entities.MaterialName]bool,
	onStack map[entities.MaterialName]bool,
	path []entities.MaterialName,
	cycles *[][]entities.MaterialName,
) {
	visited[current] = true
	onStack[current] = true
	path = append(path, current)

	for _, next := range adjacencyMap[current] {
		if !visited[next] {
			v.dfsDetectCycle(next, adjacencyMap, visited, onStack, path, cycles)
			continue
		}
		if onStack[next] {
			start := slices.Index(path, next)
			cycle := append(slices.Clone(path[start:]), next)
			*cycles = append(*cycles, cycle)
		}
	}

	onStack[current] = false
}
