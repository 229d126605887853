package entities

import (
	"slices"
)

// PriceKey addresses one entry of the market price table
type PriceKey struct {
	Period   Period
	Material MaterialName
}

// MarketPrices maps (period, material) to the purchase price per unit
type MarketPrices map[PriceKey]float64

// Task is the immutable aggregate of everything needed to formulate a
// blending plan: the horizon, the materials, the price table and the
// scalar parameters.
type Task struct {
	horizon   []Period
	materials []Material
	byName    map[MaterialName]int
	prices    MarketPrices
	params    Parameters
}

// TaskOption customises BuildTask
type TaskOption func(*Parameters)

// WithParameters replaces the default parameters
func WithParameters(p Parameters) TaskOption {
	return func(dst *Parameters) {
		*dst = p.clone()
	}
}

// BuildTask creates a validated Task covering first..last inclusive.
// Market price completeness is not checked here; Price reports a
// LookupError for the first missing pair that is requested.
func BuildTask(first, last Period, materials []Material, prices MarketPrices, opts ...TaskOption) (*Task, error) {
	if first.After(last) {
		return nil, newValidationError("horizon", "first period %s is after last period %s", first, last)
	}

	params := DefaultParameters()
	for _, opt := range opts {
		opt(&params)
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}

	byName := make(map[MaterialName]int, len(materials))
	for i, m := range materials {
		if _, err := NewMaterial(m.Name, m.Category, m.Hardness); err != nil {
			return nil, newValidationError("materials", "%v", err)
		}
		if _, exists := byName[m.Name]; exists {
			return nil, newValidationError("materials", "duplicate material name %s", m.Name)
		}
		byName[m.Name] = i
	}

	for i, rule := range params.Dependencies {
		for _, name := range append(slices.Clone(rule.Prerequisites), rule.Dependent) {
			if _, ok := byName[name]; !ok {
				return nil, newValidationError("dependencies", "rule %d references unknown material %s", i+1, name)
			}
		}
	}

	horizon := []Period{first}
	for horizon[len(horizon)-1].Before(last) {
		horizon = append(horizon, horizon[len(horizon)-1].Next())
	}

	priceCopy := make(MarketPrices, len(prices))
	for k, v := range prices {
		priceCopy[k] = v
	}

	return &Task{
		horizon:   horizon,
		materials: slices.Clone(materials),
		byName:    byName,
		prices:    priceCopy,
		params:    params,
	}, nil
}

// Horizon returns the planning periods in order
func (t *Task) Horizon() []Period {
	return slices.Clone(t.horizon)
}

// First returns the first planning period
func (t *Task) First() Period {
	return t.horizon[0]
}

// Last returns the last planning period
func (t *Task) Last() Period {
	return t.horizon[len(t.horizon)-1]
}

// Materials returns the materials in declaration order
func (t *Task) Materials() []Material {
	return slices.Clone(t.materials)
}

// Material returns the material with the given name
func (t *Task) Material(name MaterialName) (Material, bool) {
	i, ok := t.byName[name]
	if !ok {
		return Material{}, false
	}
	return t.materials[i], true
}

// Price returns the market price of a material in a period
func (t *Task) Price(period Period, name MaterialName) (float64, error) {
	price, ok := t.prices[PriceKey{Period: period, Material: name}]
	if !ok {
		return 0, &LookupError{Period: period, Material: name}
	}
	return price, nil
}

// Params returns a copy of the scalar parameters
func (t *Task) Params() Parameters {
	return t.params.clone()
}

// RefineCapacity returns the monthly refine limit of a category
func (t *Task) RefineCapacity(c Category) float64 {
	return t.params.RefineCapacity[c]
}

// CheckBigM reports an UnsoundBigMWarning when big-M is smaller than the
// refine capacity of a category that has materials. A single material can
// be refined up to its category capacity in one period, so big-M must be
// at least that large for the indicator linkage to be exact.
func (t *Task) CheckBigM() error {
	for _, c := range Categories() {
		used := slices.ContainsFunc(t.materials, func(m Material) bool { return m.Category == c })
		if !used {
			continue
		}
		if capacity := t.params.RefineCapacity[c]; t.params.BigM < capacity {
			return &UnsoundBigMWarning{BigM: t.params.BigM, Category: c, Capacity: capacity}
		}
	}
	return nil
}
