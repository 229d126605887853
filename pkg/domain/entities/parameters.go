package entities

import (
	"math"
	"slices"
)

// DependencyRule states that whenever every prerequisite is refined in a
// period, the dependent material must be refined in that period too.
type DependencyRule struct {
	Prerequisites []MaterialName
	Dependent     MaterialName
}

// Parameters holds the scalar planning parameters of a task
type Parameters struct {
	SellPrice      float64              // revenue per unit of refined product
	RefineCapacity map[Category]float64 // monthly refine limit per category
	MaxStorage     float64              // storage limit per material
	StorageCost    float64              // cost per unit held at the end of a period
	HardnessLower  float64
	HardnessUpper  float64
	InitialStock   float64 // stock of every material before the first period
	FinalStock     float64 // stock of every material required after the last period
	MinBatch       float64 // minimum refine volume of a material when it is used
	MaxDistinct    int     // maximum materials refined in one period
	BigM           float64
	Dependencies   []DependencyRule
}

// DefaultParameters returns the parameters of the reference blending
// problem. Dependency rules are data and start empty.
func DefaultParameters() Parameters {
	return Parameters{
		SellPrice: 150,
		RefineCapacity: map[Category]float64{
			Primary:   200,
			Secondary: 250,
		},
		MaxStorage:    1000,
		StorageCost:   5,
		HardnessLower: 3,
		HardnessUpper: 6,
		InitialStock:  500,
		FinalStock:    500,
		MinBatch:      20,
		MaxDistinct:   3,
		BigM:          250,
	}
}

// Validate checks parameter ranges. Material references in dependency
// rules are checked by BuildTask, which knows the material set.
func (p Parameters) Validate() error {
	nonNegative := []struct {
		field string
		value float64
	}{
		{"sell price", p.SellPrice},
		{"max storage", p.MaxStorage},
		{"storage cost", p.StorageCost},
		{"initial stock", p.InitialStock},
		{"final stock", p.FinalStock},
		{"min batch", p.MinBatch},
	}
	for _, v := range nonNegative {
		if math.IsNaN(v.value) || v.value < 0 {
			return newValidationError(v.field, "cannot be negative, got %v", v.value)
		}
	}

	if p.HardnessLower > p.HardnessUpper {
		return newValidationError("hardness bounds",
			"lower bound (%v) cannot exceed upper bound (%v)", p.HardnessLower, p.HardnessUpper)
	}
	if p.MaxDistinct < 0 {
		return newValidationError("max distinct", "cannot be negative, got %d", p.MaxDistinct)
	}
	if !(p.BigM > 0) {
		return newValidationError("big-M", "must be positive, got %v", p.BigM)
	}

	for _, c := range Categories() {
		capacity, ok := p.RefineCapacity[c]
		if !ok {
			return newValidationError("refine capacity", "missing capacity for category %s", c)
		}
		if math.IsNaN(capacity) || capacity < 0 {
			return newValidationError("refine capacity", "%s capacity cannot be negative, got %v", c, capacity)
		}
	}
	for c := range p.RefineCapacity {
		if !c.Valid() {
			return newValidationError("refine capacity", "unknown category %d", int(c))
		}
	}

	for i, rule := range p.Dependencies {
		if len(rule.Prerequisites) == 0 {
			return newValidationError("dependencies", "rule %d has no prerequisites", i+1)
		}
		if rule.Dependent == "" {
			return newValidationError("dependencies", "rule %d has no dependent material", i+1)
		}
	}

	return nil
}

// clone returns a deep copy so that a Task never shares mutable state
// with its caller.
func (p Parameters) clone() Parameters {
	out := p
	out.RefineCapacity = make(map[Category]float64, len(p.RefineCapacity))
	for k, v := range p.RefineCapacity {
		out.RefineCapacity[k] = v
	}
	out.Dependencies = make([]DependencyRule, len(p.Dependencies))
	for i, rule := range p.Dependencies {
		out.Dependencies[i] = DependencyRule{
			Prerequisites: slices.Clone(rule.Prerequisites),
			Dependent:     rule.Dependent,
		}
	}
	return out
}
