package entities

import (
	"fmt"
	"math"
	"strings"
)

// MaterialName represents a unique raw material identifier
type MaterialName string

// Category groups materials that share a monthly refine capacity
type Category int

const (
	Primary Category = iota
	Secondary
)

// Categories returns every category in declaration order
func Categories() []Category {
	return []Category{Primary, Secondary}
}

// String method for Category enum
func (c Category) String() string {
	switch c {
	case Primary:
		return "PRIMARY"
	case Secondary:
		return "SECONDARY"
	default:
		return "Unknown"
	}
}

// Valid reports whether c is one of the declared categories
func (c Category) Valid() bool {
	return c == Primary || c == Secondary
}

// ParseCategory parses a category name. The vegetable/non-vegetable names
// of the oil dataset are accepted as aliases.
func ParseCategory(s string) (Category, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PRIMARY", "VEGETABLE":
		return Primary, nil
	case "SECONDARY", "NON_VEGETABLE":
		return Secondary, nil
	default:
		return Primary, fmt.Errorf("invalid category: %s (expected: PRIMARY or SECONDARY)", s)
	}
}

// MarshalText implements encoding.TextMarshaler
func (c Category) MarshalText() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("invalid category value %d", int(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Material is a raw material that can be bought, stored and refined
type Material struct {
	Name     MaterialName
	Category Category
	Hardness float64
}

// NewMaterial creates a validated Material
func NewMaterial(name MaterialName, category Category, hardness float64) (*Material, error) {
	if strings.TrimSpace(string(name)) == "" {
		return nil, fmt.Errorf("material name cannot be empty")
	}
	if !category.Valid() {
		return nil, fmt.Errorf("material %s has invalid category %d", name, int(category))
	}
	if math.IsNaN(hardness) || math.IsInf(hardness, 0) {
		return nil, fmt.Errorf("material %s hardness must be finite, got %v", name, hardness)
	}

	return &Material{
		Name:     name,
		Category: category,
		Hardness: hardness,
	}, nil
}
