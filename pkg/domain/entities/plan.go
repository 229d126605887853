package entities

// Plan exposes the four decision families of a blending plan, addressed
// by material and period. T is a solver variable handle while a model is
// being formulated and a float64 once it has been solved, so constraint
// and objective code is written once for both.
type Plan[T any] interface {
	Stock(m Material, p Period) T
	Purchase(m Material, p Period) T
	Refine(m Material, p Period) T
	IsRefined(m Material, p Period) T
}

// Family identifies one decision family of a Plan
type Family int

const (
	StockFamily Family = iota
	PurchaseFamily
	RefineFamily
	IsRefinedFamily
)

// Families returns every family in declaration order
func Families() []Family {
	return []Family{StockFamily, PurchaseFamily, RefineFamily, IsRefinedFamily}
}

// String method for Family enum
func (f Family) String() string {
	switch f {
	case StockFamily:
		return "stock"
	case PurchaseFamily:
		return "purchase"
	case RefineFamily:
		return "refine"
	case IsRefinedFamily:
		return "is_refined"
	default:
		return "unknown"
	}
}

type planKey struct {
	family   Family
	material MaterialName
	period   Period
}

// PlanTable is a map-backed Plan. Lookups of pairs that were never set
// return the zero value of T.
type PlanTable[T any] struct {
	values map[planKey]T
}

// NewPlanTable creates an empty table sized for a task
func NewPlanTable[T any](task *Task) *PlanTable[T] {
	size := 0
	if task != nil {
		size = len(task.horizon) * len(task.materials) * len(Families())
	}
	return &PlanTable[T]{values: make(map[planKey]T, size)}
}

// Verify interface compliance
var (
	_ Plan[float64] = (*PlanTable[float64])(nil)
	_ Plan[string]  = (*PlanTable[string])(nil)
)

// Set stores a value for one family, material and period
func (t *PlanTable[T]) Set(f Family, m Material, p Period, v T) {
	t.values[planKey{family: f, material: m.Name, period: p}] = v
}

// Get returns the value for one family, material and period
func (t *PlanTable[T]) Get(f Family, m Material, p Period) (T, bool) {
	v, ok := t.values[planKey{family: f, material: m.Name, period: p}]
	return v, ok
}

// Len returns the number of stored values across all families
func (t *PlanTable[T]) Len() int {
	return len(t.values)
}

// Stock returns the end-of-period stock entry
func (t *PlanTable[T]) Stock(m Material, p Period) T {
	v, _ := t.Get(StockFamily, m, p)
	return v
}

// Purchase returns the purchase entry
func (t *PlanTable[T]) Purchase(m Material, p Period) T {
	v, _ := t.Get(PurchaseFamily, m, p)
	return v
}

// Refine returns the refine entry
func (t *PlanTable[T]) Refine(m Material, p Period) T {
	v, _ := t.Get(RefineFamily, m, p)
	return v
}

// IsRefined returns the refine indicator entry
func (t *PlanTable[T]) IsRefined(m Material, p Period) T {
	v, _ := t.Get(IsRefinedFamily, m, p)
	return v
}

// MapPlan converts every entry of a table through fn, producing a table of
// another representation over the same keys.
func MapPlan[T, U any](src *PlanTable[T], fn func(f Family, m MaterialName, p Period, v T) (U, error)) (*PlanTable[U], error) {
	dst := &PlanTable[U]{values: make(map[planKey]U, len(src.values))}
	for k, v := range src.values {
		u, err := fn(k.family, k.material, k.period, v)
		if err != nil {
			return nil, err
		}
		dst.values[k] = u
	}
	return dst, nil
}
