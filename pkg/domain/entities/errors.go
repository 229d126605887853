package entities

import "fmt"

// ValidationError reports a planning task or entity that cannot be built
// from the given inputs.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

func newValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// FormatError reports a period string that is not of the form YYYY/MM
type FormatError struct {
	Input  string
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("invalid period %q: %s", e.Input, e.Reason)
}

// LookupError reports a market price that is missing from the task's
// price table. Prices are never defaulted.
type LookupError struct {
	Period   Period
	Material MaterialName
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("no market price for material %s in period %s", e.Material, e.Period)
}

// UnsoundBigMWarning reports a big-M constant that does not dominate the
// refine volume a single material can reach in one period.
type UnsoundBigMWarning struct {
	BigM     float64
	Category Category
	Capacity float64
}

func (w *UnsoundBigMWarning) Error() string {
	return fmt.Sprintf(
		"big-M %.4g is below the %s refine capacity %.4g; the refine indicator linkage may cut feasible plans",
		w.BigM, w.Category, w.Capacity,
	)
}
