package entities

import (
	"fmt"
	"strconv"
	"strings"
)

// Period represents one calendar month of the planning horizon.
// The zero value is not a valid period; use NewPeriod or ParsePeriod.
type Period struct {
	Year  int
	Month int
}

// NewPeriod creates a validated Period
func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, newValidationError("month", "must be between 1 and 12, got %d", month)
	}
	if year < 0 {
		return Period{}, newValidationError("year", "cannot be negative, got %d", year)
	}
	return Period{Year: year, Month: month}, nil
}

// MustPeriod is like NewPeriod but panics on invalid input. Intended for
// literals in tests and examples.
func MustPeriod(year, month int) Period {
	p, err := NewPeriod(year, month)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePeriod parses the canonical "YYYY/MM" form produced by String.
func ParsePeriod(s string) (Period, error) {
	yearPart, monthPart, ok := strings.Cut(s, "/")
	if !ok {
		return Period{}, &FormatError{Input: s, Reason: "expected YYYY/MM"}
	}
	if len(yearPart) < 4 || !isDigits(yearPart) {
		return Period{}, &FormatError{Input: s, Reason: "year must have at least four digits"}
	}
	if len(yearPart) > 4 && yearPart[0] == '0' {
		return Period{}, &FormatError{Input: s, Reason: "year wider than four digits cannot start with 0"}
	}
	if len(monthPart) != 2 || !isDigits(monthPart) {
		return Period{}, &FormatError{Input: s, Reason: "month must have exactly two digits"}
	}

	year, err := strconv.Atoi(yearPart)
	if err != nil {
		return Period{}, &FormatError{Input: s, Reason: err.Error()}
	}
	month, _ := strconv.Atoi(monthPart)
	if month < 1 || month > 12 {
		return Period{}, &FormatError{Input: s, Reason: fmt.Sprintf("month %d out of range [1,12]", month)}
	}

	return Period{Year: year, Month: month}, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// String returns the canonical "YYYY/MM" form
func (p Period) String() string {
	return fmt.Sprintf("%04d/%02d", p.Year, p.Month)
}

// index is the number of months since year 0, used for ordering.
func (p Period) index() int {
	return p.Year*12 + p.Month - 1
}

// Compare returns -1, 0 or +1 depending on whether p is before, equal to
// or after other.
func (p Period) Compare(other Period) int {
	switch a, b := p.index(), other.index(); {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Before reports whether p is strictly earlier than other
func (p Period) Before(other Period) bool {
	return p.Compare(other) < 0
}

// After reports whether p is strictly later than other
func (p Period) After(other Period) bool {
	return p.Compare(other) > 0
}

// Next returns the following month, rolling December over to January.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Year: p.Year + 1, Month: 1}
	}
	return Period{Year: p.Year, Month: p.Month + 1}
}

// Prev returns the preceding month, rolling January back to December.
// 0000/01 has no predecessor and is returned unchanged.
func (p Period) Prev() Period {
	if p.Month == 1 {
		if p.Year == 0 {
			return p
		}
		return Period{Year: p.Year - 1, Month: 12}
	}
	return Period{Year: p.Year, Month: p.Month - 1}
}

// MarshalText implements encoding.TextMarshaler
func (p Period) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (p *Period) UnmarshalText(text []byte) error {
	parsed, err := ParsePeriod(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
