package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// ExpectedMonths is the fixed statement window.
const ExpectedMonths = 3

// DefaultTolerance is the slack allowed when checking that income and expense
// splits add up to the month totals.
const DefaultTolerance = 1.0

// ErrMalformed marks assistant output that cannot be used for underwriting.
var ErrMalformed = errors.New("malformed extraction")

var requiredKeys = []string{"datos_generales", "resumen_mensual", "promedio_mensual"}

// Parse decodes the assistant's message text and checks the shape the calculator relies on.
func Parse(text string) (StatementExtraction, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return StatementExtraction{}, fmt.Errorf("%w: empty text", ErrMalformed)
	}

	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &top); err != nil {
		return StatementExtraction{}, fmt.Errorf("%w: parse: %v", ErrMalformed, err)
	}
	var missing []string
	for _, key := range requiredKeys {
		raw, ok := top[key]
		if !ok || len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return StatementExtraction{}, fmt.Errorf("%w: missing keys %s", ErrMalformed, strings.Join(missing, ","))
	}

	var out StatementExtraction
	if err := json.Unmarshal([]byte(trimmed), &out); err != nil {
		return StatementExtraction{}, fmt.Errorf("%w: decode: %v", ErrMalformed, err)
	}
	if len(out.Months) != ExpectedMonths {
		return StatementExtraction{}, fmt.Errorf("%w: expected %d monthly summaries, got %d", ErrMalformed, ExpectedMonths, len(out.Months))
	}
	return out, nil
}

// Discrepancy describes a month whose income or expense split disagrees with its totals.
type Discrepancy struct {
	Month    string
	Field    string
	Expected float64
	Actual   float64
}

// Discrepancies reports months where fixed+variable income differs from total credits,
// or fixed+variable expense differs from total debits, by more than tolerance.
func (s StatementExtraction) Discrepancies(tolerance float64) []Discrepancy {
	if tolerance < 0 {
		tolerance = 0
	}
	var out []Discrepancy
	for _, m := range s.Months {
		if got := m.Income.Total(); math.Abs(got-m.TotalCredits) > tolerance {
			out = append(out, Discrepancy{Month: m.Month, Field: "ingresos", Expected: m.TotalCredits, Actual: got})
		}
		if got := m.Expenses.Total(); math.Abs(got-m.TotalDebits) > tolerance {
			out = append(out, Discrepancy{Month: m.Month, Field: "gastos", Expected: m.TotalDebits, Actual: got})
		}
	}
	return out
}
