package profiles

import (
	"database/sql"
	"math"

	"github.com/shopspring/decimal"
)

// Money columns are NUMERIC(14,2).
const moneyScale = 2

func toMoney(v float64) decimal.Decimal {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(v).Round(moneyScale)
}

func roundMoney(v float64) float64 {
	return toMoney(v).InexactFloat64()
}

func nullMoney(d decimal.NullDecimal) *float64 {
	if !d.Valid {
		return nil
	}
	v := d.Decimal.InexactFloat64()
	return &v
}

func nullString(s sql.NullString) string {
	if !s.Valid {
		return ""
	}
	return s.String
}
