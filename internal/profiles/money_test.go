package profiles

import (
	"math"
	"testing"
)

func TestToMoneyRoundsToCents(t *testing.T) {
	if got := toMoney(1234.5678).String(); got != "1234.57" {
		t.Fatalf("toMoney = %s, want 1234.57", got)
	}
	if got := roundMoney(39380.2961); got != 39380.3 {
		t.Fatalf("roundMoney = %v, want 39380.3", got)
	}
}

func TestToMoneyNonFiniteIsZero(t *testing.T) {
	for _, v := range []float64{math.Inf(1), math.Inf(-1), math.NaN()} {
		if got := toMoney(v); !got.IsZero() {
			t.Fatalf("toMoney(%v) = %s, want 0", v, got)
		}
	}
}
