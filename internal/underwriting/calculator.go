package underwriting

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Engineering-Club-Cash-In/universe-sub004/internal/extraction"
)

// ErrWindowSize is returned when the extraction does not cover exactly the configured months.
var ErrWindowSize = errors.New("statement window size mismatch")

// Tier is the risk bucket derived from the free-flux percentage.
type Tier string

const (
	TierHighRisk     Tier = "high"
	TierMediumRisk   Tier = "medium"
	TierLowRisk      Tier = "low"
	TierUndetermined Tier = "undetermined"
)

// Result is the outcome of one underwriting calculation.
type Result struct {
	MinPayment           float64
	MaxPayment           float64
	MaxAdjustedPayment   float64
	MaximumCredit        float64
	Tier                 Tier
	PercentageOfFreeFlux float64
	GuaranteedIncome     float64
	FixedExpenses        float64
	FreeFlux             float64
	MethodA              float64
	MethodB              float64
	ManualReview         bool
	ComputedAt           time.Time
}

// Calculator turns a statement extraction into payment capacity figures.
type Calculator struct {
	Config Config
	Now    func() time.Time
}

// NewCalculator builds a calculator; a zero Config falls back to DefaultConfig.
func NewCalculator(cfg Config) *Calculator {
	if cfg.WindowMonths == 0 {
		cfg = DefaultConfig()
	}
	return &Calculator{Config: cfg, Now: time.Now}
}

// Calculate runs the three estimation methods and the maximum-credit valuation.
func (c *Calculator) Calculate(ex extraction.StatementExtraction) (Result, error) {
	cfg := c.Config
	if len(ex.Months) != cfg.WindowMonths {
		return Result{}, fmt.Errorf("%w: got %d months, want %d", ErrWindowSize, len(ex.Months), cfg.WindowMonths)
	}

	var credits, debits float64
	for _, m := range ex.Months {
		credits += m.TotalCredits
		debits += m.TotalDebits
	}
	months := float64(cfg.WindowMonths)
	res := Result{
		GuaranteedIncome: credits / months,
		FixedExpenses:    debits / months,
	}
	res.FreeFlux = res.GuaranteedIncome - res.FixedExpenses

	if res.GuaranteedIncome <= 0 {
		res.ManualReview = true
		res.Tier = TierUndetermined
	} else {
		res.PercentageOfFreeFlux = res.FreeFlux / res.GuaranteedIncome
		res.Tier = cfg.tierFor(res.PercentageOfFreeFlux)
	}

	res.MethodA = cfg.IncomeDebtRatio*(res.GuaranteedIncome*cfg.IncomeShare) - cfg.CurrentDebt
	res.MethodB = cfg.ExpenseDebtRatio*res.FixedExpenses - cfg.CurrentDebt
	res.MinPayment = math.Min(res.MethodA, res.MethodB)
	res.MaxPayment = math.Max(res.MethodA, res.MethodB)
	res.MaxAdjustedPayment = (res.FreeFlux + res.MethodA + res.MethodB) / 3
	res.MaximumCredit = PresentValue(cfg.MonthlyRate(), cfg.Periods, res.MethodA, 0, EndOfPeriod)
	if !res.finite() {
		res = Result{ManualReview: true, Tier: TierUndetermined}
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	res.ComputedAt = now().UTC()
	return res, nil
}

func (r Result) finite() bool {
	for _, v := range []float64{
		r.GuaranteedIncome, r.FixedExpenses, r.FreeFlux, r.PercentageOfFreeFlux,
		r.MethodA, r.MethodB, r.MinPayment, r.MaxPayment, r.MaxAdjustedPayment, r.MaximumCredit,
	} {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			return false
		}
	}
	return true
}

func (c Config) tierFor(pct float64) Tier {
	switch {
	case pct < c.TierLow:
		return TierHighRisk
	case pct < c.TierMedium:
		return TierMediumRisk
	default:
		return TierLowRisk
	}
}
