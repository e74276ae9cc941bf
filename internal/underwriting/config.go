package underwriting

// Config carries the underwriting policy constants.
type Config struct {
	// WindowMonths is the number of statement months a calculation needs.
	WindowMonths int
	// IncomeDebtRatio is applied to the income share in Method A.
	IncomeDebtRatio float64
	// IncomeShare is the portion of guaranteed income Method A considers.
	IncomeShare float64
	// ExpenseDebtRatio is applied to fixed expenses in Method B.
	ExpenseDebtRatio float64
	// AnnualRate is the nominal yearly rate used to discount the payment.
	AnnualRate float64
	// Periods is the loan term in months.
	Periods int
	// Tier thresholds on the free-flux percentage.
	TierLow    float64
	TierMedium float64
	// TierHigh is kept with the policy constants but no branch compares against it.
	TierHigh float64
	// CurrentDebt is subtracted from both estimation methods.
	CurrentDebt float64
}

// DefaultConfig returns the production policy.
func DefaultConfig() Config {
	return Config{
		WindowMonths:     3,
		IncomeDebtRatio:  0.20,
		IncomeShare:      0.5,
		ExpenseDebtRatio: 0.30,
		AnnualRate:       0.18,
		Periods:          60,
		TierLow:          0.30,
		TierMedium:       0.40,
		TierHigh:         0.60,
		CurrentDebt:      0,
	}
}

// MonthlyRate returns AnnualRate / 12.
func (c Config) MonthlyRate() float64 {
	return c.AnnualRate / 12
}
