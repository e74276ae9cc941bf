package extraction

// StatementExtraction is the structured summary the analyst assistant returns for
// three bank statements. JSON keys are fixed by the assistant's strict schema.
type StatementExtraction struct {
	General  GeneralData      `json:"datos_generales"`
	Months   []MonthlySummary `json:"resumen_mensual"`
	Averages MonthlyAverages  `json:"promedio_mensual"`
}

// GeneralData identifies the account the statements belong to.
type GeneralData struct {
	AccountHolder string `json:"nombre_cuentahabiente"`
	AccountNumber string `json:"numero_cuenta"`
	AccountType   string `json:"tipo_cuenta"`
}

// MonthlySummary holds the totals of one statement month.
type MonthlySummary struct {
	Month          string    `json:"mes"`
	OpeningBalance float64   `json:"saldo_inicial"`
	TotalDebits    float64   `json:"total_debitos"`
	TotalCredits   float64   `json:"total_creditos"`
	ClosingBalance float64   `json:"saldo_final"`
	Income         FixedPair `json:"ingresos"`
	Expenses       FixedPair `json:"gastos"`
}

// FixedPair splits an amount into its fixed and variable parts.
type FixedPair struct {
	Fixed    float64 `json:"fijos"`
	Variable float64 `json:"variables"`
}

// Total returns Fixed + Variable.
func (p FixedPair) Total() float64 {
	return p.Fixed + p.Variable
}

// MonthlyAverages are the assistant's own averages over the statement window.
type MonthlyAverages struct {
	AvgFixedIncome       float64 `json:"promedio_ingresos_fijos"`
	AvgVariableIncome    float64 `json:"promedio_ingresos_variables"`
	AvgFixedExpense      float64 `json:"promedio_gastos_fijos"`
	AvgVariableExpense   float64 `json:"promedio_gastos_variables"`
	EconomicAvailability float64 `json:"disponibilidad_economica"`
}
