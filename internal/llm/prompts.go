package llm

import "github.com/Engineering-Club-Cash-In/universe-sub004/internal/extraction"

const (
	DefaultModel         = "gpt-4o"
	AnalystName          = "Analista de capacidad de pago y evaluador de crédito"
	AnalystDescription   = "Analiza los estados de cuenta bancarios y responde en formato JSON"
	StatementFilePattern = "statement_%d.pdf"
)

// AnalystSpec returns the assistant registered at startup for statement analysis.
func AnalystSpec(model string) AssistantSpec {
	if model == "" {
		model = DefaultModel
	}
	return AssistantSpec{
		Model:        model,
		Name:         AnalystName,
		Description:  AnalystDescription,
		Instructions: extraction.Instructions,
		SchemaName:   extraction.SchemaName,
		Schema:       extraction.Schema(),
	}
}
