package extraction

// SchemaName is the name the strict response format is registered under.
const SchemaName = "credit_record"

// Instructions is sent both as the assistant's instructions and as the user
// message that accompanies the three statements.
const Instructions = `Eres un analista de capacidad de pago para una financiera que otorga créditos para la compra de vehículos. Analiza los estados de cuenta bancarios del solicitante y extrae la información necesaria para evaluar su capacidad de pago. Responde únicamente en JSON con estos campos:

1. datos_generales: nombre_cuentahabiente (nombre completo), numero_cuenta, tipo_cuenta (monetaria, ahorros, etc.).

2. resumen_mensual: un objeto por cada mes con
   - mes: nombre del mes (ej. "Febrero 2024")
   - saldo_inicial, total_debitos, total_creditos, saldo_final
   - ingresos: { fijos (sueldos, rentas), variables (bonos, comisiones) }. ingresos.fijos + ingresos.variables debe ser igual a total_creditos.
   - gastos: { fijos (renta, membresías), variables (compras, pagos móviles) }. gastos.fijos + gastos.variables debe ser igual a total_debitos.

3. promedio_mensual: promedio_ingresos_fijos, promedio_ingresos_variables, promedio_gastos_fijos, promedio_gastos_variables y disponibilidad_economica, calculada como el promedio de total_creditos de los 3 meses menos el promedio de total_debitos de los 3 meses.

Verifica que los montos cuadren antes de responder.`

func number() map[string]any { return map[string]any{"type": "number"} }
func str() map[string]any    { return map[string]any{"type": "string"} }

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
		"required":             required,
	}
}

func fixedPairSchema() map[string]any {
	return object([]string{"fijos", "variables"}, map[string]any{
		"fijos":     number(),
		"variables": number(),
	})
}

// Schema returns the JSON schema of StatementExtraction in the form expected by
// a strict json_schema response format.
func Schema() map[string]any {
	general := object(
		[]string{"nombre_cuentahabiente", "numero_cuenta", "tipo_cuenta"},
		map[string]any{
			"nombre_cuentahabiente": str(),
			"numero_cuenta":         str(),
			"tipo_cuenta":           str(),
		},
	)
	month := object(
		[]string{"mes", "saldo_inicial", "total_debitos", "total_creditos", "saldo_final", "ingresos", "gastos"},
		map[string]any{
			"mes":            str(),
			"saldo_inicial":  number(),
			"total_debitos":  number(),
			"total_creditos": number(),
			"saldo_final":    number(),
			"ingresos":       fixedPairSchema(),
			"gastos":         fixedPairSchema(),
		},
	)
	averages := object(
		[]string{
			"promedio_ingresos_fijos",
			"promedio_ingresos_variables",
			"promedio_gastos_fijos",
			"promedio_gastos_variables",
			"disponibilidad_economica",
		},
		map[string]any{
			"promedio_ingresos_fijos":     number(),
			"promedio_ingresos_variables": number(),
			"promedio_gastos_fijos":       number(),
			"promedio_gastos_variables":   number(),
			"disponibilidad_economica":    number(),
		},
	)
	return object(
		[]string{"datos_generales", "resumen_mensual", "promedio_mensual"},
		map[string]any{
			"datos_generales":  general,
			"resumen_mensual":  map[string]any{"type": "array", "items": month},
			"promedio_mensual": averages,
		},
	)
}
