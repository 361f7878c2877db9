package models

// StatementData is the structured result extracted from one bank statement.
// JSON keys are Portuguese because they are the exact schema the model is
// instructed to return; the payload is stored and exported as-is.
type StatementData struct {
	Bank           string                 `json:"banco"`
	Account        string                 `json:"conta,omitempty"`
	Period         string                 `json:"periodo"`
	OpeningBalance float64                `json:"saldo_inicial"`
	ClosingBalance float64                `json:"saldo_final"`
	Transactions   []StatementTransaction `json:"transacoes"`
	Error          string                 `json:"erro,omitempty"`
}

// StatementTransaction is a single extracted statement line. Tipo is
// "débito" or "crédito".
type StatementTransaction struct {
	Date        string  `json:"data"`
	Description string  `json:"descricao"`
	Amount      float64 `json:"valor"`
	Type        string  `json:"tipo"`
	TaxCategory *string `json:"categoria_fiscal"`
}
