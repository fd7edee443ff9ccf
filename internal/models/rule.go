package models

// Rules are read-only configuration loaded once at startup. Matching is
// exact equality against the lower-cased inbound text; the only supported
// operand is "=".

const (
	RuleOperandEquals = "="

	ActionTypeHandler = "ruleMethod"
)

type Rule struct {
	Value   string       `json:"value"`
	Operand string       `json:"operand"`
	Enabled bool         `json:"enabled"`
	Actions []RuleAction `json:"actions"`
}

type RuleAction struct {
	Type   string         `json:"type"`
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}
