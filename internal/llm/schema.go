package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildAnalysisJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a generic map.
// It is sent as the structured output constraint and used locally to validate.
func BuildAnalysisJSONSchema() map[string]any {
	money := map[string]any{"type": "number"}
	transaction := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"date":        map[string]any{"type": "string", "minLength": 1},
			"description": map[string]any{"type": "string", "minLength": 1},
			"amount":      money,
			"category":    map[string]any{"type": "string"},
			"type":        map[string]any{"type": "string", "enum": []string{TxIncome, TxExpense}},
		},
		"required": []string{"date", "description", "amount", "type"},
	}
	category := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":       map[string]any{"type": "string"},
			"amount":     money,
			"percentage": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
		},
		"required": []string{"name", "amount"},
	}
	score := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"score":  map[string]any{"type": "number", "minimum": 0, "maximum": 100},
			"status": map[string]any{"type": "string", "enum": []string{StatusExcellent, StatusGood, StatusFair, StatusPoor}},
			"metrics": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"savingsRate":         money,
					"expenseDistribution": money,
					"incomeStability":     money,
					"debtToIncome":        money,
				},
			},
			"recommendations": map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
		},
		"required": []string{"score", "status"},
	}
	month := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"month":   map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}$`},
			"income":  money,
			"expense": money,
			"savings": money,
		},
		"required": []string{"month"},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"transactions": map[string]any{"type": "array", "items": transaction},
			"summary": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"totalIncome":  money,
					"totalExpense": money,
					"netSavings":   money,
				},
			},
			"categories":     map[string]any{"type": "array", "items": category},
			"financialScore": score,
			"monthlyData":    map[string]any{"type": "array", "items": month},
			"documentType":   map[string]any{"type": "string"},
		},
		"required": []string{"transactions"},
	}
}

var analysisSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return CompileSchema(BuildAnalysisJSONSchema())
})

// CompileSchema compiles a schema map.
func CompileSchema(schemaMap map[string]any) (*jsonschema.Schema, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// ValidateAnalysisJSON validates data against the analysis schema.
func ValidateAnalysisJSON(data []byte) error {
	schema, err := analysisSchema()
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
