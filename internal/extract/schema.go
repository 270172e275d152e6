package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// BuildReportJSONSchema returns a JSON-Schema (draft 2020-12 subset) as a
// generic map. The report payload is checked against it before the relay
// fires, so a malformed submission never leaves the process.
func BuildReportJSONSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"ein":                  map[string]any{"type": "string", "pattern": `^\d{2}-\d{7}$`},
			"ssn":                  map[string]any{"type": "string", "pattern": `^\d{3}-\d{2}-\d{4}$`},
			"wages":                map[string]any{"type": "number", "minimum": 0.0},
			"federal_tax_withheld": map[string]any{"type": "number", "minimum": 0.0},
		},
		"required": []string{"ein", "ssn", "wages", "federal_tax_withheld"},
	}
}

// ValidateJSONAgainstSchema validates "data" against "schemaMap".
func ValidateJSONAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
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

// ValidateReportPayload marshals the fields and checks them against the
// report schema. Returns the payload bytes ready for submission.
func ValidateReportPayload(f Fields) ([]byte, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("marshal fields: %w", err)
	}
	if err := ValidateJSONAgainstSchema(BuildReportJSONSchema(), data); err != nil {
		return nil, err
	}
	return data, nil
}
