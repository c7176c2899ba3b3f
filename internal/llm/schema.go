package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// TranscriptionSchema is the minimum shape a transcription payload must have. Field types are
// loose on purpose; coercion happens afterwards.
func TranscriptionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"isRoster":          map[string]any{"type": []any{"boolean", "string", "null"}},
			"contentType":       map[string]any{"type": []any{"string", "null"}},
			"layoutDescription": map[string]any{"type": []any{"string", "null"}},
			"headers":           map[string]any{"type": []any{"array", "null"}},
			"rows":              map[string]any{"type": []any{"array", "null"}, "items": map[string]any{"type": []any{"array", "null"}}},
			"rawText":           map[string]any{"type": []any{"string", "null"}},
			"uncertainCells":    map[string]any{"type": []any{"array", "null"}},
			"metadata":          map[string]any{"type": []any{"object", "null"}},
		},
		"anyOf": []any{
			map[string]any{"required": []string{"rawText"}},
			map[string]any{"required": []string{"rows"}},
			map[string]any{"required": []string{"isRoster"}},
		},
	}
}

// AnalysisSchema gates the clarification-question payload.
func AnalysisSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"needsClarification": map[string]any{"type": []any{"boolean", "null"}},
			"questions":          map[string]any{"type": []any{"array", "null"}},
			"preAnalysis":        map[string]any{"type": []any{"object", "null"}},
		},
		"required": []string{"questions"},
	}
}

// ExtractionSchema gates the shift payload. A bare array of shifts is accepted too; malformed
// items are dropped during coercion.
func ExtractionSchema() map[string]any {
	return map[string]any{
		"oneOf": []any{
			map[string]any{
				"type": "object",
				"properties": map[string]any{
					"shifts":           map[string]any{"type": "array"},
					"identifiedPerson": map[string]any{"type": []any{"object", "null"}},
				},
				"required": []string{"shifts"},
			},
			map[string]any{"type": "array"},
		},
	}
}

var (
	compiledMu sync.Mutex
	compiled   = map[string]*jsonschema.Schema{}
)

func compile(name string, schemaMap map[string]any) (*jsonschema.Schema, error) {
	compiledMu.Lock()
	defer compiledMu.Unlock()
	if s, ok := compiled[name]; ok {
		return s, nil
	}
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(name, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	s, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	compiled[name] = s
	return s, nil
}

// ValidateJSONAgainstSchema validates data against the named schema. Compiled schemas are cached by name.
func ValidateJSONAgainstSchema(name string, schemaMap map[string]any, data []byte) error {
	schema, err := compile(name, schemaMap)
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
