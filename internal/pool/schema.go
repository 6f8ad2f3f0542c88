package pool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const schemaURL = "schema://question-pool.json"

// Definition is the JSON Schema of a question-pool document.
var Definition = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"year":    map[string]any{"type": "string", "description": "Default year for questions that omit one"},
		"subject": map[string]any{"type": "string", "description": "Default subject for questions that omit one"},
		"questions": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items":    map[string]any{"$ref": "#/$defs/question"},
		},
	},
	"required":             []any{"questions"},
	"additionalProperties": false,
	"$defs": map[string]any{
		"question": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":   map[string]any{"type": "integer", "minimum": 1},
				"text": map[string]any{"type": "string", "minLength": 1},
				"options": map[string]any{
					"type":     "array",
					"minItems": 2,
					"items": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"id":    map[string]any{"type": "string", "minLength": 1},
							"label": map[string]any{"type": "string"},
						},
						"required":             []any{"id", "label"},
						"additionalProperties": false,
					},
				},
				"correctAnswerIds": map[string]any{
					"type":        "array",
					"minItems":    1,
					"uniqueItems": true,
					"items":       map[string]any{"type": "string", "minLength": 1},
				},
				"hints": map[string]any{
					"type":  "array",
					"items": map[string]any{"type": "string", "minLength": 1},
				},
				"topic":      map[string]any{"type": "string", "minLength": 1},
				"difficulty": map[string]any{"enum": []any{"easy", "medium", "hard"}},
				"year":       map[string]any{"type": "string"},
				"subject":    map[string]any{"type": "string"},
			},
			"required":             []any{"id", "text", "options", "correctAnswerIds", "topic", "difficulty"},
			"additionalProperties": false,
		},
	},
}

var compiled = sync.OnceValues(compileSchema)

// compileSchema compiles Definition. The library expects a parsed JSON
// value, so the Go map is round-tripped through JSON first.
func compileSchema() (*jsonschema.Schema, error) {
	defBytes, err := json.Marshal(Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(defBytes))
	if err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	sch, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}
	return sch, nil
}

// validateSchema checks raw against Definition.
func validateSchema(raw []byte) error {
	sch, err := compiled()
	if err != nil {
		return err
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return &ImportError{Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := sch.Validate(doc); err != nil {
		return &ImportError{Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}
