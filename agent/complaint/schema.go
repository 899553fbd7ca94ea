package complaint

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	contractx "github.com/tanpawarit/civic-chat/agent/contract"
)

const extractionSchema = `{
  "type": "object",
  "properties": {
    "criticidad":  {"type": ["string", "null"]},
    "criticality": {"type": ["string", "null"]},
    "city":        {"type": ["string", "null"]},
    "ciudad":      {"type": ["string", "null"]},
    "address":     {"type": ["string", "null"]},
    "direccion":   {"type": ["string", "null"]},
    "lat":         {"type": ["number", "string", "null"]},
    "lon":         {"type": ["number", "string", "null"]},
    "contenido":   {"type": ["string", "null"]},
    "content":     {"type": ["string", "null"]},
    "categoria":   {"type": ["string", "null"]},
    "category":    {"type": ["string", "null"]},
    "origen":      {"type": ["string", "null"]},
    "origin":      {"type": ["string", "null"]},
    "etiquetas":   {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "tags":        {"type": ["array", "string", "null"], "items": {"type": "string"}},
    "location": {
      "type": ["object", "string", "null"],
      "properties": {
        "city":    {"type": ["string", "null"]},
        "address": {"type": ["string", "null"]},
        "lat":     {"type": ["number", "string", "null"]},
        "lon":     {"type": ["number", "string", "null"]}
      }
    }
  }
}`

type schemaValidator struct {
	schema *gojsonschema.Schema
}

func newSchemaValidator() (*schemaValidator, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(extractionSchema))
	if err != nil {
		return nil, fmt.Errorf("compile complaint extraction schema: %w", err)
	}
	return &schemaValidator{schema: schema}, nil
}

func (v *schemaValidator) validate(raw string) error {
	result, err := v.schema.Validate(gojsonschema.NewStringLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", contractx.ErrSchemaViolation, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %s", contractx.ErrSchemaViolation, strings.Join(msgs, "; "))
	}
	return nil
}
