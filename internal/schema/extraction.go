package schema

import (
	"github.com/google/jsonschema-go/jsonschema"
)

// ExtractionSchema builds the structured-output schema the oracle fills in.
// OpenAI strict mode requires every property listed in required and
// additionalProperties set to false, so each field is required but nullable
// instead of optional.
//
// See https://platform.openai.com/docs/guides/structured-outputs
func ExtractionSchema() *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(Fields))
	required := make([]string, 0, len(Fields))
	for _, f := range Fields {
		props[f.Path] = &jsonschema.Schema{
			Types:       []string{propertyType(f.Kind), "null"},
			Description: propertyDescription(f),
		}
		required = append(required, f.Path)
	}
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           props,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}}, // false schema
	}
}

func propertyType(k FieldKind) string {
	if k == KindInteger {
		return "integer"
	}
	return "string"
}

func propertyDescription(f FieldSpec) string {
	switch f.Kind {
	case KindDate:
		return f.Prompt + ", formatted as YYYY-MM-DD"
	case KindEnum:
		d := f.Prompt + ", one of:"
		for i, v := range f.Enum {
			if i > 0 {
				d += " or"
			}
			d += " " + v
		}
		return d
	default:
		return f.Prompt
	}
}
