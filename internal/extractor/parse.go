package extractor

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lehigh-university-libraries/cardscanner/internal/models"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

const fieldsSchema = `{
  "type": "object",
  "properties": {
    "name":     {"$ref": "#/$defs/value"},
    "jobTitle": {"$ref": "#/$defs/value"},
    "company":  {"$ref": "#/$defs/value"},
    "email":    {"$ref": "#/$defs/value"},
    "phone":    {"$ref": "#/$defs/value"},
    "website":  {"$ref": "#/$defs/value"},
    "address":  {"$ref": "#/$defs/value"},
    "fullText": {"$ref": "#/$defs/value"}
  },
  "$defs": {
    "scalar": {"type": ["string", "number", "boolean", "null"]},
    "value": {
      "anyOf": [
        {"$ref": "#/$defs/scalar"},
        {"type": "array", "items": {"$ref": "#/$defs/scalar"}}
      ]
    }
  }
}`

var schema = jsonschema.MustCompileString("extracted-fields.json", fieldsSchema)

// stripFences removes markdown code fences a model may wrap around its JSON
func stripFences(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")
	return strings.TrimSpace(text)
}

// parseFields decodes a model response into ExtractedFields. Missing, null,
// or empty values become "". An error means the text was not a usable object.
func parseFields(text string) (models.ExtractedFields, error) {
	var doc any
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return models.ExtractedFields{}, fmt.Errorf("failed to decode fields JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return models.ExtractedFields{}, fmt.Errorf("fields JSON does not match schema: %w", err)
	}

	obj := doc.(map[string]any)
	return models.ExtractedFields{
		Name:     stringValue(obj["name"]),
		JobTitle: stringValue(obj["jobTitle"]),
		Company:  stringValue(obj["company"]),
		Email:    stringValue(obj["email"]),
		Phone:    stringValue(obj["phone"]),
		Website:  stringValue(obj["website"]),
		Address:  stringValue(obj["address"]),
		FullText: stringValue(obj["fullText"]),
	}, nil
}

// degraded keeps the raw answer when the model responded with non-JSON text
func degraded(raw string) models.ExtractedFields {
	return models.ExtractedFields{FullText: raw}
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s := stringValue(item); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
	return ""
}
