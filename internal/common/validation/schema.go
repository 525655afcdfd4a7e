package validation

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// Schema is a compiled JSON schema for worker input variables.
type Schema struct {
	compiled *gojsonschema.Schema
}

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Compile parses schemaJSON once so it can be reused across jobs.
func Compile(schemaJSON string) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Schema{compiled: compiled}, nil
}

// MustCompile is like Compile but panics on a malformed schema.
func MustCompile(schemaJSON string) *Schema {
	s, err := Compile(schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateJSON validates a raw JSON document, such as job variables.
func (s *Schema) ValidateJSON(doc string) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewStringLoader(doc))
}

// ValidateValue validates a Go value through its JSON encoding.
func (s *Schema) ValidateValue(v interface{}) (*ValidationResult, error) {
	return s.validate(gojsonschema.NewGoLoader(v))
}

func (s *Schema) validate(doc gojsonschema.JSONLoader) (*ValidationResult, error) {
	res, err := s.compiled.Validate(doc)
	if err != nil {
		return nil, fmt.Errorf("validate document: %w", err)
	}

	out := &ValidationResult{Valid: res.Valid()}
	for _, desc := range res.Errors() {
		out.Errors = append(out.Errors, ValidationError{
			Field:   fieldName(desc),
			Message: desc.Description(),
			Code:    errorCode(desc.Type()),
		})
	}
	return out, nil
}

// fieldName reports the offending property. gojsonschema attributes a
// missing required property to its parent, so the property name is taken
// from the error details instead.
func fieldName(desc gojsonschema.ResultError) string {
	field := desc.Field()
	if desc.Type() == "required" {
		if prop, ok := desc.Details()["property"].(string); ok {
			if field == gojsonschema.STRING_ROOT_SCHEMA_PROPERTY {
				return prop
			}
			return field + "." + prop
		}
	}
	return field
}

var errorCodes = map[string]string{
	"required":     "REQUIRED_FIELD_MISSING",
	"invalid_type": "INVALID_TYPE",
	"string_gte":   "MIN_LENGTH_VIOLATION",
	"string_lte":   "MAX_LENGTH_VIOLATION",
	"pattern":      "PATTERN_MISMATCH",
	"enum":         "INVALID_ENUM_VALUE",
	"number_gte":   "MINIMUM_VIOLATION",
	"number_lte":   "MAXIMUM_VIOLATION",

	"additional_property_not_allowed": "EXTRA_FIELD",
}

func errorCode(kind string) string {
	if code, ok := errorCodes[kind]; ok {
		return code
	}
	return strings.ToUpper(kind)
}

// GetErrorMessages returns a simple list of error messages
func (vr *ValidationResult) GetErrorMessages() []string {
	messages := make([]string, len(vr.Errors))
	for i, err := range vr.Errors {
		messages[i] = fmt.Sprintf("%s: %s", err.Field, err.Message)
	}
	return messages
}

// HasErrors checks if validation has errors for specific field
func (vr *ValidationResult) HasErrors(field string) bool {
	for _, err := range vr.Errors {
		if err.Field == field {
			return true
		}
	}
	return false
}

// GetErrorsForField returns errors for a specific field
func (vr *ValidationResult) GetErrorsForField(field string) []ValidationError {
	var fieldErrors []ValidationError
	for _, err := range vr.Errors {
		if err.Field == field || strings.HasPrefix(err.Field, field+".") {
			fieldErrors = append(fieldErrors, err)
		}
	}
	return fieldErrors
}
