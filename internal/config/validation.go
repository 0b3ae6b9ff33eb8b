package config

import (
	"fmt"
	"strings"
)

// ValidationError reports one rejected field on an upstream definition.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (ve ValidationError) Error() string {
	if ve.Field == "" {
		return ve.Message
	}
	return fmt.Sprintf("field '%s': %s", ve.Field, ve.Message)
}

// ValidationErrors collects every rejected field on one upstream definition
// so LoadUpstreams can report them all at once instead of stopping at the
// first.
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return "no validation errors"
	}
	if len(ve) == 1 {
		return ve[0].Error()
	}

	messages := make([]string, 0, len(ve))
	for _, err := range ve {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(messages, "; "))
}

func (ve ValidationErrors) HasErrors() bool {
	return len(ve) > 0
}

// Add appends a field-level error with an optional offending value.
func (ve *ValidationErrors) Add(field, message string, value ...interface{}) {
	var val interface{}
	if len(value) > 0 {
		val = value[0]
	}
	*ve = append(*ve, ValidationError{Field: field, Value: val, Message: message})
}

// ValidateRequired rejects an empty or whitespace-only field.
func ValidateRequired(field, value, entityType string) error {
	if strings.TrimSpace(value) == "" {
		return ValidationError{Field: field, Value: value, Message: fmt.Sprintf("is required for %s", entityType)}
	}
	return nil
}

// ValidateOneOf rejects a value outside the allowed set, e.g. an upstream's
// transport kind against the four transports the connector supports.
func ValidateOneOf(field, value string, allowed []string) error {
	for _, allowedValue := range allowed {
		if value == allowedValue {
			return nil
		}
	}
	return ValidationError{Field: field, Value: value, Message: fmt.Sprintf("must be one of: %s", strings.Join(allowed, ", "))}
}

// ValidateMinLength rejects a string shorter than minLength after trimming.
func ValidateMinLength(field, value string, minLength int) error {
	if len(strings.TrimSpace(value)) < minLength {
		return ValidationError{Field: field, Value: value, Message: fmt.Sprintf("must be at least %d characters long", minLength)}
	}
	return nil
}

// ValidateMaxLength rejects a string longer than maxLength.
func ValidateMaxLength(field, value string, maxLength int) error {
	if len(value) > maxLength {
		return ValidationError{Field: field, Value: value, Message: fmt.Sprintf("must not exceed %d characters", maxLength)}
	}
	return nil
}

// ValidateEntityName checks an upstream id against the conventions the
// registry relies on: non-empty, reasonably short, and free of spaces so it
// can appear unescaped in a URL path segment (/mcp/{upstreamId}) and in a
// derived namespace prefix.
func ValidateEntityName(name, entityType string) error {
	if err := ValidateRequired("name", name, entityType); err != nil {
		return err
	}
	if err := ValidateMinLength("name", name, 1); err != nil {
		return err
	}
	if err := ValidateMaxLength("name", name, 100); err != nil {
		return err
	}
	if strings.Contains(name, " ") {
		return ValidationError{Field: "name", Value: name, Message: "cannot contain spaces"}
	}
	return nil
}

// FormatValidationError wraps err with the entity type and name it was
// raised against, so a bad upstream file's error names the offending
// upstream rather than just the field.
func FormatValidationError(entityType, entityName string, err error) error {
	if err == nil {
		return nil
	}
	if entityName != "" {
		return fmt.Errorf("validation failed for %s '%s': %w", entityType, entityName, err)
	}
	return fmt.Errorf("validation failed for %s: %w", entityType, err)
}
