package config

import (
	"fmt"
	"strings"
)

// ConfigurationError represents a structured error that occurred while
// loading one configuration file.
type ConfigurationError struct {
	FilePath  string
	FileName  string
	Category  string
	ErrorType string
	Message   string
}

func (ce ConfigurationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", ce.Category, ce.FileName, ce.Message)
}

// ConfigurationErrorCollection holds every error encountered loading a
// directory of configuration files; individual bad files don't abort the load.
type ConfigurationErrorCollection struct {
	Errors []ConfigurationError
}

func (cec ConfigurationErrorCollection) Error() string {
	if len(cec.Errors) == 0 {
		return "no configuration errors"
	}
	if len(cec.Errors) == 1 {
		return cec.Errors[0].Error()
	}
	return fmt.Sprintf("%d configuration errors: %s (and %d more)",
		len(cec.Errors), cec.Errors[0].Error(), len(cec.Errors)-1)
}

func (cec *ConfigurationErrorCollection) HasErrors() bool {
	return len(cec.Errors) > 0
}

func (cec *ConfigurationErrorCollection) Add(err ConfigurationError) {
	cec.Errors = append(cec.Errors, err)
}

func (cec *ConfigurationErrorCollection) GetSummary() string {
	if len(cec.Errors) == 0 {
		return "No configuration errors"
	}
	parts := make([]string, 0, len(cec.Errors)+1)
	parts = append(parts, fmt.Sprintf("Configuration Error Summary (%d total errors):", len(cec.Errors)))
	for _, err := range cec.Errors {
		parts = append(parts, "  - "+err.Error())
	}
	return strings.Join(parts, "\n")
}

func NewConfigurationErrorCollection() *ConfigurationErrorCollection {
	return &ConfigurationErrorCollection{Errors: make([]ConfigurationError, 0)}
}
