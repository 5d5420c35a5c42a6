package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"keydogger/internal/logging"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// ValidateConfig checks the values a schema cannot express.
func ValidateConfig(c *Config) error {
	var errs ValidationErrors

	if c.Version < 1 || c.Version > Version {
		errs = append(errs, ValidationError{
			Field:   "version",
			Message: fmt.Sprintf("unsupported version %d (current: %d)", c.Version, Version),
		})
	}

	if c.Input.Device != "" && !filepath.IsAbs(c.Input.Device) {
		errs = append(errs, ValidationError{
			Field:   "input.device",
			Message: fmt.Sprintf("must be an absolute path, got %q", c.Input.Device),
		})
	}

	if c.Output.Name == "" || len(c.Output.Name) >= 80 {
		errs = append(errs, ValidationError{
			Field:   "output.name",
			Message: "must be between 1 and 79 characters",
		})
	}

	if c.Abbreviations.File == "" && len(c.Abbreviations.Entries) == 0 {
		errs = append(errs, ValidationError{
			Field:   "abbreviations",
			Message: "no abbreviation file or entries configured",
		})
	}

	errs = append(errs, validateLogging(&c.Logging)...)

	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, ValidationError{
			Field:   "history.path",
			Message: "required when history is enabled",
		})
	}
	if c.History.RetentionDays < 0 {
		errs = append(errs, ValidationError{
			Field:   "history.retention_days",
			Message: "must not be negative",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func validateLogging(l *LoggingConfig) ValidationErrors {
	var errs ValidationErrors

	if _, err := logging.ParseLevel(l.Level); err != nil {
		errs = append(errs, ValidationError{Field: "logging.level", Message: err.Error()})
	}

	switch l.Format {
	case "text", "json":
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.format",
			Message: fmt.Sprintf("must be text or json, got %q", l.Format),
		})
	}

	switch l.Output {
	case "stderr", "stdout":
	case "file", "both":
		if l.FilePath == "" {
			errs = append(errs, ValidationError{
				Field:   "logging.file_path",
				Message: "required when logging to a file",
			})
		}
		if l.MaxSizeMB <= 0 {
			errs = append(errs, ValidationError{
				Field:   "logging.max_size_mb",
				Message: "must be positive",
			})
		}
	default:
		errs = append(errs, ValidationError{
			Field:   "logging.output",
			Message: fmt.Sprintf("must be stderr, stdout, file or both, got %q", l.Output),
		})
	}

	return errs
}
