package validation

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"failover-cache/internal/common/errors"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
)

// CronParser accepts standard five-field specs, an optional leading seconds
// field and descriptors such as "@every 1m". The sweep scheduler parses with
// the same parser so validation and scheduling never disagree.
var CronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// CentralizedValidator provides unified validation using go-playground/validator
type CentralizedValidator struct {
	validator *validator.Validate
}

// ValidationResult contains validation results with structured errors
type ValidationResult struct {
	Valid  bool
	Errors []ValidationError
}

// ValidationError represents a single validation error with context
type ValidationError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	Param   string `json:"param,omitempty"`
}

// NewCentralizedValidator creates a new centralized validator instance
func NewCentralizedValidator() *CentralizedValidator {
	v := validator.New()

	registerCacheValidators(v)

	// Report JSON names in errors, falling back to the struct field name
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	return &CentralizedValidator{
		validator: v,
	}
}

// ValidateStruct validates a struct using struct tags
func (cv *CentralizedValidator) ValidateStruct(s interface{}) error {
	if err := cv.validator.Struct(s); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateVar validates a single variable with validation rules
func (cv *CentralizedValidator) ValidateVar(field interface{}, tag string) error {
	if err := cv.validator.Var(field, tag); err != nil {
		return cv.formatValidationErrors(err)
	}
	return nil
}

// ValidateStructResult validates a struct and returns detailed results
func (cv *CentralizedValidator) ValidateStructResult(s interface{}) *ValidationResult {
	err := cv.validator.Struct(s)
	if err == nil {
		return &ValidationResult{Valid: true, Errors: []ValidationError{}}
	}

	return &ValidationResult{
		Valid:  false,
		Errors: cv.extractValidationErrors(err),
	}
}

// FluentValidator accumulates named field errors
type FluentValidator struct {
	centralizedValidator *CentralizedValidator
	errors               []ValidationError
	prefix               string
}

// NewFluentValidator creates a fluent validator
func NewFluentValidator() *FluentValidator {
	return &FluentValidator{
		centralizedValidator: globalValidator,
		errors:               make([]ValidationError, 0),
	}
}

// NewFluentValidatorWithPrefix creates a fluent validator with error prefix
func NewFluentValidatorWithPrefix(prefix string) *FluentValidator {
	fv := NewFluentValidator()
	fv.prefix = prefix
	return fv
}

// RequireString validates that a string is not empty (trimmed)
func (fv *FluentValidator) RequireString(value, name string) *FluentValidator {
	if strings.TrimSpace(value) == "" {
		fv.addError(name, "required", value, fmt.Sprintf("%s is required", name))
	}
	return fv
}

// RequirePositive validates that an integer is positive
func (fv *FluentValidator) RequirePositive(value int, name string) *FluentValidator {
	if err := fv.centralizedValidator.ValidateVar(value, "min=1"); err != nil {
		fv.addError(name, "min", fmt.Sprintf("%d", value), fmt.Sprintf("%s must be positive", name))
	}
	return fv
}

// RequireNonNegative validates that an integer is non-negative
func (fv *FluentValidator) RequireNonNegative(value int, name string) *FluentValidator {
	if err := fv.centralizedValidator.ValidateVar(value, "min=0"); err != nil {
		fv.addError(name, "min", fmt.Sprintf("%d", value), fmt.Sprintf("%s must be non-negative", name))
	}
	return fv
}

// RequireRange validates that a value is within a range
func (fv *FluentValidator) RequireRange(value, min, max int, name string) *FluentValidator {
	tag := fmt.Sprintf("min=%d,max=%d", min, max)
	if err := fv.centralizedValidator.ValidateVar(value, tag); err != nil {
		fv.addError(name, "range", fmt.Sprintf("%d", value), fmt.Sprintf("%s must be between %d and %d", name, min, max))
	}
	return fv
}

// RequireOneOf validates that a value is one of the allowed values
func (fv *FluentValidator) RequireOneOf(value string, allowed []string, name string) *FluentValidator {
	tag := fmt.Sprintf("required,oneof=%s", strings.Join(allowed, " "))
	if err := fv.centralizedValidator.ValidateVar(value, tag); err != nil {
		fv.addError(name, "oneof", value, fmt.Sprintf("%s must be one of: %s", name, strings.Join(allowed, ", ")))
	}
	return fv
}

// RequireHostPort validates a host:port address
func (fv *FluentValidator) RequireHostPort(value, name string) *FluentValidator {
	if err := fv.centralizedValidator.ValidateVar(value, "required,hostname_port"); err != nil {
		fv.addError(name, "hostname_port", value, fmt.Sprintf("%s must be a host:port address", name))
	}
	return fv
}

// RequireDuration validates a Go duration string at least min long
func (fv *FluentValidator) RequireDuration(value string, min time.Duration, name string) *FluentValidator {
	parsed, err := time.ParseDuration(value)
	if err != nil {
		fv.addError(name, "duration", value, fmt.Sprintf("%s must be a valid duration (e.g. '500ms', '2s')", name))
		return fv
	}
	if parsed < min {
		fv.addError(name, "min", value, fmt.Sprintf("%s must be at least %v", name, min))
	}
	return fv
}

// OptionalCron validates a cron spec when value is non-empty
func (fv *FluentValidator) OptionalCron(value, name string) *FluentValidator {
	if value == "" {
		return fv
	}
	if err := fv.centralizedValidator.ValidateVar(value, "cron_expression"); err != nil {
		fv.addError(name, "cron_expression", value, fmt.Sprintf("%s must be a valid cron expression", name))
	}
	return fv
}

// Validate runs a custom validation function
func (fv *FluentValidator) Validate(fn func() error) *FluentValidator {
	if err := fn(); err != nil {
		fv.addError("custom", "custom", "", err.Error())
	}
	return fv
}

// ValidateIf runs a validation function if a condition is true
func (fv *FluentValidator) ValidateIf(condition bool, fn func() error) *FluentValidator {
	if condition {
		return fv.Validate(fn)
	}
	return fv
}

// HasErrors returns true if there are validation errors
func (fv *FluentValidator) HasErrors() bool {
	return len(fv.errors) > 0
}

// Error returns the validation error or nil if there are no errors
func (fv *FluentValidator) Error() error {
	if !fv.HasErrors() {
		return nil
	}

	if len(fv.errors) == 1 {
		return errors.ValidationError(fv.errors[0].Message)
	}

	messages := make([]string, len(fv.errors))
	for i, e := range fv.errors {
		messages[i] = e.Message
	}

	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

// GetValidationResult returns structured validation results
func (fv *FluentValidator) GetValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:  !fv.HasErrors(),
		Errors: fv.errors,
	}
}

// addError adds a validation error with optional prefix
func (fv *FluentValidator) addError(field, tag, value, message string) {
	if fv.prefix != "" {
		message = fmt.Sprintf("%s: %s", fv.prefix, message)
		field = fmt.Sprintf("%s.%s", fv.prefix, field)
	}

	fv.errors = append(fv.errors, ValidationError{
		Field:   field,
		Tag:     tag,
		Value:   value,
		Message: message,
	})
}

// formatValidationErrors converts go-playground/validator errors to internal errors
func (cv *CentralizedValidator) formatValidationErrors(err error) error {
	validationErrors := cv.extractValidationErrors(err)
	if len(validationErrors) == 1 {
		return errors.ValidationError(validationErrors[0].Message)
	}

	messages := make([]string, len(validationErrors))
	for i, e := range validationErrors {
		messages[i] = e.Message
	}

	return errors.ValidationError(fmt.Sprintf("validation failed: %s", strings.Join(messages, "; ")))
}

// extractValidationErrors extracts structured validation errors
func (cv *CentralizedValidator) extractValidationErrors(err error) []ValidationError {
	var validationErrors []ValidationError

	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrs {
			validationErrors = append(validationErrors, ValidationError{
				Field:   fieldError.Field(),
				Tag:     fieldError.Tag(),
				Value:   fmt.Sprintf("%v", fieldError.Value()),
				Message: cv.formatFieldError(fieldError),
				Param:   fieldError.Param(),
			})
		}
	} else {
		validationErrors = append(validationErrors, ValidationError{
			Field:   "unknown",
			Tag:     "error",
			Message: err.Error(),
		})
	}

	return validationErrors
}

// formatFieldError formats go-playground/validator field errors into readable messages
func (cv *CentralizedValidator) formatFieldError(err validator.FieldError) string {
	field := err.Field()
	if field == "" {
		field = "value"
	}

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("field '%s' is required", field)
	case "min":
		return fmt.Sprintf("field '%s' must be at least %s", field, err.Param())
	case "max":
		return fmt.Sprintf("field '%s' must be at most %s", field, err.Param())
	case "oneof":
		return fmt.Sprintf("field '%s' must be one of: %s", field, err.Param())
	case "hostname_port":
		return fmt.Sprintf("field '%s' must be a host:port address", field)
	case "printascii":
		return fmt.Sprintf("field '%s' must contain printable ASCII only", field)
	case "cron_expression":
		return fmt.Sprintf("field '%s' must be a valid cron expression", field)
	case "cache_key":
		return fmt.Sprintf("field '%s' must be a valid cache key", field)
	case "duration":
		return fmt.Sprintf("field '%s' must be a valid duration", field)
	default:
		return fmt.Sprintf("field '%s' failed validation: %s", field, err.Tag())
	}
}

// MaxKeyLength bounds keys accepted from operators
const MaxKeyLength = 512

// registerCacheValidators registers custom validation functions for cache configuration and keys
func registerCacheValidators(v *validator.Validate) {
	v.RegisterValidation("cron_expression", func(fl validator.FieldLevel) bool {
		_, err := CronParser.Parse(fl.Field().String())
		return err == nil
	})

	// Keys are opaque but must be non-empty, bounded and free of control characters
	v.RegisterValidation("cache_key", func(fl validator.FieldLevel) bool {
		key := fl.Field().String()
		if key == "" || len(key) > MaxKeyLength {
			return false
		}
		return strings.IndexFunc(key, func(r rune) bool { return r < 0x20 || r == 0x7f }) < 0
	})

	v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	})
}

// Global validator instance for convenience
var globalValidator = NewCentralizedValidator()

// ValidateStruct validates a struct using the global validator instance
func ValidateStruct(s interface{}) error {
	return globalValidator.ValidateStruct(s)
}

// ValidateVar validates a variable using the global validator instance
func ValidateVar(field interface{}, tag string) error {
	return globalValidator.ValidateVar(field, tag)
}

// ValidateStructResult validates a struct and returns detailed results using the global validator
func ValidateStructResult(s interface{}) *ValidationResult {
	return globalValidator.ValidateStructResult(s)
}
