package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers Switchboard-specific validation rules.
// Must be called before validating Config.
func RegisterCustomValidators(v *validator.Validate) error {
	// approval_dsn: validates the persistent-store DSN prefix.
	if err := v.RegisterValidation("approval_dsn", validateApprovalDSN); err != nil {
		return fmt.Errorf("failed to register approval_dsn validator: %w", err)
	}
	return nil
}

// validateApprovalDSN validates the approvals database URL.
// Valid prefixes: "sqlite://", "postgres://", "postgresql://".
func validateApprovalDSN(fl validator.FieldLevel) bool {
	dsn := fl.Field().String()

	if strings.HasPrefix(dsn, "sqlite://") {
		return strings.TrimPrefix(dsn, "sqlite://") != ""
	}
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return true
	}
	return false
}

// Validate validates the Config using struct tags and cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *Config) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	// Cross-field validation: live adapter modes need credentials config.
	if err := c.validateLiveAdapters(); err != nil {
		return err
	}

	return nil
}

// validateLiveAdapters ensures live-mode adapters have the cloud settings
// they cannot run without. Dry-run mode needs nothing.
func (c *Config) validateLiveAdapters() error {
	if c.Adapters.EnableBedrock && c.Adapters.AWSMode == "live" && c.Adapters.AWSRegion == "" {
		return errors.New("adapters: aws_mode=live requires aws_region (or AWS_REGION)")
	}
	if c.Adapters.EnableVertex && c.Adapters.GCPMode == "live" && c.Adapters.GCPProject == "" {
		return errors.New("adapters: gcp_mode=live requires gcp_project (or GOOGLE_CLOUD_PROJECT)")
	}
	return nil
}

// formatValidationErrors converts validator.ValidationErrors to
// user-friendly messages.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		var messages []string
		for _, e := range validationErrors {
			messages = append(messages, formatSingleValidationError(e))
		}
		return errors.New(strings.Join(messages, "; "))
	}
	return err
}

// formatSingleValidationError creates a user-friendly message for a single
// validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()
	tag := e.Tag()

	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "approval_dsn":
		return fmt.Sprintf("%s must start with 'sqlite://', 'postgres://' or 'postgresql://'", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, tag)
	}
}
