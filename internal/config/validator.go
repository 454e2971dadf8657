package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// RegisterCustomValidators registers trackify-specific validation rules.
// Must be called before validating TrackifyConfig.
func RegisterCustomValidators(v *validator.Validate) error {
	// duration: a positive Go duration string such as "4s" or "1m30s"
	if err := v.RegisterValidation("duration", validateDuration); err != nil {
		return fmt.Errorf("failed to register duration validator: %w", err)
	}
	return nil
}

func validateDuration(fl validator.FieldLevel) bool {
	d, err := time.ParseDuration(fl.Field().String())
	return err == nil && d > 0
}

// Validate validates the TrackifyConfig using struct tags and custom cross-field rules.
// Returns an error if validation fails, with actionable error messages.
func (c *TrackifyConfig) Validate() error {
	v := validator.New(validator.WithRequiredStructEnabled())

	if err := RegisterCustomValidators(v); err != nil {
		return err
	}

	if err := v.Struct(c); err != nil {
		return formatValidationErrors(err)
	}

	if err := c.validatePositioner(); err != nil {
		return err
	}

	if err := c.validateCredentials(); err != nil {
		return err
	}

	return nil
}

// validatePositioner ensures the replay source has a track to play.
func (c *TrackifyConfig) validatePositioner() error {
	if c.Positioner.Source == SourceReplay && c.Positioner.ReplayFile == "" {
		return errors.New("positioner.replay_file is required when positioner.source is \"replay\"")
	}
	return nil
}

// validateCredentials ensures email and password are set together.
func (c *TrackifyConfig) validateCredentials() error {
	hasEmail := c.Credentials.Email != ""
	hasPassword := c.Credentials.Password != ""
	if hasEmail != hasPassword {
		return errors.New("credentials: specify both email and password, or neither")
	}
	return nil
}

// HasCredentials returns true if a headless login is configured.
func (c *TrackifyConfig) HasCredentials() bool {
	return c.Credentials.Email != "" && c.Credentials.Password != ""
}

// formatValidationErrors converts validator.ValidationErrors to user-friendly messages.
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

// formatSingleValidationError creates a user-friendly message for a single validation error.
func formatSingleValidationError(e validator.FieldError) string {
	field := e.Namespace()

	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s is out of range", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email address", field)
	case "hostname_port":
		return fmt.Sprintf("%s must be a valid host:port", field)
	case "duration":
		return fmt.Sprintf("%s must be a positive duration such as \"4s\"", field)
	default:
		return fmt.Sprintf("%s failed validation: %s", field, e.Tag())
	}
}
