package config

import (
	"fmt"
	"net"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for complex rules
// that cannot be expressed in tags.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
//
// Returns an error describing validation failures.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules performs custom validation beyond struct tags.
func validateCustomRules(cfg *Config) error {
	if cfg.Client.SendBurst > 0 && cfg.Client.MaxSendRate == 0 {
		return fmt.Errorf("client: send_burst is set but max_send_rate is 0")
	}

	if addr := cfg.Transport.LocalAddress; addr != "" {
		if _, err := net.ResolveUDPAddr(cfg.Transport.Network, addr); err != nil {
			return fmt.Errorf("transport: invalid local_address %q: %w", addr, err)
		}
	}

	// The selected flavor's section must decode
	if _, err := CreateAuth(&cfg.Auth); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		// Return the first validation error with context
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
