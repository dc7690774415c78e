package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate validates the configuration using struct tags and the rules
// that cannot be expressed in tags.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	names := make(map[string]bool)

	for i, module := range cfg.Modules {
		if names[module.Name] {
			return fmt.Errorf("modules[%d]: duplicate module name %q", i, module.Name)
		}

		names[module.Name] = true
	}

	return nil
}

func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors

	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]

		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)", e.Namespace(), e.Tag(), e.Value())
	}

	return err
}
