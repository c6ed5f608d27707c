package config

import (
	"fmt"
	"reflect"
	"regexp"
	"time"
)

// ConfigValidator function type for validating configuration values
type ConfigValidator func(key string, value interface{}) error

// RequiredValidator ensures a configuration value is not nil or empty
func RequiredValidator(key string, value interface{}) error {
	if value == nil {
		return fmt.Errorf("configuration key %s is required", key)
	}

	if str, ok := value.(string); ok && str == "" {
		return fmt.Errorf("configuration key %s cannot be empty", key)
	}

	return nil
}

// IntRangeValidator validates that an integer value is within the specified range
func IntRangeValidator(min, max int) ConfigValidator {
	return func(key string, value interface{}) error {
		intVal, ok := value.(int)
		if !ok {
			return fmt.Errorf("configuration key %s must be an integer", key)
		}

		if intVal < min || intVal > max {
			return fmt.Errorf("configuration key %s must be between %d and %d", key, min, max)
		}

		return nil
	}
}

// DurationRangeValidator validates that a duration is within the specified range
func DurationRangeValidator(min, max time.Duration) ConfigValidator {
	return func(key string, value interface{}) error {
		d, ok := value.(time.Duration)
		if !ok {
			return fmt.Errorf("configuration key %s must be a duration", key)
		}

		if d < min || d > max {
			return fmt.Errorf("configuration key %s must be between %s and %s", key, min, max)
		}

		return nil
	}
}

// RegexValidator validates that a string value matches the specified regex pattern
func RegexValidator(pattern string) ConfigValidator {
	re := regexp.MustCompile(pattern)
	return func(key string, value interface{}) error {
		str, ok := value.(string)
		if !ok {
			return fmt.Errorf("configuration key %s must be a string", key)
		}

		if !re.MatchString(str) {
			return fmt.Errorf("configuration key %s does not match required pattern", key)
		}

		return nil
	}
}

// OneOfValidator validates that a value is one of the allowed values
func OneOfValidator(validValues ...interface{}) ConfigValidator {
	return func(key string, value interface{}) error {
		for _, valid := range validValues {
			if reflect.DeepEqual(value, valid) {
				return nil
			}
		}
		return fmt.Errorf("configuration key %s must be one of: %v", key, validValues)
	}
}

// ChainValidator allows chaining multiple validators
func ChainValidator(validators ...ConfigValidator) ConfigValidator {
	return func(key string, value interface{}) error {
		for _, validator := range validators {
			if err := validator(key, value); err != nil {
				return err
			}
		}
		return nil
	}
}
