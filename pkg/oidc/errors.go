package oidc

import "fmt"

// ConfigurationError is returned by NewHandler for options that cannot work.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid oidc configuration: %s", e.Reason)
}

func configError(format string, args ...any) error {
	return &ConfigurationError{Reason: fmt.Sprintf(format, args...)}
}
