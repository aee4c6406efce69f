// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package sources

import (
	"errors"
	"fmt"
)

// ConfigError reports an adapter that cannot run with the supplied
// configuration, typically a missing credential. No network call is made
// when it is returned.
type ConfigError struct {
	Source string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: configuration error: %s", e.Source, e.Reason)
}

// IsConfigError reports whether err is, or wraps, a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func missingCredential(source, envKey string) error {
	return &ConfigError{Source: source, Reason: envKey + " not set"}
}
