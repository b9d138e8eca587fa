package apperr

import "fmt"

// ConfigError marks an automation whose stored schedule configuration
// (send time or timezone) cannot be interpreted. A dispatch pass that hits
// one aborts and rolls back the whole batch.
type ConfigError struct {
	AutomationID int64
	Err          error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("automation %d has invalid configuration: %v", e.AutomationID, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError wraps a configuration failure for the given automation.
func NewConfigError(automationID int64, err error) error {
	return &ConfigError{AutomationID: automationID, Err: err}
}
