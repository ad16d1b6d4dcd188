package groups

import "fmt"

// ConfigError reports a structural problem in the groups configuration.
// It is always raised before any request reaches GLPI.
type ConfigError struct {
	Group string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("group '%s' %s", e.Group, e.Msg)
}

func configErrorf(group, format string, args ...any) *ConfigError {
	return &ConfigError{Group: group, Msg: fmt.Sprintf(format, args...)}
}
