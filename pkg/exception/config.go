package exception

import "errors"

var (
	ErrNotConfigured       = errors.New("config: credentials not configured")
	ErrMalformedCredential = errors.New("config: malformed credentials")
)

// ConfigError reports missing or malformed credentials. It disables the
// scheduler at start-up and never terminates the process.
type ConfigError struct {
	Source string
	Err    error
}

func (e *ConfigError) Error() string {
	if e.Source == "" {
		return e.Err.Error()
	}
	return e.Err.Error() + " (" + e.Source + ")"
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
