package lifecycle

import "fmt"

// ConfigError reports a configuration that can never succeed, detected before
// any engine call is made.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid container configuration: " + e.Reason
}

// LaunchError wraps the last failure of an exhausted start sequence. When a
// container id was obtained before the failure, Logs holds the container's
// captured output; otherwise it is empty and the error message notes that no
// logs were available.
type LaunchError struct {
	Cause error
	Logs  string
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("container startup failed: %v", e.Cause)
}

func (e *LaunchError) Unwrap() error {
	return e.Cause
}
