package Transport2D

import "fmt"

// ConfigurationError reports an invalid solver setup. It is always
// detected before any training work starts
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration: %s", e.Reason)
	}
	return fmt.Sprintf("configuration [%s]: %s", e.Field, e.Reason)
}

func configErr(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// InstabilityError reports a run abandoned after too many consecutive
// non finite loss evaluations
type InstabilityError struct {
	Iteration int
	Streak    int
}

func (e *InstabilityError) Error() string {
	return fmt.Sprintf("loss non finite for %d consecutive iterations, stopped at iteration %d",
		e.Streak, e.Iteration)
}

// CheckpointError wraps a failed checkpoint read or write
type CheckpointError struct {
	Path string
	Op   string
	Err  error
}

func (e *CheckpointError) Error() string {
	return fmt.Sprintf("checkpoint %s [%s]: %s", e.Op, e.Path, e.Err)
}

func (e *CheckpointError) Unwrap() error { return e.Err }
