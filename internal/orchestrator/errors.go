package orchestrator

import "fmt"

// ConfigurationError is returned before any backend call when the paper can
// never be graded with the current setup (missing credentials, invalid
// temperatures, empty rubric).
type ConfigurationError struct {
	Reason string
	Err    error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// EvaluationError is the single error a failed paper evaluation surfaces.
// Stage names the call that failed first; Err is the original cause.
type EvaluationError struct {
	Stage   Role
	Backend string
	Err     error
}

func (e *EvaluationError) Error() string {
	if e.Backend != "" {
		return fmt.Sprintf("evaluation failed at %s (%s): %v", e.Stage, e.Backend, e.Err)
	}
	return fmt.Sprintf("evaluation failed at %s: %v", e.Stage, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}
