package runtime

import (
	"errors"
	"fmt"
)

// PermanentError marks a failure that no retry can fix (malformed input,
// missing required fields). The worker dead-letters the delivery without
// consuming the remaining retry budget.
type PermanentError struct {
	Err error
}

func (e *PermanentError) Error() string { return fmt.Sprintf("permanent: %v", e.Err) }
func (e *PermanentError) Unwrap() error { return e.Err }

func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &PermanentError{Err: err}
}

func Permanentf(format string, args ...any) error {
	return &PermanentError{Err: fmt.Errorf(format, args...)}
}

func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}

// RecoveredError is returned by a step body that substituted a fallback
// value after a failure. The step runner checkpoints Value with a
// "recovered" tag and the step completes normally; Cause is only logged.
type RecoveredError struct {
	Value any
	Cause error
}

func (e *RecoveredError) Error() string { return fmt.Sprintf("recovered: %v", e.Cause) }
func (e *RecoveredError) Unwrap() error { return e.Cause }

func Recovered(value any, cause error) error {
	return &RecoveredError{Value: value, Cause: cause}
}
