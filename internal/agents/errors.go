package agents

import (
	"context"
	"errors"
	"fmt"
)

// GenerationError wraps an upstream generation failure or malformed output.
// Retryable with bounded backoff.
type GenerationError struct {
	Agent Kind
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s agent generation failed: %v", e.Agent, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// TimeoutError marks an agent that exceeded its cycle budget. Not retried
// within the same cycle.
type TimeoutError struct {
	Agent Kind
	Err   error
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s agent timed out: %v", e.Agent, e.Err)
}

func (e *TimeoutError) Unwrap() error { return e.Err }

// classify converts a raw agent failure into the taxonomy: context expiry
// becomes TimeoutError, everything else GenerationError.
func classify(kind Kind, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &TimeoutError{Agent: kind, Err: err}
	}
	return &GenerationError{Agent: kind, Err: err}
}
