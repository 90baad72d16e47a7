package orchestrator

import (
	"fmt"
	"strings"

	"github.com/yungbote/curricula-backend/internal/agents"
)

// StageAbortedError means a cycle could not continue past a stage, most
// importantly when the professor produced no draft for the audit to consume.
// Nothing is committed when it is returned.
type StageAbortedError struct {
	State   State
	Missing []agents.Kind
	Err     error
}

func (e *StageAbortedError) Error() string {
	parts := make([]string, 0, len(e.Missing))
	for _, k := range e.Missing {
		parts = append(parts, string(k))
	}
	msg := fmt.Sprintf("cycle aborted in %s", e.State)
	if len(parts) > 0 {
		msg += fmt.Sprintf(", missing outputs: %s", strings.Join(parts, ", "))
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

func (e *StageAbortedError) Unwrap() error { return e.Err }
