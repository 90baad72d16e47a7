package curriculum

import (
	"errors"
	"fmt"
)

var (
	// ErrNodeNotFound is returned when an operation names an unknown node id.
	ErrNodeNotFound = errors.New("curriculum node not found")
	// ErrDuplicateNode is returned by AddNode for an id already in the graph.
	ErrDuplicateNode = errors.New("curriculum node already exists")
	// ErrNodeNotAvailable is returned when starting a module whose
	// prerequisites are not yet completed.
	ErrNodeNotAvailable = errors.New("curriculum node not available")
	// ErrActiveRemedial is returned when a parent already has an
	// uncompleted remedial child.
	ErrActiveRemedial = errors.New("node already has an active remedial child")
)

// CycleError reports an AddEdge call that would make the graph cyclic. The
// graph is left unmodified.
type CycleError struct {
	SourceID string
	TargetID string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("edge %s -> %s would create a cycle", e.SourceID, e.TargetID)
}

// PrerequisiteUnmetError reports a MarkCompleted call on a node whose
// prerequisites are not all completed.
type PrerequisiteUnmetError struct {
	NodeID  string
	Missing []string
}

func (e *PrerequisiteUnmetError) Error() string {
	return fmt.Sprintf("node %s has unmet prerequisites %v", e.NodeID, e.Missing)
}
