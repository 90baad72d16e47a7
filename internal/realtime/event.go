package realtime

const (
	EventCycleProgress     = "CycleProgress"
	EventCycleSucceeded    = "CycleSucceeded"
	EventCycleFailed       = "CycleFailed"
	EventCurriculumUpdated = "CurriculumUpdated"
)

// CycleEvent is published while a generation cycle runs so clients can follow
// stage transitions without polling. Channel is the owning user's id.
type CycleEvent struct {
	Channel string         `json:"channel"`
	Event   string         `json:"event"`
	Data    map[string]any `json:"data,omitempty"`
}
