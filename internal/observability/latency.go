package observability

import (
	"sync"
	"time"
)

// LatencyRecorder keeps the most recent generation latency per curriculum
// node. Surfaced on the cycle status endpoint so clients can show how long
// the multi-agent pass took.
type LatencyRecorder struct {
	mu      sync.RWMutex
	byLabel map[string]time.Duration
}

func NewLatencyRecorder() *LatencyRecorder {
	return &LatencyRecorder{byLabel: map[string]time.Duration{}}
}

func (r *LatencyRecorder) Record(nodeLabel string, d time.Duration) {
	if r == nil || nodeLabel == "" {
		return
	}
	r.mu.Lock()
	r.byLabel[nodeLabel] = d
	r.mu.Unlock()
}

func (r *LatencyRecorder) Snapshot() map[string]time.Duration {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]time.Duration, len(r.byLabel))
	for k, v := range r.byLabel {
		out[k] = v
	}
	return out
}
