package agents

import (
	"context"
	"errors"
	"sync"
)

// ErrNoSignal marks a risk handoff that never arrived. The evaluator treats
// it as risk 1.0, failing safe toward flagging.
var ErrNoSignal = errors.New("no verification signal")

// RiskChannel hands exactly one VerificationResult from the verifier to the
// evaluator. Single producer, single consumer, at-most-once delivery.
type RiskChannel struct {
	once sync.Once
	ch   chan *VerificationResult
}

func NewRiskChannel() *RiskChannel {
	return &RiskChannel{ch: make(chan *VerificationResult, 1)}
}

// Send delivers the result. Only the first call counts.
func (c *RiskChannel) Send(v *VerificationResult) {
	c.once.Do(func() {
		c.ch <- v
		close(c.ch)
	})
}

// Fail closes the handoff without a result, so the receiver gets ErrNoSignal
// instead of blocking forever.
func (c *RiskChannel) Fail() {
	c.once.Do(func() { close(c.ch) })
}

// Receive blocks for the result. Returns ErrNoSignal when the producer
// failed, already delivered once, or ctx expired first.
func (c *RiskChannel) Receive(ctx context.Context) (*VerificationResult, error) {
	select {
	case v, ok := <-c.ch:
		if !ok || v == nil {
			return nil, ErrNoSignal
		}
		return v, nil
	case <-ctx.Done():
		return nil, ErrNoSignal
	}
}
